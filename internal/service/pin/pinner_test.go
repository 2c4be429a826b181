package pin_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lloro-ai/lloro/internal/extract"
	"github.com/lloro-ai/lloro/internal/service/pin"
	"github.com/lloro-ai/lloro/internal/service/session"
	"github.com/lloro-ai/lloro/internal/storage"
)

type stubProvider struct {
	pages map[string]extract.Result
	err   error
	calls int
}

func (p *stubProvider) Extract(ctx context.Context, url string) (*extract.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	res, ok := p.pages[url]
	if !ok {
		return nil, extract.ErrNoContent
	}
	return &res, nil
}

func newFixture(t *testing.T, provider extract.Provider) (*session.Store, *pin.Pinner, string) {
	t.Helper()
	store := session.NewStore(storage.NewMemory(), nil)
	ctx := context.Background()
	require.NoError(t, store.Open(ctx))
	sess, err := store.Create(ctx, "gemini-pro")
	require.NoError(t, err)
	return store, pin.NewPinner(store, provider, nil), sess.ID
}

func TestPinExtractsAndRecords(t *testing.T) {
	provider := &stubProvider{pages: map[string]extract.Result{
		"https://a": {Title: "A", Content: "hello"},
	}}
	store, pinner, sessID := newFixture(t, provider)

	pc, created, err := pinner.Pin(context.Background(), sessID, "https://a")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "A", pc.Title)
	require.Equal(t, "hello", pc.Content)
	require.False(t, pc.Sent)

	sess, err := store.Get(sessID)
	require.NoError(t, err)
	require.Len(t, sess.PendingPins(), 1)
}

func TestPinSameURLTwiceIsNoOp(t *testing.T) {
	provider := &stubProvider{pages: map[string]extract.Result{
		"https://a": {Title: "A", Content: "hello"},
	}}
	_, pinner, sessID := newFixture(t, provider)
	ctx := context.Background()

	first, created, err := pinner.Pin(ctx, sessID, "https://a")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := pinner.Pin(ctx, sessID, "https://a")
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, first, second)
	// No second extraction happens for a known URL.
	require.Equal(t, 1, provider.calls)
}

func TestPinExtractionFailureLeavesURLUnpinned(t *testing.T) {
	provider := &stubProvider{}
	store, pinner, sessID := newFixture(t, provider)
	ctx := context.Background()

	_, _, err := pinner.Pin(ctx, sessID, "https://empty")
	require.ErrorIs(t, err, pin.ErrExtractionFailed)

	sess, err := store.Get(sessID)
	require.NoError(t, err)
	_, ok := sess.Pinned("https://empty")
	require.False(t, ok)

	// A retry after the provider recovers succeeds.
	provider.pages = map[string]extract.Result{"https://empty": {Title: "E", Content: "now"}}
	_, created, err := pinner.Pin(ctx, sessID, "https://empty")
	require.NoError(t, err)
	require.True(t, created)
}

func TestPinUnknownSession(t *testing.T) {
	_, pinner, _ := newFixture(t, &stubProvider{})
	_, _, err := pinner.Pin(context.Background(), "missing", "https://a")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestDeliveryBundleFormat(t *testing.T) {
	provider := &stubProvider{pages: map[string]extract.Result{
		"https://a": {Title: "A", Content: "alpha"},
		"https://b": {Title: "B", Content: "beta"},
	}}
	_, pinner, sessID := newFixture(t, provider)
	ctx := context.Background()

	_, _, err := pinner.Pin(ctx, sessID, "https://a")
	require.NoError(t, err)
	_, _, err = pinner.Pin(ctx, sessID, "https://b")
	require.NoError(t, err)

	delivery, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	defer delivery.Abort()

	require.False(t, delivery.Empty())
	require.Len(t, delivery.Contexts(), 2)

	want := "## A\nURL: https://a\n\nalpha" +
		"\n\n---\n\n" +
		"## B\nURL: https://b\n\nbeta"
	require.Equal(t, want, delivery.Bundle())
}

func TestDeliveryConfirmMarksSentOnce(t *testing.T) {
	provider := &stubProvider{pages: map[string]extract.Result{
		"https://a": {Title: "A", Content: "alpha"},
	}}
	store, pinner, sessID := newFixture(t, provider)
	ctx := context.Background()

	_, _, err := pinner.Pin(ctx, sessID, "https://a")
	require.NoError(t, err)

	delivery, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	require.NoError(t, delivery.Confirm(ctx))

	sess, err := store.Get(sessID)
	require.NoError(t, err)
	pc, ok := sess.Pinned("https://a")
	require.True(t, ok)
	require.True(t, pc.Sent)

	// The next delivery carries nothing.
	next, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	defer next.Abort()
	require.True(t, next.Empty())
	require.Equal(t, "", next.Bundle())
}

func TestDeliveryAbortReOffersContexts(t *testing.T) {
	provider := &stubProvider{pages: map[string]extract.Result{
		"https://a": {Title: "A", Content: "alpha"},
	}}
	store, pinner, sessID := newFixture(t, provider)
	ctx := context.Background()

	_, _, err := pinner.Pin(ctx, sessID, "https://a")
	require.NoError(t, err)

	delivery, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	require.Len(t, delivery.Contexts(), 1)
	delivery.Abort()

	sess, err := store.Get(sessID)
	require.NoError(t, err)
	pc, ok := sess.Pinned("https://a")
	require.True(t, ok)
	require.False(t, pc.Sent)

	retry, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	defer retry.Abort()
	require.Len(t, retry.Contexts(), 1)
}

func TestStagedContextsExcludedFromConcurrentDelivery(t *testing.T) {
	provider := &stubProvider{pages: map[string]extract.Result{
		"https://a": {Title: "A", Content: "alpha"},
		"https://b": {Title: "B", Content: "beta"},
	}}
	_, pinner, sessID := newFixture(t, provider)
	ctx := context.Background()

	_, _, err := pinner.Pin(ctx, sessID, "https://a")
	require.NoError(t, err)

	first, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	require.Len(t, first.Contexts(), 1)

	// A page pinned mid-turn belongs to the next delivery; the staged one
	// stays out of it.
	_, _, err = pinner.Pin(ctx, sessID, "https://b")
	require.NoError(t, err)

	second, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	require.Len(t, second.Contexts(), 1)
	require.Equal(t, "https://b", second.Contexts()[0].SourceURL)

	require.NoError(t, first.Confirm(ctx))
	second.Abort()

	// The aborted page is offered again; the confirmed one is gone.
	third, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	defer third.Abort()
	require.Len(t, third.Contexts(), 1)
	require.Equal(t, "https://b", third.Contexts()[0].SourceURL)
}

func TestDeliverySettleIsIdempotent(t *testing.T) {
	provider := &stubProvider{pages: map[string]extract.Result{
		"https://a": {Title: "A", Content: "alpha"},
	}}
	store, pinner, sessID := newFixture(t, provider)
	ctx := context.Background()

	_, _, err := pinner.Pin(ctx, sessID, "https://a")
	require.NoError(t, err)

	delivery, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	require.NoError(t, delivery.Confirm(ctx))
	// Abort after Confirm is a no-op, not a revert.
	delivery.Abort()

	sess, err := store.Get(sessID)
	require.NoError(t, err)
	pc, _ := sess.Pinned("https://a")
	require.True(t, pc.Sent)
}

func TestManyPinsKeepInsertionOrder(t *testing.T) {
	pages := make(map[string]extract.Result)
	var urls []string
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://page/%d", i)
		urls = append(urls, url)
		pages[url] = extract.Result{Title: fmt.Sprintf("P%d", i), Content: "c"}
	}
	_, pinner, sessID := newFixture(t, &stubProvider{pages: pages})
	ctx := context.Background()

	for _, url := range urls {
		_, _, err := pinner.Pin(ctx, sessID, url)
		require.NoError(t, err)
	}

	delivery, err := pinner.BeginDelivery(sessID)
	require.NoError(t, err)
	defer delivery.Abort()

	got := delivery.Contexts()
	require.Len(t, got, len(urls))
	for i, pc := range got {
		require.Equal(t, urls[i], pc.SourceURL)
	}
}

func TestPinWrapsProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("network down")}
	_, pinner, sessID := newFixture(t, provider)

	_, _, err := pinner.Pin(context.Background(), sessID, "https://a")
	require.ErrorIs(t, err, pin.ErrExtractionFailed)
	require.Contains(t, err.Error(), "network down")
}

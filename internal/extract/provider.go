package extract

import (
	"context"
	"errors"
)

// ErrNoContent reports that a page yielded nothing readable. Pin state is
// left untouched so the user may retry.
var ErrNoContent = errors.New("no readable content")

// Result is what a provider pulls out of a page.
type Result struct {
	Title   string
	Content string
	URL     string
}

// Provider turns a page URL into readable content. Implementations return
// ErrNoContent when the page has nothing usable.
type Provider interface {
	Extract(ctx context.Context, url string) (*Result, error)
}

// TabResolver reports the URL the user is currently looking at, or an
// error when none can be determined.
type TabResolver interface {
	CurrentURL() (string, error)
}

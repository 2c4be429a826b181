package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebProvider fetches a page over HTTP and runs readability extraction on
// it. It is the CLI's stand-in for reading a live browser tab.
type WebProvider struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewWebProvider builds a provider with a bounded fetch timeout.
func NewWebProvider(logger *zap.Logger) *WebProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("User-Agent", "lloro/1.0 (+https://github.com/lloro-ai/lloro)")
	return &WebProvider{http: client, logger: logger}
}

// Extract downloads url and returns its readable content.
func (p *WebProvider) Extract(ctx context.Context, url string) (*Result, error) {
	resp, err := p.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") && !strings.Contains(contentType, "text/plain") {
		p.logger.Debug("unsupported content type", zap.String("url", url), zap.String("contentType", contentType))
		return nil, ErrNoContent
	}

	if strings.Contains(contentType, "text/plain") {
		content := normalizeWhitespace(string(resp.Body()))
		if content == "" {
			return nil, ErrNoContent
		}
		return &Result{Title: url, Content: content, URL: url}, nil
	}

	result, err := FromHTML(string(resp.Body()), url)
	if err != nil {
		return nil, err
	}
	if result.Title == "" {
		result.Title = url
	}
	return result, nil
}

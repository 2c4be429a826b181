package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

// ClipboardTabs resolves the "current tab" from the system clipboard: the
// CLI equivalent of asking the browser for its active tab is the URL the
// user just copied from it.
type ClipboardTabs struct{}

// CurrentURL returns the clipboard content when it is a single http(s) URL.
func (ClipboardTabs) CurrentURL() (string, error) {
	raw, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}

	candidate := strings.TrimSpace(raw)
	if candidate == "" || strings.ContainsAny(candidate, " \n\t") {
		return "", fmt.Errorf("clipboard does not hold a URL")
	}

	parsed, err := url.Parse(candidate)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("clipboard does not hold an http(s) URL")
	}

	return candidate, nil
}

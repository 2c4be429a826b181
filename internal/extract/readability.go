package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var (
	collapseSpaces = regexp.MustCompile(`[ \t]+`)
	collapseLines  = regexp.MustCompile(`\n{3,}`)

	stripPolicy = bluemonday.StrictPolicy()
)

// FromHTML extracts the readable portion of an HTML document using the
// usual heuristics: drop chrome elements, prefer semantic containers,
// fall back to the whole body.
func FromHTML(html, pageURL string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && title == "" {
		title = strings.TrimSpace(og)
	}

	doc.Find("script, style, nav, header, footer, aside, iframe, noscript, .ad, .advertisement, .sidebar").Remove()

	var main *goquery.Selection
	if sel := doc.Find("main, article").First(); sel.Length() > 0 {
		main = sel
	} else if sel := doc.Find("[role='main'], [role='article']").First(); sel.Length() > 0 {
		main = sel
	} else if sel := doc.Find("#content, #main, .content, .main, .article").First(); sel.Length() > 0 {
		main = sel
	} else {
		main = doc.Find("body")
	}

	content := normalizeWhitespace(main.Text())
	if content == "" {
		// Some documents render everything through markup the text walk
		// misses; sanitizing the raw HTML down to text is the last resort.
		content = normalizeWhitespace(stripPolicy.Sanitize(html))
	}
	if content == "" {
		return nil, ErrNoContent
	}

	return &Result{Title: title, Content: content, URL: pageURL}, nil
}

func normalizeWhitespace(s string) string {
	s = collapseSpaces.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = collapseLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

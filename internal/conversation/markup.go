package conversation

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripMarkup reduces a bot message to plain text. Results arrive as HTML
// fragments; anything that fails to parse is returned trimmed as-is.
func StripMarkup(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.TrimSpace(markup)
	}

	var parts []string
	doc.Find("body").Contents().Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})

	if len(parts) == 0 {
		return strings.TrimSpace(doc.Text())
	}

	return strings.Join(parts, "\n")
}

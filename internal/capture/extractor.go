package capture

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// ExtractPageText returns the visible text of an HTML document: the body's
// text content with script, style and noscript elements removed, trimmed.
func ExtractPageText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", eris.Wrap(err, "parse page html")
	}

	doc.Find("script, style, noscript, template").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})
	return strings.TrimSpace(doc.Find("body").Text()), nil
}

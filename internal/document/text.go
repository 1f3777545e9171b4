package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// PlainText renders an HTML fragment to whitespace-collapsed NFC text.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseSpace(html)
	}

	doc.Find("script, style").Remove()
	doc.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

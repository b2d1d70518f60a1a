// Package htmltext turns the feed's HTML descriptions into plain text.
package htmltext

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// Strip removes markup and decodes entities. Text without '<' is only trimmed.
func Strip(html string) string {
	if !strings.ContainsRune(html, '<') {
		return strings.TrimSpace(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return tidy(tagPattern.ReplaceAllString(html, ""))
	}
	return tidy(doc.Text())
}

func tidy(text string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

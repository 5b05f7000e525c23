package fetcher

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Title returns the document's title: <title>, then og:title or
// twitter:title meta tags, then the first <h1>. Empty when none is present.
func Title(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return collapse(title)
	}

	metaSelectors := []string{
		"meta[property='og:title']",
		"meta[name='twitter:title']",
	}
	for _, selector := range metaSelectors {
		if content, exists := doc.Find(selector).Attr("content"); exists && strings.TrimSpace(content) != "" {
			return collapse(content)
		}
	}

	return collapse(doc.Find("h1").First().Text())
}

// DocumentName names a fetched page by its title, falling back to the URL.
func DocumentName(page *Page) string {
	if title := Title(page.Body); title != "" {
		return title
	}
	return page.URL
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package urls

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// URL is one talk link found in a landing page.
type URL struct {
	Location string // cleaned content URI
	Title    string
}

// ExtractTalkLinks returns the talk links of a landing page body in document
// order. The navigation is a two-level list: outer items are sessions, inner
// items are talks. Only direct children are followed, so links that are not
// wrapped by an outer item are skipped.
func ExtractTalkLinks(html string) ([]URL, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var urls []URL
	outer := doc.Find("nav").First().ChildrenFiltered("ul").First().ChildrenFiltered("li")
	outer.Each(func(i int, session *goquery.Selection) {
		inner := session.ChildrenFiltered("ul").First().ChildrenFiltered("li")
		inner.Each(func(j int, item *goquery.Selection) {
			link := item.ChildrenFiltered("a").First()
			href, exists := link.Attr("href")
			if !exists || href == "" {
				return
			}
			urls = append(urls, URL{
				Location: CleanLink(href),
				Title:    strings.TrimSpace(link.Text()),
			})
		})
	})
	return urls, nil
}

// CleanLink drops the query string and the "/study" segment of a site link,
// turning it into a content URI.
func CleanLink(href string) string {
	if i := strings.Index(href, "?"); i >= 0 {
		href = href[:i]
	}
	return strings.Replace(href, "/study", "", 1)
}

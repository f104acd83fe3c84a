package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// TalkPage holds the fields read from a talk page body.
type TalkPage struct {
	Title       Lookup[string]
	AuthorName  Lookup[string]
	AuthorTitle Lookup[string]
	Summary     Lookup[string]
}

// IsMarker reports whether the page has no author line. Such pages open a
// new session instead of carrying a talk.
func (p TalkPage) IsMarker() bool {
	return !p.AuthorName.OK()
}

var bylinePrefix = regexp.MustCompile(`(?i)^(Presented )?By `)

// StripByline removes a leading "By " or "Presented By " from an author line.
func StripByline(s string) string {
	return bylinePrefix.ReplaceAllString(strings.TrimSpace(s), "")
}

// ParseTalkPage extracts the talk fields from a page body.
//
// Expected layout:
//
//	<header>
//	  <h1>Title</h1>
//	  <div><p>By Elder Name</p><p>Of the Quorum of ...</p></div>
//	  <p>Summary</p>
//	</header>
func ParseTalkPage(body string) (TalkPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return TalkPage{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	header := doc.Find("header").First()
	author := header.ChildrenFiltered("div").First().ChildrenFiltered("p")

	page := TalkPage{
		Title:       text("header > h1", header.ChildrenFiltered("h1").First().Text()),
		AuthorName:  text("header > div > p[0]", StripByline(author.Eq(0).Text())),
		AuthorTitle: text("header > div > p[1]", author.Eq(1).Text()),
		Summary:     text("header > p", header.ChildrenFiltered("p").First().Text()),
	}
	if !page.Summary.OK() {
		if excerpt, err := ExtractExcerpt(body); err == nil && excerpt != "" {
			page.Summary = Found("readability.excerpt", excerpt)
		}
	}
	return page, nil
}

// ExtractExcerpt returns readability's short description of the page.
func ExtractExcerpt(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract excerpt: %w", err)
	}
	return strings.TrimSpace(article.Excerpt), nil
}

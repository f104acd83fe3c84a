package pipeline

import (
	"strings"

	"metacasts/pkg/content"
	"metacasts/pkg/domain"
)

// Byline is the speaker identity read from an author line.
type Byline struct {
	ID    string
	Name  string
	Short string
}

// ParseByline splits an author line into honorific and name.
//
// A leading "By " or "Presented By " is dropped. The first remaining token is
// always the short title. It is removed from the name only when it is one of
// honorifics, so "By Jeffrey R. Holland" keeps the full name while
// "By Elder Gerrit W. Gong" yields "Gerrit W. Gong".
func ParseByline(raw string, honorifics []string) Byline {
	tokens := strings.Fields(content.StripByline(raw))
	if len(tokens) == 0 {
		return Byline{}
	}

	b := Byline{Short: tokens[0]}
	nameTokens := tokens
	if isHonorific(tokens[0], honorifics) {
		nameTokens = tokens[1:]
	}
	b.Name = strings.Join(nameTokens, " ")
	if b.Name != "" {
		b.ID = domain.Slug(b.Name)
	}
	return b
}

func isHonorific(token string, honorifics []string) bool {
	for _, h := range honorifics {
		if strings.EqualFold(token, h) {
			return true
		}
	}
	return false
}

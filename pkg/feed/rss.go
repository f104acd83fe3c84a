package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

const (
	itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	atomNS   = "http://www.w3.org/2005/Atom"
)

// Channel is the header of one feed document.
type Channel struct {
	Title       string
	Description string
	Image       string
	Link        string
	// SelfURL is the public address of the feed file itself.
	SelfURL    string
	Author     string
	OwnerEmail string
	Category   string
	Copyright  string
}

// Item is one feed entry. Optional fields are left empty when unknown.
type Item struct {
	ID          string
	Title       string
	Description string
	PubDate     string
	Image       string
	Duration    *int
	Author      string
	Season      int
	AudioURL    string
}

type rssDoc struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	ITunesNS string     `xml:"xmlns:itunes,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Image       hrefAttr  `xml:"itunes:image"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	AtomLink    atomLink  `xml:"atom:link"`
	Owner       rssOwner  `xml:"itunes:owner"`
	Category    textAttr  `xml:"itunes:category"`
	Explicit    string    `xml:"itunes:explicit"`
	Language    string    `xml:"language"`
	Author      string    `xml:"itunes:author"`
	Copyright   string    `xml:"copyright"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Image       hrefAttr      `xml:"itunes:image"`
	Duration    string        `xml:"itunes:duration"`
	Description string        `xml:"description"`
	PubDate     string        `xml:"pubDate"`
	GUID        rssGUID       `xml:"guid"`
	Author      string        `xml:"itunes:author"`
	Season      string        `xml:"itunes:season,omitempty"`
	Enclosure   *rssEnclosure `xml:"enclosure"`
}

type hrefAttr struct {
	Href string `xml:"href,attr"`
}

type textAttr struct {
	Text string `xml:"text,attr"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssOwner struct {
	Name  string `xml:"itunes:name"`
	Email string `xml:"itunes:email"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

// Render builds the RSS 2.0 document for ch and items. Items keep the order
// they are given in; publish dates go through ValidateDate with now as the
// fallback clock.
func Render(ch Channel, items []Item, now func() time.Time) ([]byte, error) {
	doc := rssDoc{
		Version:  "2.0",
		ITunesNS: itunesNS,
		AtomNS:   atomNS,
		Channel: rssChannel{
			Title:       ch.Title,
			Image:       hrefAttr{Href: ch.Image},
			Description: ch.Description,
			Link:        ch.Link,
			AtomLink:    atomLink{Href: ch.SelfURL, Rel: "self", Type: "application/rss+xml"},
			Owner:       rssOwner{Name: ch.Author, Email: ch.OwnerEmail},
			Category:    textAttr{Text: ch.Category},
			Explicit:    "false",
			Language:    "en",
			Author:      ch.Author,
			Copyright:   ch.Copyright,
			Items:       make([]rssItem, 0, len(items)),
		},
	}

	for _, it := range items {
		image := it.Image
		if image == "" {
			image = ch.Image
		}
		ri := rssItem{
			Title:       it.Title,
			Image:       hrefAttr{Href: image},
			Description: it.Description,
			PubDate:     ValidateDate(it.PubDate, now),
			GUID:        rssGUID{IsPermaLink: "false", Value: it.ID},
			Author:      it.Author,
		}
		if it.Duration != nil {
			ri.Duration = strconv.Itoa(*it.Duration)
		}
		if it.Season > 0 {
			ri.Season = strconv.Itoa(it.Season)
		}
		if it.AudioURL != "" {
			ri.Enclosure = &rssEnclosure{URL: it.AudioURL, Type: "audio/mpeg", Length: 0}
		}
		doc.Channel.Items = append(doc.Channel.Items, ri)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode rss: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

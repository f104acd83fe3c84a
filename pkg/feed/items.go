package feed

import (
	"fmt"
	"strings"

	"metacasts/pkg/domain"
)

// SpeakerName is the display name of a talk's speaker: the speaker record
// name, else the id with hyphens as spaces, else "Unknown Speaker".
func SpeakerName(ref domain.SpeakerRef, speaker *domain.Speaker) string {
	if speaker != nil && strings.TrimSpace(speaker.Name) != "" {
		return strings.TrimSpace(speaker.Name)
	}
	if ref.ID != "" {
		return strings.ReplaceAll(ref.ID, "-", " ")
	}
	return "Unknown Speaker"
}

// DisplayAuthor renders "{short} {name}, {full}". The short title is left
// out when it is already the first word of the name, and the calling is left
// out with its comma when there is none.
func DisplayAuthor(ref domain.SpeakerRef, speaker *domain.Speaker) string {
	name := SpeakerName(ref, speaker)
	short := strings.TrimSpace(ref.Title.Short)
	full := strings.TrimSpace(ref.Title.Full)

	author := name
	if short != "" && name != short && !strings.HasPrefix(name, short+" ") {
		author = short + " " + name
	}
	if full != "" {
		author += ", " + full
	}
	return strings.TrimSpace(author)
}

// Description renders the item description of ep.
func Description(ep domain.Episode, author, disclaimer string) string {
	season := ep.Metadata.Season
	longForm := ep.Summary
	if strings.TrimSpace(longForm) == "" {
		longForm = season.Description
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s by %s\n", ep.Title, author)
	fmt.Fprintf(&b, "given in %s of %s on %s\n\n", season.SessionLabel(ep.Session), season.Label, humanDate(ep.Date))
	fmt.Fprintf(&b, "%s\n\n", longForm)
	b.WriteString(disclaimer)
	return b.String()
}

// Image picks the season icon, else the artist logo, else def.
func Image(md domain.Metadata, def string) string {
	if md.Season.Icon != "" {
		return md.Season.Icon
	}
	if md.Artist.Logo != "" {
		return md.Artist.Logo
	}
	return def
}

// NewItem derives the feed entry of ep.
func NewItem(ep domain.Episode, speaker *domain.Speaker, defaultImage, disclaimer string) Item {
	author := DisplayAuthor(ep.Speaker, speaker)
	return Item{
		ID:          ep.ID,
		Title:       ep.Title,
		Description: Description(ep, author, disclaimer),
		PubDate:     PubDate(ep.Date, ep.Session, ep.Sequence),
		Image:       Image(ep.Metadata, defaultImage),
		Duration:    ep.Duration,
		Author:      author,
		Season:      ep.Metadata.Season.Season,
		AudioURL:    ep.Links.MP3,
	}
}

package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Talk is one item of a content collection, e.g. a single conference address.
// Duration is nil until the audio has been probed.
type Talk struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Date     string     `json:"date"`
	Session  int        `json:"session"`
	Sequence int        `json:"sequence"`
	Links    Links      `json:"links"`
	Speaker  SpeakerRef `json:"speaker"`
	Summary  string     `json:"summary,omitempty"`
	Topics   []string   `json:"topics"`
	Duration *int       `json:"duration,omitempty"`
}

// Links holds the media references of a talk.
type Links struct {
	MP3 string `json:"mp3,omitempty"`
}

// SpeakerRef points at a Speaker by id and snapshots the display titles seen
// on the talk page at ingestion time.
type SpeakerRef struct {
	ID    string       `json:"id"`
	Title SpeakerTitle `json:"title"`
}

// SpeakerTitle is the calling line of a speaker ("Of the Quorum of the Twelve
// Apostles") and the honorific used in front of the name ("Elder").
type SpeakerTitle struct {
	Full  string `json:"full,omitempty"`
	Short string `json:"short,omitempty"`
}

// nonWord matches the same runs the id format has always collapsed.
var nonWord = regexp.MustCompile(`\W+`)

// Slug lowercases s and collapses every run of non-word characters into a
// single hyphen. Edge hyphens are preserved so ids written by earlier runs
// keep matching.
func Slug(s string) string {
	return nonWord.ReplaceAllString(strings.ToLower(s), "-")
}

// TalkIDParts are the inputs of a talk id.
type TalkIDParts struct {
	Abbreviation string
	Year         int
	Month        int
	Session      int
	Sequence     int
	SpeakerID    string
	Title        string
}

// TalkID derives the deterministic id of a talk, for example
// "gc-2022-04-01-02-russell-m-nelson-the-power-of-spiritual-momentum".
func TalkID(p TalkIDParts) string {
	return fmt.Sprintf("%s-%d-%02d-%02d-%02d-%s-%s",
		p.Abbreviation, p.Year, p.Month, p.Session, p.Sequence, p.SpeakerID, Slug(p.Title))
}

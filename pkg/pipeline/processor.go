package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"metacasts/pkg/content"
	"metacasts/pkg/domain"
	"metacasts/pkg/store"
)

// ingestTalk assembles the talk occupying slot, merges its speaker and
// upserts the record.
func (p *Pipeline) ingestTalk(ctx context.Context, log *slog.Logger, period domain.Period, season domain.Season, page *content.Page, parsed content.TalkPage, slot Slot, report *Report) error {
	byline := ParseByline(parsed.AuthorName.Value, p.opts.Honorifics)
	if byline.ID != "" {
		if err := p.speakers.Merge(ctx, byline.ID, byline.Name); err != nil {
			return err
		}
		report.Speakers++
		p.metrics.SpeakersMerged.Inc()
	} else {
		log.Warn("author line has no name", "uri", page.URI, "raw", parsed.AuthorName.Value)
	}

	if !parsed.Title.OK() {
		log.Warn("talk page has no title", "uri", page.URI, "path", parsed.Title.Path)
	}

	talk := assembleTalk(p.opts, period, season, page, parsed, byline, slot)
	key := path.Join(p.opts.Collection, period.Folder(), talk.ID)

	created, err := p.saveTalk(ctx, key, talk)
	if err != nil {
		return fmt.Errorf("save talk %s: %w", talk.ID, err)
	}
	p.metrics.TalksIngested.Inc()
	log.Info("talk saved",
		"id", talk.ID,
		"session", slot.Session,
		"sequence", slot.Sequence,
		"created", created,
	)
	return nil
}

func assembleTalk(opts Options, period domain.Period, season domain.Season, page *content.Page, parsed content.TalkPage, byline Byline, slot Slot) *domain.Talk {
	title := parsed.Title.Or("")
	date := season.StartDate
	if date == "" {
		date = period.FirstDay()
	}

	return &domain.Talk{
		ID: domain.TalkID(domain.TalkIDParts{
			Abbreviation: opts.Abbreviation,
			Year:         period.Year,
			Month:        period.Month,
			Session:      slot.Session,
			Sequence:     slot.Sequence,
			SpeakerID:    byline.ID,
			Title:        title,
		}),
		Title:    title,
		Date:     date,
		Session:  slot.Session,
		Sequence: slot.Sequence,
		Links:    domain.Links{MP3: page.AudioURL.Or("")},
		Speaker: domain.SpeakerRef{
			ID: byline.ID,
			Title: domain.SpeakerTitle{
				Full:  parsed.AuthorTitle.Or(""),
				Short: byline.Short,
			},
		},
		Summary: parsed.Summary.Or(""),
		Topics:  []string{},
	}
}

// saveTalk upserts talk fill-only. The duration is probed only when neither
// the stored record nor the new one has it.
func (p *Pipeline) saveTalk(ctx context.Context, key string, talk *domain.Talk) (bool, error) {
	existing, err := p.store.Get(ctx, store.Episodes, key)
	created := errors.Is(err, store.ErrNotFound)
	if err != nil && !created {
		return false, err
	}

	if p.opts.ProbeDurations && p.prober != nil && talk.Links.MP3 != "" && existing["duration"] == nil {
		if seconds, ok := p.prober.Probe(ctx, talk.Links.MP3); ok {
			talk.Duration = &seconds
			p.metrics.DurationsProbed.WithLabelValues("ok").Inc()
		} else {
			p.metrics.DurationsProbed.WithLabelValues("absent").Inc()
		}
	}

	doc, err := store.Encode(talk)
	if err != nil {
		return false, err
	}
	if err := p.store.Put(ctx, store.Episodes, key, store.FillMissing(existing, doc)); err != nil {
		return false, err
	}
	return created, nil
}

package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/newscurator/internal/config"
	"github.com/bilgisen/newscurator/internal/dedup"
	"github.com/bilgisen/newscurator/internal/extract"
	"github.com/bilgisen/newscurator/internal/feed"
	"github.com/bilgisen/newscurator/internal/filter"
	"github.com/bilgisen/newscurator/internal/logger"
	"github.com/bilgisen/newscurator/internal/models"
	"github.com/bilgisen/newscurator/internal/storage"
	"github.com/bilgisen/newscurator/internal/utils"
	"github.com/rs/zerolog"
)

// FeedReader reads one feed
type FeedReader interface {
	Read(ctx context.Context, url string) feed.ReadResult
}

// Extractor fetches one article page
type Extractor interface {
	Extract(ctx context.Context, url string) extract.Result
}

// SkipReason names why an entry did not become a candidate row
type SkipReason string

const (
	SkipDuplicate     SkipReason = "duplicate"
	SkipFilteredTitle SkipReason = "filtered_title"
	SkipFilteredBody  SkipReason = "filtered_body"
	SkipEmptyBody     SkipReason = "empty_body"
	SkipInvalid       SkipReason = "invalid"
)

// Summary counts what one run did
type Summary struct {
	Feeds         int                `json:"feeds"`
	FeedFailures  int                `json:"feed_failures"`
	Entries       int                `json:"entries"`
	Added         int                `json:"added"`
	ExtractFailed int                `json:"extract_failed"`
	Skipped       map[SkipReason]int `json:"skipped"`
	Duration      time.Duration      `json:"duration"`
}

func (s *Summary) skip(reason SkipReason) {
	if s.Skipped == nil {
		s.Skipped = make(map[SkipReason]int)
	}
	s.Skipped[reason]++
}

// Deps wires a Processor
type Deps struct {
	Reader FeedReader
	// Extractor serves plain feeds, Resolving serves feeds with Resolve set.
	// A nil Resolving falls back to Extractor.
	Extractor  Extractor
	Resolving  Extractor
	Filter     *filter.Relevance
	Candidates storage.Table
	Feeds      []config.Feed
	// EmptyBody is config.EmptyBodyDrop (default) or config.EmptyBodyKeep
	EmptyBody string
	Logger    *zerolog.Logger
}

// Processor runs the ingestion pipeline over every configured feed
type Processor struct {
	deps   Deps
	parser *feed.Parser
	log    *zerolog.Logger
}

func NewProcessor(d Deps) *Processor {
	if d.Resolving == nil {
		d.Resolving = d.Extractor
	}
	if d.EmptyBody == "" {
		d.EmptyBody = config.EmptyBodyDrop
	}
	log := d.Logger
	if log == nil {
		log = logger.Get()
	}
	return &Processor{
		deps:   d,
		parser: feed.NewParser(),
		log:    log,
	}
}

// Run reads the candidate store once, then walks every feed in order. Feed
// and article failures are logged and skipped; a store failure aborts the run
// and is returned along with the counts so far.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{Skipped: make(map[SkipReason]int)}

	rows, err := p.deps.Candidates.Rows(ctx)
	if err != nil {
		return summary, fmt.Errorf("error reading candidate store: %w", err)
	}

	seen := dedup.New()
	for _, row := range rows {
		seen.Mark(row.Get(models.ColURL))
	}

	p.log.Info().
		Int("feeds", len(p.deps.Feeds)).
		Int("known_urls", seen.Len()).
		Msg("Starting ingestion")

	for _, src := range p.deps.Feeds {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		if err := p.processFeed(ctx, src, seen, &summary); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	p.log.Info().
		Int("added", summary.Added).
		Int("entries", summary.Entries).
		Int("feed_failures", summary.FeedFailures).
		Int("extract_failed", summary.ExtractFailed).
		Interface("skipped", summary.Skipped).
		Dur("duration", summary.Duration).
		Msg("Finished ingestion")

	return summary, nil
}

func (p *Processor) processFeed(ctx context.Context, src config.Feed, seen *dedup.Set, summary *Summary) error {
	summary.Feeds++
	p.log.Info().Str("feed", src.URL).Msg("Reading feed")

	result := p.deps.Reader.Read(ctx, src.URL)
	if !result.OK() {
		summary.FeedFailures++
		p.log.Error().
			Err(result.Err).
			Str("feed", src.URL).
			Msg("Error reading feed")
		return nil
	}

	p.log.Info().
		Str("feed", src.URL).
		Int("found", result.Total).
		Int("considered", len(result.Entries)).
		Msg("Fetched feed items")

	extractor := p.deps.Extractor
	if src.Resolve {
		extractor = p.deps.Resolving
	}

	for entry := range result.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Entries++
		if err := p.processEntry(ctx, entry, extractor, seen, summary); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processEntry(ctx context.Context, entry models.FeedEntry, extractor Extractor, seen *dedup.Set, summary *Summary) error {
	title := strings.TrimSpace(entry.Title)
	link := strings.TrimSpace(entry.Link)

	if link == "" {
		summary.skip(SkipInvalid)
		p.log.Debug().Str("title", utils.Prefix(title, 60)).Msg("Skipping item with empty link")
		return nil
	}
	if seen.Seen(link) {
		summary.skip(SkipDuplicate)
		p.log.Debug().Str("url", utils.Prefix(link, 50)).Msg("Skipping already stored item")
		return nil
	}

	if verdict := p.deps.Filter.Check(title); !verdict.Relevant {
		summary.skip(SkipFilteredTitle)
		p.log.Info().
			Str("title", utils.Prefix(title, 60)).
			Str("reason", verdict.Reason).
			Str("keyword", verdict.Keyword).
			Msg("Skipping irrelevant title")
		return nil
	}

	res := extractor.Extract(ctx, link)
	if res.Failed() {
		summary.ExtractFailed++
		p.log.Warn().
			Err(res.Err).
			Str("outcome", string(res.Outcome)).
			Str("url", utils.Prefix(link, 50)).
			Msg("Error extracting article, falling back to feed summary")
	}

	text := res.Text
	if text == "" {
		text = utils.Prefix(p.parser.SummaryText(entry), models.MaxTextLength)
	}
	if text == "" && p.deps.EmptyBody != config.EmptyBodyKeep {
		summary.skip(SkipEmptyBody)
		p.log.Info().Str("title", utils.Prefix(title, 60)).Msg("Skipping item without text")
		return nil
	}

	if verdict := p.deps.Filter.Check(title + "\n" + text); !verdict.Relevant {
		summary.skip(SkipFilteredBody)
		p.log.Info().
			Str("title", utils.Prefix(title, 60)).
			Str("reason", verdict.Reason).
			Str("keyword", verdict.Keyword).
			Msg("Skipping irrelevant article")
		return nil
	}

	url := link
	if resolved := strings.TrimSpace(res.ResolvedURL); resolved != "" && resolved != link {
		if seen.Seen(resolved) {
			seen.Mark(link)
			summary.skip(SkipDuplicate)
			p.log.Debug().Str("url", utils.Prefix(resolved, 50)).Msg("Skipping already stored item")
			return nil
		}
		url = resolved
	}

	photo := res.ImageURL
	if photo == "" {
		photo = feed.FallbackImage(entry)
	}

	record := models.CandidateRecord{
		Status:   models.StatusNew,
		Title:    title,
		Text:     text,
		PhotoURL: photo,
		URL:      url,
	}
	if err := models.Validate(record); err != nil {
		summary.skip(SkipInvalid)
		p.log.Warn().
			Err(err).
			Str("url", utils.Prefix(url, 50)).
			Msg("Skipping invalid record")
		return nil
	}

	if err := p.deps.Candidates.AppendRow(ctx, record.Row()); err != nil {
		return fmt.Errorf("error appending to candidate store: %w", err)
	}

	seen.Mark(link, url)
	summary.Added++
	p.log.Info().
		Str("title", utils.Prefix(title, 60)).
		Bool("photo", photo != "").
		Int("text", len([]rune(text))).
		Str("url", utils.Prefix(url, 50)).
		Msg("Added candidate")
	return nil
}

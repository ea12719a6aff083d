package feed

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/bilgisen/newscurator/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
)

const (
	DefaultLimit   = 20
	DefaultTimeout = 10 * time.Second
)

// Options configures a Reader
type Options struct {
	// Limit caps the number of entries taken from the top of each feed.
	// Feeds are assumed to list the newest items first.
	Limit     int
	Timeout   time.Duration
	UserAgent string
}

// ReadResult is the outcome of reading one feed. A failed read carries Err
// and no entries; it never aborts the surrounding run.
type ReadResult struct {
	FeedURL string
	Entries []models.FeedEntry
	Total   int
	Err     error
}

// OK reports whether the feed was fetched and parsed
func (r ReadResult) OK() bool {
	return r.Err == nil
}

// All yields the capped entries in feed order
func (r ReadResult) All() iter.Seq[models.FeedEntry] {
	return func(yield func(models.FeedEntry) bool) {
		for _, e := range r.Entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Reader fetches syndication feeds and maps their items to FeedEntries
type Reader struct {
	client *resty.Client
	parser *Parser
	limit  int
}

// NewReader builds a Reader. Network calls are never retried.
func NewReader(opts Options) *Reader {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New().SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Reader{
		client: client,
		parser: NewParser(),
		limit:  opts.Limit,
	}
}

// Read fetches and parses the feed at url
func (r *Reader) Read(ctx context.Context, url string) ReadResult {
	result := ReadResult{FeedURL: url}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8").
		Get(url)
	if err != nil {
		result.Err = fmt.Errorf("failed to fetch feed from %s: %w", url, err)
		return result
	}

	if resp.StatusCode() != http.StatusOK {
		result.Err = fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
		return result
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		result.Err = fmt.Errorf("failed to parse feed %s: %w", url, err)
		return result
	}

	result.Total = len(parsed.Items)
	items := parsed.Items
	if len(items) > r.limit {
		items = items[:r.limit]
	}

	result.Entries = make([]models.FeedEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		result.Entries = append(result.Entries, r.parser.ToEntry(item))
	}

	return result
}

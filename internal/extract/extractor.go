package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bilgisen/newscurator/internal/utils"
	"github.com/go-resty/resty/v2"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout            = 10 * time.Second
	DefaultMaxTextLength      = 3000
	DefaultMinParagraphLength = 40

	// Some publishers reject clients that do not look like a browser
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Outcome classifies an extraction attempt
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeEmpty       Outcome = "empty"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeParseFailed Outcome = "parse_failed"
)

// Result is the soft outcome of Extract. On failure ImageURL and Text are
// empty and Err explains why.
type Result struct {
	URL         string
	ResolvedURL string
	ImageURL    string
	Text        string
	Outcome     Outcome
	Err         error
}

// Failed reports a network or parse failure, as opposed to a page that
// simply had no usable paragraphs
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFetchFailed || r.Outcome == OutcomeParseFailed
}

// Options configures an Extractor
type Options struct {
	Timeout            time.Duration
	UserAgent          string
	MaxTextLength      int
	MinParagraphLength int
	// Resolver unwraps aggregator links before fetching. Nil disables it.
	Resolver *Resolver
	// ReadabilityFallback runs a readability pass when the paragraph
	// heuristic finds nothing
	ReadabilityFallback bool
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = DefaultMaxTextLength
	}
	if o.MinParagraphLength <= 0 {
		o.MinParagraphLength = DefaultMinParagraphLength
	}
	return o
}

var (
	containerClassRegex = regexp.MustCompile(`(?i)article|content|body|text`)
	errNon2xx           = errors.New("unexpected status")
)

const boilerplateSelector = "script, style, nav, footer, header, aside"

// Extractor fetches article pages and isolates their body text and lead image
type Extractor struct {
	client *resty.Client
	opts   Options
}

// New builds an Extractor. Requests are never retried.
func New(opts Options) *Extractor {
	opts = opts.withDefaults()
	return &Extractor{
		client: resty.New().
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", opts.UserAgent),
		opts: opts,
	}
}

// WithResolver returns an Extractor sharing e's client that unwraps
// indirection links through r first
func (e *Extractor) WithResolver(r *Resolver) *Extractor {
	opts := e.opts
	opts.Resolver = r
	return &Extractor{client: e.client, opts: opts}
}

// Extract fetches url and returns its image and body text. It never panics
// or returns an error; failures are reported through Result.
func (e *Extractor) Extract(ctx context.Context, rawURL string) Result {
	res := Result{URL: rawURL, ResolvedURL: rawURL}

	if e.opts.Resolver != nil {
		res.ResolvedURL = e.opts.Resolver.Resolve(ctx, rawURL)
	}

	body, finalURL, err := e.fetch(ctx, res.ResolvedURL)
	if err != nil {
		res.Outcome = OutcomeFetchFailed
		res.Err = err
		return res
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		res.Outcome = OutcomeParseFailed
		res.Err = fmt.Errorf("parse document: %w", err)
		return res
	}

	res.ImageURL = leadImage(doc, finalURL)
	res.Text = e.bodyText(doc)

	if res.Text == "" && e.opts.ReadabilityFallback {
		res.Text = e.readabilityText(body, finalURL)
	}

	res.Outcome = OutcomeOK
	if res.Text == "" {
		res.Outcome = OutcomeEmpty
	}
	return res
}

// fetch returns the page decoded to UTF-8 and the URL it was served from
// after redirects
func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, string, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		Get(pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if !resp.IsSuccess() {
		return nil, "", fmt.Errorf("fetch %s: %w %d", pageURL, errNon2xx, resp.StatusCode())
	}

	finalURL := pageURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body()), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", pageURL, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", pageURL, err)
	}
	return body, finalURL, nil
}

// leadImage prefers the open-graph image, then the twitter card image
func leadImage(doc *goquery.Document, pageURL string) string {
	selectors := []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
	}
	for _, sel := range selectors {
		content, ok := doc.Find(sel).First().Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}
		if abs := utils.AbsoluteURL(pageURL, content); abs != "" {
			return abs
		}
	}
	return ""
}

// bodyText strips page chrome, picks the most likely content container and
// joins its substantial paragraphs
func (e *Extractor) bodyText(doc *goquery.Document) string {
	doc.Find(boilerplateSelector).Remove()

	scope := contentContainer(doc)

	var paragraphs []string
	scope.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if len([]rune(text)) > e.opts.MinParagraphLength {
			paragraphs = append(paragraphs, text)
		}
	})

	return truncate(strings.Join(paragraphs, "\n\n"), e.opts.MaxTextLength)
}

func contentContainer(doc *goquery.Document) *goquery.Selection {
	if article := doc.Find("article").First(); article.Length() > 0 {
		return article
	}

	div := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		return ok && containerClassRegex.MatchString(class)
	}).First()
	if div.Length() > 0 {
		return div
	}

	if main := doc.Find("main").First(); main.Length() > 0 {
		return main
	}

	return doc.Selection
}

func (e *Extractor) readabilityText(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}
	return truncate(strings.TrimSpace(article.TextContent), e.opts.MaxTextLength)
}

// truncate cuts s to at most limit characters
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return strings.TrimSpace(string(runes))
}

package extract

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bilgisen/newscurator/internal/utils"
	"github.com/go-resty/resty/v2"
)

// ResolverOptions configures a Resolver
type ResolverOptions struct {
	Timeout   time.Duration
	UserAgent string
	// IndirectionHosts lists aggregator hosts whose pages wrap the real
	// publisher link
	IndirectionHosts []string
}

// Resolver follows aggregator wrapper links to the publisher URL
type Resolver struct {
	client *resty.Client
	hosts  map[string]struct{}
}

// canonicalAnchors carry the publisher URL on aggregator landing pages
var canonicalAnchors = []struct {
	selector string
	attr     string
}{
	{"a[data-n-au]", "data-n-au"},
	{"a[data-canonical]", "data-canonical"},
	{`a[rel~="canonical"]`, "href"},
	{`link[rel="canonical"]`, "href"},
}

func NewResolver(opts ResolverOptions) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	hosts := make(map[string]struct{}, len(opts.IndirectionHosts))
	for _, h := range opts.IndirectionHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = struct{}{}
		}
	}

	return &Resolver{
		client: resty.New().
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", opts.UserAgent),
		hosts: hosts,
	}
}

// Resolve returns the publisher URL behind rawURL. Redirects are followed;
// if the landing page is still an indirection page it is scanned for a
// canonical anchor and then a meta-refresh target. Any failure yields rawURL.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	resp, err := r.client.R().SetContext(ctx).Get(rawURL)
	if err != nil || !resp.IsSuccess() {
		return rawURL
	}

	landing := rawURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		landing = resp.RawResponse.Request.URL.String()
	}

	if !r.isIndirection(landing) {
		return landing
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return rawURL
	}

	if target := canonicalTarget(doc, landing); target != "" {
		return target
	}
	if target := refreshTarget(doc, landing); target != "" {
		return target
	}
	return rawURL
}

func (r *Resolver) isIndirection(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	if _, ok := r.hosts[strings.ToLower(u.Hostname())]; ok {
		return true
	}
	_, ok := r.hosts[strings.ToLower(u.Host)]
	return ok
}

func canonicalTarget(doc *goquery.Document, base string) string {
	for _, c := range canonicalAnchors {
		var found string
		doc.Find(c.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(c.attr)
			if abs := utils.AbsoluteURL(base, v); abs != "" && abs != base {
				found = abs
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// refreshTarget reads <meta http-equiv="refresh" content="0; url=...">
func refreshTarget(doc *goquery.Document, base string) string {
	var found string
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			return true
		}
		content, _ := s.Attr("content")
		idx := strings.Index(strings.ToLower(content), "url=")
		if idx < 0 {
			return true
		}
		target := strings.Trim(strings.TrimSpace(content[idx+len("url="):]), `'"`)
		if abs := utils.AbsoluteURL(base, target); abs != "" {
			found = abs
			return false
		}
		return true
	})
	return found
}

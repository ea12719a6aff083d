package feed

import (
	"html"
	"regexp"
	"strings"

	"github.com/bilgisen/newscurator/internal/models"
	"github.com/bilgisen/newscurator/internal/utils"
	"github.com/mmcdole/gofeed"
)

// Parser handles cleaning and normalizing feed items
type Parser struct {
	htmlTagRegex *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		htmlTagRegex: regexp.MustCompile(`<[^>]*>`),
	}
}

// CleanHTML removes HTML tags and normalizes whitespace
func (p *Parser) CleanHTML(input string) string {
	// Remove HTML tags
	cleaned := p.htmlTagRegex.ReplaceAllString(input, " ")
	// Unescape HTML entities
	cleaned = html.UnescapeString(cleaned)
	// Normalize whitespace
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return strings.TrimSpace(cleaned)
}

// ToEntry maps a parsed feed item onto a FeedEntry
func (p *Parser) ToEntry(item *gofeed.Item) models.FeedEntry {
	entry := models.FeedEntry{
		Title:   strings.TrimSpace(html.UnescapeString(item.Title)),
		Link:    strings.TrimSpace(item.Link),
		Summary: item.Description,
	}
	if entry.Link == "" && len(item.Links) > 0 {
		entry.Link = strings.TrimSpace(item.Links[0])
	}
	if strings.TrimSpace(entry.Summary) == "" {
		entry.Summary = item.Content
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		entry.Enclosures = append(entry.Enclosures, models.Enclosure{
			Type: strings.TrimSpace(enc.Type),
			Href: strings.TrimSpace(enc.URL),
		})
	}

	entry.Thumbnail = thumbnail(item)
	return entry
}

// thumbnail prefers media:thumbnail, then the item image gofeed derived
func thumbnail(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, th := range media["thumbnail"] {
			if u := strings.TrimSpace(th.Attrs["url"]); u != "" {
				return u
			}
		}
		// media:group wraps thumbnails in some feeds
		for _, group := range media["group"] {
			for _, th := range group.Children["thumbnail"] {
				if u := strings.TrimSpace(th.Attrs["url"]); u != "" {
					return u
				}
			}
		}
	}
	if item.Image != nil {
		return strings.TrimSpace(item.Image.URL)
	}
	return ""
}

// SummaryText is the plain-text feed summary, used when the article body
// could not be extracted
func (p *Parser) SummaryText(entry models.FeedEntry) string {
	return p.CleanHTML(entry.Summary)
}

// FallbackImage picks an image announced by the feed itself: the first image
// enclosure, else the thumbnail. Only absolute URLs qualify.
func FallbackImage(entry models.FeedEntry) string {
	for _, enc := range entry.Enclosures {
		if strings.HasPrefix(strings.ToLower(enc.Type), "image") && utils.IsAbsoluteURL(enc.Href) {
			return enc.Href
		}
	}
	if utils.IsAbsoluteURL(entry.Thumbnail) {
		return entry.Thumbnail
	}
	return ""
}

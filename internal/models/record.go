package models

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the workflow state of a stored row
type Status string

const (
	StatusNew  Status = "new"
	StatusOK   Status = "ok"
	StatusDone Status = "done"
)

// ErrInvalidStatus is returned when a cell does not hold a known status
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus normalizes a raw cell value. Curators type by hand, so the
// comparison is case-insensitive and ignores surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusNew, StatusOK, StatusDone:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// MaxTextLength bounds the article body stored in a record, in characters
const MaxTextLength = 3000

// Column names shared by both collections
const (
	ColStatus      = "status"
	ColPublishedAt = "published_at"
	ColTitle       = "title"
	ColText        = "text"
	ColPhotoURL    = "photo_url"
	ColURL         = "url"
	ColComment     = "comment"
)

// CandidateColumns is the fixed column order of the candidate collection
var CandidateColumns = []string{ColStatus, ColTitle, ColText, ColPhotoURL, ColURL, ColComment}

// ApprovedColumns is the fixed column order of the approved collection
var ApprovedColumns = []string{ColStatus, ColPublishedAt, ColTitle, ColText, ColPhotoURL, ColURL, ColComment}

// ColumnIndex returns the 1-based position of name in columns, or 0
func ColumnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i + 1
		}
	}
	return 0
}

// CandidateRecord is a freshly ingested item awaiting human review
type CandidateRecord struct {
	Status   Status `json:"status" validate:"required,oneof=new ok done"`
	Title    string `json:"title" validate:"required"`
	Text     string `json:"text" validate:"max=3000"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
	URL      string `json:"url" validate:"required,url"`
	Comment  string `json:"comment"`
}

// Row renders the record in CandidateColumns order
func (r CandidateRecord) Row() []string {
	return []string{string(r.Status), r.Title, r.Text, r.PhotoURL, r.URL, r.Comment}
}

// CandidateFromFields builds a record from a header-keyed row. An unknown
// status is kept verbatim so callers can decide whether to skip the row.
func CandidateFromFields(fields map[string]string) CandidateRecord {
	status := Status(fields[ColStatus])
	if parsed, err := ParseStatus(fields[ColStatus]); err == nil {
		status = parsed
	}
	return CandidateRecord{
		Status:   status,
		Title:    fields[ColTitle],
		Text:     fields[ColText],
		PhotoURL: fields[ColPhotoURL],
		URL:      fields[ColURL],
		Comment:  fields[ColComment],
	}
}

// ApprovedRecord is an item promoted into the publishing queue. Everything
// past status "new" belongs to the downstream publisher.
type ApprovedRecord struct {
	Status      Status `json:"status" validate:"required,eq=new"`
	PublishedAt string `json:"published_at"`
	Title       string `json:"title" validate:"required"`
	Text        string `json:"text" validate:"max=3000"`
	PhotoURL    string `json:"photo_url"`
	URL         string `json:"url" validate:"required"`
	Comment     string `json:"comment"`
}

// Row renders the record in ApprovedColumns order
func (r ApprovedRecord) Row() []string {
	return []string{string(r.Status), r.PublishedAt, r.Title, r.Text, r.PhotoURL, r.URL, r.Comment}
}

// Approve copies a reviewed candidate into a fresh approved record
func (r CandidateRecord) Approve() ApprovedRecord {
	return ApprovedRecord{
		Status:      StatusNew,
		PublishedAt: "",
		Title:       r.Title,
		Text:        r.Text,
		PhotoURL:    r.PhotoURL,
		URL:         r.URL,
		Comment:     r.Comment,
	}
}

// ApprovedFromFields builds an approved record from a header-keyed row
func ApprovedFromFields(fields map[string]string) ApprovedRecord {
	return ApprovedRecord{
		Status:      Status(strings.ToLower(strings.TrimSpace(fields[ColStatus]))),
		PublishedAt: fields[ColPublishedAt],
		Title:       fields[ColTitle],
		Text:        fields[ColText],
		PhotoURL:    fields[ColPhotoURL],
		URL:         fields[ColURL],
		Comment:     fields[ColComment],
	}
}

package filter

import "strings"

// Keywords configures topical inclusion and exclusion by substring
type Keywords struct {
	Allow []string `yaml:"allow" json:"allow"`
	Block []string `yaml:"block" json:"block"`
}

// Verdict reasons
const (
	ReasonMatched      = "matched"
	ReasonBlocked      = "blocked"
	ReasonNoAllowMatch = "no_allow_match"
)

// Verdict explains a classification decision
type Verdict struct {
	Relevant bool
	Reason   string
	Keyword  string
}

// Relevance is a case-insensitive keyword classifier. It is immutable after
// construction and safe for concurrent use.
type Relevance struct {
	allow []string
	block []string
}

// New copies and normalizes the keyword lists
func New(kw Keywords) *Relevance {
	return &Relevance{
		allow: normalize(kw.Allow),
		block: normalize(kw.Block),
	}
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// IsRelevant reports whether text mentions an allowed topic and no blocked one
func (r *Relevance) IsRelevant(text string) bool {
	return r.Check(text).Relevant
}

// Check classifies text. A block keyword always wins over any allow keyword.
func (r *Relevance) Check(text string) Verdict {
	lower := strings.ToLower(text)

	for _, kw := range r.block {
		if strings.Contains(lower, kw) {
			return Verdict{Reason: ReasonBlocked, Keyword: kw}
		}
	}

	for _, kw := range r.allow {
		if strings.Contains(lower, kw) {
			return Verdict{Relevant: true, Reason: ReasonMatched, Keyword: kw}
		}
	}

	return Verdict{Reason: ReasonNoAllowMatch}
}

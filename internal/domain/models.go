package domain

import "time"

// Domain contains core models shared by the collector, assembler and cycle.

// Article is a single feed entry. Body is filled by the content fetcher.
type Article struct {
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Snippet     string     `json:"summary_snippet,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Body        string     `json:"-"`
}

// HasBody reports whether the article carries extracted text.
func (a Article) HasBody() bool {
	return a.Body != ""
}

// URLs returns the identifiers of the given articles in order.
func URLs(articles []Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.URL)
	}
	return out
}

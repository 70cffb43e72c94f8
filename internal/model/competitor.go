package model

// Candidate is a discovered competitor prior to enrichment.
type Candidate struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	URL         string   `json:"url" validate:"required"`
	Products    []string `json:"products"`
	Services    []string `json:"services"`
	About       string   `json:"about,omitempty"`
	Vision      string   `json:"vision,omitempty"`
	History     string   `json:"history,omitempty"`
}

// Normalize replaces absent list fields with empty collections.
func (c *Candidate) Normalize() {
	if c.Products == nil {
		c.Products = []string{}
	}
	if c.Services == nil {
		c.Services = []string{}
	}
}

// SearchSnippet is one (source URL, excerpt) result from web search.
type SearchSnippet struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// PageSummary is the deep-scrape payload for one competitor URL. When Err
// is set the scrape failed and the remaining fields are empty.
type PageSummary struct {
	URL     string `json:"url"`
	Source  string `json:"source,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Failed reports whether this is the error-tagged variant.
func (p PageSummary) Failed() bool {
	return p.Err != ""
}

// ReportEntry is one competitor as rendered into the report.
type ReportEntry struct {
	Candidate Candidate       `json:"candidate"`
	Snippets  []SearchSnippet `json:"snippets"`
	Page      PageSummary     `json:"page"`
	Links     SocialLinks     `json:"links,omitempty"`
	Social    *SocialAnalysis `json:"social_media_analysis,omitempty"`
}

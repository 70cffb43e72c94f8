package model

import "fmt"

// DiscoveryReason classifies a discovery failure.
type DiscoveryReason string

const (
	DiscoveryReasonLLM       DiscoveryReason = "llm"
	DiscoveryReasonNoJSON    DiscoveryReason = "no_json"
	DiscoveryReasonParse     DiscoveryReason = "parse"
	DiscoveryReasonNotArray  DiscoveryReason = "not_array"
	DiscoveryReasonEmpty     DiscoveryReason = "empty"
	DiscoveryReasonCandidate DiscoveryReason = "invalid_candidate"
)

// DiscoveryError is fatal to a run: without competitors there is nothing
// to enrich.
type DiscoveryError struct {
	Reason DiscoveryReason
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("discovery: %s", e.Reason)
	}
	return fmt.Sprintf("discovery: %s: %v", e.Reason, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// EnrichmentError is a per-URL search failure. It is logged and degraded to
// an empty snippet list.
type EnrichmentError struct {
	URL string
	Err error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich: search %s: %v", e.URL, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// ScrapeError is a per-URL page scrape failure. It is logged and degraded to
// an error-tagged PageSummary.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape: %s: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// SocialScrapeError is a per-link actor failure. It is converted into a
// SocialOutcome failure.
type SocialScrapeError struct {
	Platform Platform
	URL      string
	Err      error
}

func (e *SocialScrapeError) Error() string {
	return fmt.Sprintf("social: %s %s: %v", e.Platform, e.URL, e.Err)
}

func (e *SocialScrapeError) Unwrap() error { return e.Err }

// RenderError is fatal: a run that cannot produce its artifact has failed.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PersistenceError is fatal for the write it affects. It does not roll back
// external effects of stages that already completed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

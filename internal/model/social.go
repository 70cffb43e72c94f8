package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Platform is a canonical social platform name.
type Platform string

const (
	PlatformFacebook  Platform = "Facebook"
	PlatformInstagram Platform = "Instagram"
	PlatformX         Platform = "X"
	PlatformLinkedIn  Platform = "LinkedIn"
	PlatformYouTube   Platform = "YouTube"
)

// Platforms lists every known platform in canonical processing order.
var Platforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformX,
	PlatformLinkedIn,
	PlatformYouTube,
}

// ParsePlatform maps a case-insensitive name to a known platform.
func ParsePlatform(s string) (Platform, bool) {
	for _, p := range Platforms {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	if strings.EqualFold(s, "twitter") {
		return PlatformX, true
	}
	return "", false
}

// SocialLinks maps platform to profile URL for one competitor.
type SocialLinks map[Platform]string

// Sorted returns the linked platforms in canonical order.
func (l SocialLinks) Sorted() []Platform {
	out := make([]Platform, 0, len(l))
	for _, p := range Platforms {
		if _, ok := l[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// SocialPost is a raw platform record as returned by an actor. Field names
// and metric types vary per platform.
type SocialPost map[string]any

// Int returns the numeric value at key, or 0 when absent or non-numeric.
func (p SocialPost) Int(key string) int64 {
	switch v := p[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// String returns the string value at key, or def when absent.
func (p SocialPost) String(key, def string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return def
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return def
		}
		return string(b)
	}
}

// Engagement is likesCount + commentsCount, the ranking key for top posts.
func (p SocialPost) Engagement() int64 {
	return p.Int("likesCount") + p.Int("commentsCount")
}

// FailureKind classifies why a social scrape produced no data.
type FailureKind string

const (
	FailureNoScraper FailureKind = "no_scraper"
	FailureNoHandle  FailureKind = "no_handle"
	FailureRunFailed FailureKind = "run_failed"
	FailureTransport FailureKind = "transport"
)

// SocialFailure is the tagged failure arm of a SocialOutcome.
type SocialFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// SocialOutcome is the result of scraping one social link: either posts
// or a failure, never both.
type SocialOutcome struct {
	Platform Platform       `json:"platform"`
	URL      string         `json:"url"`
	Posts    []SocialPost   `json:"posts,omitempty"`
	Failure  *SocialFailure `json:"failure,omitempty"`
}

// OK reports whether the scrape succeeded.
func (o SocialOutcome) OK() bool {
	return o.Failure == nil
}

// DetailField is a labelled value in a PostDetail.
type DetailField struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// PostDetail is an ordered per-post projection of platform fields.
type PostDetail []DetailField

// Get returns the value for label.
func (d PostDetail) Get(label string) (any, bool) {
	for _, f := range d {
		if f.Label == label {
			return f.Value, true
		}
	}
	return nil, false
}

// SocialAnalysis summarises a competitor's social presence.
type SocialAnalysis struct {
	TotalFollowers int64 `json:"total_followers"`
	TotalPosts     int64 `json:"total_posts"`
	// EngagementRate is an approximation, not a platform-reported metric:
	// 100 * (likes+comments over TopPosts) / (TotalFollowers * TotalPosts).
	// The numerator covers only the global top posts while the denominator
	// spans all platforms, so it is useful for ranking competitors against
	// each other and nothing else.
	EngagementRate  float64                 `json:"engagement_rate"`
	TopPosts        []SocialPost            `json:"top_posts"`
	PlatformDetails map[Platform]PostDetails `json:"platform_details"`
}

// PostDetails is the bounded detail list for one platform.
type PostDetails []PostDetail

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to RunStatus
		want     bool
	}{
		{RunStatusPending, RunStatusRunning, true},
		{RunStatusPending, RunStatusFailed, true},
		{RunStatusPending, RunStatusSucceeded, false},
		{RunStatusRunning, RunStatusSucceeded, true},
		{RunStatusRunning, RunStatusFailed, true},
		{RunStatusRunning, RunStatusPending, false},
		{RunStatusSucceeded, RunStatusFailed, false},
		{RunStatusSucceeded, RunStatusRunning, false},
		{RunStatusFailed, RunStatusSucceeded, false},
		{RunStatusFailed, RunStatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestRunStatusTerminal(t *testing.T) {
	t.Parallel()
	assert.False(t, RunStatusPending.IsTerminal())
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.True(t, RunStatusSucceeded.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
	assert.False(t, RunStatus("bogus").Valid())
}

func TestProjectArtifactBase(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Acme_Robotics_Q3", Project{ProjectName: "Acme Robotics Q3"}.ArtifactBase())
	assert.Equal(t, "Project", Project{}.ArtifactBase())
	assert.Equal(t, "Project", Project{ProjectName: "   "}.ArtifactBase())
}

func TestCandidateNormalize(t *testing.T) {
	t.Parallel()
	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Beta","url":"https://beta.test"}`), &c))
	c.Normalize()
	assert.NotNil(t, c.Products)
	assert.NotNil(t, c.Services)
	assert.Empty(t, c.Products)
}

func TestSocialPostAccessors(t *testing.T) {
	t.Parallel()

	var p SocialPost
	require.NoError(t, json.Unmarshal([]byte(`{"likesCount": 12, "commentsCount": 3.0, "text": "hi", "views": "40", "nested": {"a": 1}}`), &p))

	assert.Equal(t, int64(12), p.Int("likesCount"))
	assert.Equal(t, int64(40), p.Int("views"))
	assert.Equal(t, int64(0), p.Int("missing"))
	assert.Equal(t, int64(15), p.Engagement())
	assert.Equal(t, "hi", p.String("text", "N/A"))
	assert.Equal(t, "N/A", p.String("missing", "N/A"))
	assert.Equal(t, `{"a":1}`, p.String("nested", "N/A"))
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()
	p, ok := ParsePlatform("instagram")
	assert.True(t, ok)
	assert.Equal(t, PlatformInstagram, p)

	p, ok = ParsePlatform("Twitter")
	assert.True(t, ok)
	assert.Equal(t, PlatformX, p)

	_, ok = ParsePlatform("TikTok")
	assert.False(t, ok)
}

func TestSocialLinksSorted(t *testing.T) {
	t.Parallel()
	links := SocialLinks{
		PlatformYouTube:   "https://youtube.com/c/acme",
		PlatformFacebook:  "https://facebook.com/acme",
		PlatformInstagram: "https://instagram.com/acme",
	}
	assert.Equal(t, []Platform{PlatformFacebook, PlatformInstagram, PlatformYouTube}, links.Sorted())
}

func TestErrorTaxonomyUnwrap(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"discovery", &DiscoveryError{Reason: DiscoveryReasonNoJSON, Err: base}, "discovery: no_json: boom"},
		{"enrichment", &EnrichmentError{URL: "https://a.test", Err: base}, "enrich: search https://a.test: boom"},
		{"scrape", &ScrapeError{URL: "https://a.test", Err: base}, "scrape: https://a.test: boom"},
		{"social", &SocialScrapeError{Platform: PlatformX, URL: "https://x.com/a", Err: base}, "social: X https://x.com/a: boom"},
		{"render", &RenderError{Err: base}, "render: boom"},
		{"persist", &PersistenceError{Op: "save artifact", Err: base}, "persist: save artifact: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, base)
		})
	}

	var de *DiscoveryError
	wrapped := fmt.Errorf("run: %w", &DiscoveryError{Reason: DiscoveryReasonEmpty})
	require.ErrorAs(t, wrapped, &de)
	assert.Equal(t, DiscoveryReasonEmpty, de.Reason)
	assert.Equal(t, "discovery: empty", de.Error())
}

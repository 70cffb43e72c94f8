package social

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/sells-group/competitor-intel/internal/model"
)

// ActorTable maps a platform to the Apify actor that scrapes it.
type ActorTable map[model.Platform]string

// DefaultActorTable returns the built-in actor assignments.
func DefaultActorTable() ActorTable {
	return ActorTable{
		model.PlatformFacebook:  "apify/facebook-posts-scraper",
		model.PlatformInstagram: "apify/instagram-profile-scraper",
		model.PlatformX:         "quacker/twitter-scraper",
		model.PlatformYouTube:   "streamers/youtube-scraper",
		model.PlatformLinkedIn:  "anchor/linkedin-profile-enrichment",
	}
}

// ActorTableWithOverrides returns the default table with overrides applied.
// Keys are platform names; unknown names are logged and ignored, and an
// empty actor id removes the platform.
func ActorTableWithOverrides(overrides map[string]string) ActorTable {
	t := DefaultActorTable()
	for name, actor := range overrides {
		p, ok := model.ParsePlatform(name)
		if !ok {
			zap.L().Warn("social: ignoring actor override for unknown platform", zap.String("platform", name))
			continue
		}
		if actor == "" {
			delete(t, p)
			continue
		}
		t[p] = actor
	}
	return t
}

var handlePatterns = map[model.Platform][]*regexp.Regexp{
	model.PlatformInstagram: {regexp.MustCompile(`instagram\.com/([^/?#]+)`)},
	model.PlatformX: {
		regexp.MustCompile(`twitter\.com/([^/?#]+)`),
		regexp.MustCompile(`(?:^|[/.])x\.com/([^/?#]+)`),
	},
	model.PlatformLinkedIn: {regexp.MustCompile(`linkedin\.com/in/([^/?#]+)`)},
}

// ExtractHandle returns the username segment of a profile URL for the
// platforms whose actors take handles.
func ExtractHandle(platform model.Platform, rawURL string) (string, bool) {
	for _, re := range handlePatterns[platform] {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// needsHandle reports whether the platform's run input is built from a handle.
func needsHandle(p model.Platform) bool {
	return p == model.PlatformInstagram || p == model.PlatformX
}

// BuildInput returns the actor run input for a profile URL. For platforms
// that take a handle, ok is false when none could be extracted and the
// handle is sent as null.
func BuildInput(platform model.Platform, rawURL string, maxItems int) (input map[string]any, ok bool) {
	switch platform {
	case model.PlatformLinkedIn:
		return map[string]any{"urls": []string{rawURL}}, true
	case model.PlatformInstagram, model.PlatformX:
		key := "usernames"
		if platform == model.PlatformX {
			key = "handles"
		}
		handle, found := ExtractHandle(platform, rawURL)
		if !found {
			return map[string]any{key: []any{nil}}, false
		}
		return map[string]any{key: []string{handle}}, true
	case model.PlatformFacebook:
		return map[string]any{
			"startUrls":  []map[string]string{{"url": rawURL}},
			"maxResults": maxItems,
		}, true
	case model.PlatformYouTube:
		return map[string]any{
			"startUrls":        []map[string]string{{"url": rawURL}},
			"maxResults":       maxItems,
			"maxResultsShorts": maxItems,
			"maxResultStreams": maxItems,
		}, true
	}
	return map[string]any{"profiles": []string{rawURL}}, true
}

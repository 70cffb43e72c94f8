package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-intel/internal/model"
)

func okOutcome(p model.Platform, posts ...model.SocialPost) model.SocialOutcome {
	return model.SocialOutcome{Platform: p, Posts: posts}
}

func failedOutcome(p model.Platform) model.SocialOutcome {
	return model.SocialOutcome{Platform: p, Failure: &model.SocialFailure{Kind: model.FailureRunFailed}}
}

func TestAnalyze_Counts(t *testing.T) {
	got := Analyze(map[model.Platform]model.SocialOutcome{
		model.PlatformFacebook: okOutcome(model.PlatformFacebook,
			model.SocialPost{"fanCount": float64(1000), "likesCount": float64(10), "commentsCount": float64(2)},
			model.SocialPost{"likesCount": float64(4)},
		),
		model.PlatformInstagram: okOutcome(model.PlatformInstagram,
			model.SocialPost{"followersCount": float64(500), "postsCount": float64(40), "username": "acme"},
		),
		model.PlatformX: okOutcome(model.PlatformX,
			model.SocialPost{"followersCount": float64(250), "tweetsCount": float64(8), "permalink": "/acme/status/1"},
		),
		model.PlatformLinkedIn: failedOutcome(model.PlatformLinkedIn),
	})

	assert.Equal(t, int64(1750), got.TotalFollowers)
	assert.Equal(t, int64(50), got.TotalPosts)
	assert.NotContains(t, got.PlatformDetails, model.PlatformLinkedIn)
	require.Len(t, got.PlatformDetails[model.PlatformFacebook], 2)

	x := got.PlatformDetails[model.PlatformX][0]
	v, _ := x.Get("Permalink")
	assert.Equal(t, "https://x.com/acme/status/1", v)
	v, _ = x.Get("Author")
	assert.Equal(t, "N/A", v)

	ig := got.PlatformDetails[model.PlatformInstagram][0]
	v, _ = ig.Get("Followers")
	assert.Equal(t, int64(500), v)
	assert.Equal(t, "URL", ig[0].Label)
}

func TestAnalyze_TopPostsGlobalAndStable(t *testing.T) {
	fbA := model.SocialPost{"id": "fb-a", "fanCount": float64(100), "likesCount": float64(5)}
	fbB := model.SocialPost{"id": "fb-b", "likesCount": float64(50)}
	igA := model.SocialPost{"id": "ig-a", "followersCount": float64(100), "postsCount": float64(2), "likesCount": float64(5)}
	igB := model.SocialPost{"id": "ig-b", "likesCount": float64(1)}

	got := Analyze(map[model.Platform]model.SocialOutcome{
		model.PlatformInstagram: okOutcome(model.PlatformInstagram, igA, igB),
		model.PlatformFacebook:  okOutcome(model.PlatformFacebook, fbA, fbB),
	})

	require.Len(t, got.TopPosts, 3)
	assert.Equal(t, "fb-b", got.TopPosts[0]["id"])
	assert.Equal(t, "fb-a", got.TopPosts[1]["id"], "equal engagement keeps platform order")
	assert.Equal(t, "ig-a", got.TopPosts[2]["id"])

	// (50+5+5) / (200 * 4) * 100
	assert.InDelta(t, 7.5, got.EngagementRate, 1e-9)
}

func TestAnalyze_DetailsCappedAtFive(t *testing.T) {
	posts := make([]model.SocialPost, 7)
	for i := range posts {
		posts[i] = model.SocialPost{"title": "video"}
	}
	got := Analyze(map[model.Platform]model.SocialOutcome{model.PlatformYouTube: okOutcome(model.PlatformYouTube, posts...)})
	assert.Len(t, got.PlatformDetails[model.PlatformYouTube], 5)
	assert.Zero(t, got.TotalFollowers)
	assert.Zero(t, got.EngagementRate)
}

func TestAnalyze_Empty(t *testing.T) {
	got := Analyze(nil)
	assert.Zero(t, got.TotalFollowers)
	assert.Zero(t, got.TotalPosts)
	assert.Zero(t, got.EngagementRate)
	assert.NotNil(t, got.TopPosts)
	assert.Empty(t, got.PlatformDetails)
}

func TestEngagementRate(t *testing.T) {
	top := []model.SocialPost{{"likesCount": float64(30), "commentsCount": float64(10)}}
	tests := []struct {
		name      string
		followers int64
		posts     int64
		want      float64
	}{
		{"no followers", 0, 10, 0},
		{"no posts", 1000, 0, 0},
		{"both positive", 1000, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EngagementRate(top, tt.followers, tt.posts), 1e-9)
		})
	}
}

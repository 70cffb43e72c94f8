package social

import (
	"sort"

	"github.com/sells-group/competitor-intel/internal/model"
)

const (
	detailLimit = 5
	topPosts    = 3
	na          = "N/A"
)

// Analyze condenses per-platform outcomes into one SocialAnalysis. Failed
// outcomes count as no data. Platforms are visited in canonical order so
// the result is deterministic.
func Analyze(outcomes map[model.Platform]model.SocialOutcome) model.SocialAnalysis {
	a := model.SocialAnalysis{
		TopPosts:        []model.SocialPost{},
		PlatformDetails: map[model.Platform]model.PostDetails{},
	}

	var all []model.SocialPost
	for _, p := range model.Platforms {
		o, ok := outcomes[p]
		if !ok || !o.OK() || len(o.Posts) == 0 {
			continue
		}

		first := o.Posts[0]
		switch p {
		case model.PlatformFacebook:
			a.TotalFollowers += first.Int("fanCount")
			a.TotalPosts += int64(len(o.Posts))
		case model.PlatformInstagram:
			a.TotalFollowers += first.Int("followersCount")
			a.TotalPosts += first.Int("postsCount")
		case model.PlatformX:
			a.TotalFollowers += first.Int("followersCount")
			a.TotalPosts += first.Int("tweetsCount")
		}

		details := make(model.PostDetails, 0, min(len(o.Posts), detailLimit))
		for _, post := range o.Posts[:min(len(o.Posts), detailLimit)] {
			details = append(details, postDetail(p, post))
		}
		a.PlatformDetails[p] = details

		all = append(all, o.Posts...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Engagement() > all[j].Engagement()
	})
	a.TopPosts = append(a.TopPosts, all[:min(len(all), topPosts)]...)

	a.EngagementRate = EngagementRate(a.TopPosts, a.TotalFollowers, a.TotalPosts)
	return a
}

// EngagementRate is 100 * sum(likes+comments over top) / (followers*posts),
// or 0 when either total is not positive.
func EngagementRate(top []model.SocialPost, followers, posts int64) float64 {
	if followers <= 0 || posts <= 0 {
		return 0
	}
	var sum int64
	for _, p := range top {
		sum += p.Engagement()
	}
	return 100 * float64(sum) / (float64(followers) * float64(posts))
}

func postDetail(p model.Platform, post model.SocialPost) model.PostDetail {
	d := model.PostDetail{
		{Label: "URL", Value: post.String("url", na)},
		{Label: "Text", Value: post.String("text", na)},
		{Label: "Time Since Posted", Value: post.String("timeSincePosted", na)},
		{Label: "Author", Value: post.String("authorName", na)},
	}
	switch p {
	case model.PlatformLinkedIn:
		d = append(d,
			model.DetailField{Label: "Likes", Value: post.Int("numLikes")},
			model.DetailField{Label: "Shares", Value: post.Int("numShares")},
			model.DetailField{Label: "Comments", Value: post.Int("numComments")},
		)
	case model.PlatformInstagram:
		d = append(d,
			model.DetailField{Label: "Username", Value: post.String("username", na)},
			model.DetailField{Label: "Followers", Value: post.Int("followersCount")},
			model.DetailField{Label: "Biography", Value: post.String("biography", na)},
			model.DetailField{Label: "External Link", Value: post.String("externalUrl", na)},
		)
	case model.PlatformX:
		d = append(d,
			model.DetailField{Label: "Full Text", Value: post.String("full_text", na)},
			model.DetailField{Label: "Likes", Value: post.Int("favorite_count")},
			model.DetailField{Label: "Permalink", Value: "https://x.com" + post.String("permalink", "")},
		)
	case model.PlatformFacebook:
		d = append(d,
			model.DetailField{Label: "Facebook URL", Value: post.String("facebookUrl", na)},
			model.DetailField{Label: "Post Text", Value: post.String("text", na)},
			model.DetailField{Label: "Likes", Value: post.Int("likes")},
		)
	case model.PlatformYouTube:
		d = append(d,
			model.DetailField{Label: "Video Title", Value: post.String("title", na)},
			model.DetailField{Label: "Views", Value: post.Int("viewCount")},
			model.DetailField{Label: "Channel Name", Value: post.String("channelName", na)},
			model.DetailField{Label: "Subscribers", Value: post.Int("numberOfSubscribers")},
		)
	}
	return d
}

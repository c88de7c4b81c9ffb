package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/connector"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/types"
)

const (
	dataBaseURL      = "https://www.googleapis.com/youtube/v3"
	analyticsBaseURL = "https://youtubeanalytics.googleapis.com/v2"
	googleTokenURL   = "https://oauth2.googleapis.com/token"

	// Analytics metrics are read over a rolling window and summed per name.
	analyticsWindowDays = 28
)

// Connector reads channel and video statistics from the YouTube Data and
// Analytics APIs. The account's AccountID is the channel id.
type Connector struct {
	oauth *oauth2.Config
	http  *http.Client
	codec connector.TokenCodec
}

func New(cfg *cfgpkg.Config, codec connector.TokenCodec) *Connector {
	return &Connector{
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: googleTokenURL},
		},
		http:  &http.Client{Timeout: 30 * time.Second},
		codec: codec,
	}
}

func (c *Connector) Platform() types.Platform { return types.PlatformYouTube }

type channelsResponse struct {
	Items []struct {
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
			ViewCount       string `json:"viewCount"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type analyticsResponse struct {
	ColumnHeaders []struct {
		Name string `json:"name"`
	} `json:"columnHeaders"`
	Rows [][]float64 `json:"rows"`
}

type playlistItemsResponse struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (c *Connector) FetchProfile(ctx context.Context, account *models.SocialAccount) (*connector.ProfileStats, error) {
	token, err := c.codec.Decrypt(account.AccessToken)
	if err != nil {
		return nil, err
	}

	var channels channelsResponse
	u := fmt.Sprintf("%s/channels?part=statistics,contentDetails&id=%s", dataBaseURL, account.AccountID)
	if err := connector.DoJSON(ctx, c.http, u, token, &channels); err != nil {
		return nil, err
	}
	if len(channels.Items) == 0 {
		return nil, types.NewFault(types.FaultUpstreamPermanent, "channel not found")
	}
	ch := channels.Items[0]

	stats := &connector.ProfileStats{
		Followers: atoi(ch.Statistics.SubscriberCount),
		Posts:     atoi(ch.Statistics.VideoCount),
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -analyticsWindowDays)
	var analytics analyticsResponse
	u = fmt.Sprintf("%s/reports?ids=channel==%s&startDate=%s&endDate=%s&metrics=views,estimatedMinutesWatched,averageViewDuration",
		analyticsBaseURL, account.AccountID, start.Format(time.DateOnly), end.Format(time.DateOnly))
	if err := connector.DoJSON(ctx, c.http, u, token, &analytics); err != nil {
		return nil, err
	}

	// Sum each metric column over the window; views stand in for reach and
	// impressions at the channel level.
	sums := map[string]int64{}
	for _, row := range analytics.Rows {
		for i, header := range analytics.ColumnHeaders {
			if i < len(row) {
				sums[header.Name] += int64(row[i])
			}
		}
	}
	stats.Reach = sums["views"]
	stats.Impressions = sums["views"]
	return stats, nil
}

func (c *Connector) FetchRecentPosts(ctx context.Context, account *models.SocialAccount, limit int) ([]*connector.PostStats, error) {
	token, err := c.codec.Decrypt(account.AccessToken)
	if err != nil {
		return nil, err
	}

	var channels channelsResponse
	u := fmt.Sprintf("%s/channels?part=contentDetails&id=%s", dataBaseURL, account.AccountID)
	if err := connector.DoJSON(ctx, c.http, u, token, &channels); err != nil {
		return nil, err
	}
	if len(channels.Items) == 0 {
		return nil, types.NewFault(types.FaultUpstreamPermanent, "channel not found")
	}
	uploads := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads

	var playlist playlistItemsResponse
	u = fmt.Sprintf("%s/playlistItems?part=contentDetails&playlistId=%s&maxResults=%d", dataBaseURL, uploads, limit)
	if err := connector.DoJSON(ctx, c.http, u, token, &playlist); err != nil {
		return nil, err
	}
	if len(playlist.Items) == 0 {
		return nil, nil
	}

	ids := ""
	for i, item := range playlist.Items {
		if i > 0 {
			ids += ","
		}
		ids += item.ContentDetails.VideoID
	}

	var videos videosResponse
	u = fmt.Sprintf("%s/videos?part=snippet,statistics&id=%s", dataBaseURL, ids)
	if err := connector.DoJSON(ctx, c.http, u, token, &videos); err != nil {
		return nil, err
	}

	posts := make([]*connector.PostStats, 0, len(videos.Items))
	for _, v := range videos.Items {
		post := &connector.PostStats{
			PlatformPostID: v.ID,
			Caption:        v.Snippet.Title,
			MediaType:      types.MediaTypeVideo,
			Likes:          atoi(v.Statistics.LikeCount),
			Comments:       atoi(v.Statistics.CommentCount),
			// Views are the engagement denominator for YouTube.
			Reach:       atoi(v.Statistics.ViewCount),
			Impressions: atoi(v.Statistics.ViewCount),
		}
		if ts, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			post.PostedAt = ts
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// RefreshToken runs the long-lived refresh-token grant against Google's
// token endpoint.
func (c *Connector) RefreshToken(ctx context.Context, account *models.SocialAccount) (*connector.RefreshedToken, error) {
	refresh, err := c.codec.Decrypt(account.RefreshToken)
	if err != nil {
		return nil, err
	}
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			return nil, types.WrapFault(types.FaultUpstreamPermanent, "google token exchange", err)
		}
		return nil, types.WrapFault(types.FaultUpstreamTransient, "google token exchange", err)
	}
	return &connector.RefreshedToken{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}

func atoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/connector"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/types"
)

// Connector reads business-profile and media statistics from the Instagram
// Graph API. The account's AccountID is the IG business user id.
type Connector struct {
	baseURL string
	http    *http.Client
	codec   connector.TokenCodec
}

func New(cfg *cfgpkg.Config, codec connector.TokenCodec) *Connector {
	return &Connector{
		baseURL: cfg.Instagram.BaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		codec:   codec,
	}
}

func (c *Connector) Platform() types.Platform { return types.PlatformInstagram }

type profileResponse struct {
	FollowersCount int64 `json:"followers_count"`
	FollowsCount   int64 `json:"follows_count"`
	MediaCount     int64 `json:"media_count"`
}

type insightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value int64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

type mediaResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Caption       string `json:"caption"`
		MediaType     string `json:"media_type"`
		Timestamp     string `json:"timestamp"`
		LikeCount     int64  `json:"like_count"`
		CommentsCount int64  `json:"comments_count"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Connector) FetchProfile(ctx context.Context, account *models.SocialAccount) (*connector.ProfileStats, error) {
	token, err := c.codec.Decrypt(account.AccessToken)
	if err != nil {
		return nil, err
	}

	var profile profileResponse
	u := fmt.Sprintf("%s/%s?fields=followers_count,follows_count,media_count&access_token=%s",
		c.baseURL, account.AccountID, url.QueryEscape(token))
	if err := connector.DoJSON(ctx, c.http, u, "", &profile); err != nil {
		return nil, err
	}

	// Business insights over a 1-day window.
	var insights insightsResponse
	u = fmt.Sprintf("%s/%s/insights?metric=reach,impressions,profile_views,website_clicks&period=day&access_token=%s",
		c.baseURL, account.AccountID, url.QueryEscape(token))
	if err := connector.DoJSON(ctx, c.http, u, "", &insights); err != nil {
		return nil, err
	}

	stats := &connector.ProfileStats{
		Followers: profile.FollowersCount,
		Following: profile.FollowsCount,
		Posts:     profile.MediaCount,
	}
	for _, m := range insights.Data {
		var v int64
		if len(m.Values) > 0 {
			v = m.Values[len(m.Values)-1].Value
		}
		switch m.Name {
		case "reach":
			stats.Reach = v
		case "impressions":
			stats.Impressions = v
		case "profile_views":
			stats.ProfileViews = v
		case "website_clicks":
			stats.WebsiteClicks = v
		}
	}
	return stats, nil
}

func (c *Connector) FetchRecentPosts(ctx context.Context, account *models.SocialAccount, limit int) ([]*connector.PostStats, error) {
	token, err := c.codec.Decrypt(account.AccessToken)
	if err != nil {
		return nil, err
	}

	var media mediaResponse
	u := fmt.Sprintf("%s/%s/media?fields=id,caption,media_type,timestamp,like_count,comments_count&limit=%d&access_token=%s",
		c.baseURL, account.AccountID, limit, url.QueryEscape(token))
	if err := connector.DoJSON(ctx, c.http, u, "", &media); err != nil {
		return nil, err
	}

	posts := make([]*connector.PostStats, 0, len(media.Data))
	for _, m := range media.Data {
		post := &connector.PostStats{
			PlatformPostID: m.ID,
			Caption:        m.Caption,
			MediaType:      mediaType(m.MediaType),
			Likes:          m.LikeCount,
			Comments:       m.CommentsCount,
		}
		if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
			post.PostedAt = ts
		}

		// Per-post insights; reach doubles as the engagement denominator.
		var insights insightsResponse
		u = fmt.Sprintf("%s/%s/insights?metric=reach,impressions,saved,shares&access_token=%s",
			c.baseURL, m.ID, url.QueryEscape(token))
		if err := connector.DoJSON(ctx, c.http, u, "", &insights); err != nil {
			return nil, err
		}
		for _, ins := range insights.Data {
			var v int64
			if len(ins.Values) > 0 {
				v = ins.Values[0].Value
			}
			switch ins.Name {
			case "reach":
				post.Reach = v
			case "impressions":
				post.Impressions = v
			case "saved":
				post.Saves = v
			case "shares":
				post.Shares = v
			}
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// RefreshToken exchanges the current long-lived token for a fresh one.
func (c *Connector) RefreshToken(ctx context.Context, account *models.SocialAccount) (*connector.RefreshedToken, error) {
	token, err := c.codec.Decrypt(account.AccessToken)
	if err != nil {
		return nil, err
	}
	var resp refreshResponse
	u := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		c.baseURL, url.QueryEscape(token))
	if err := connector.DoJSON(ctx, c.http, u, "", &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, types.NewFault(types.FaultUpstreamPermanent, "token exchange returned no access_token")
	}
	return &connector.RefreshedToken{
		AccessToken: resp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

func mediaType(s string) types.MediaType {
	switch s {
	case "VIDEO":
		return types.MediaTypeVideo
	case "CAROUSEL_ALBUM":
		return types.MediaTypeCarousel
	default:
		return types.MediaTypeImage
	}
}

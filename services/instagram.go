package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"rawdahkids_go/config"
	"rawdahkids_go/database"
	"rawdahkids_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const instagramFeedCacheKey = "instagram:feed"

// InstagramPost is one mirrored media item.
type InstagramPost struct {
	ID        string `json:"id"`
	Caption   string `json:"caption,omitempty"`
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
	Permalink string `json:"permalink"`
	Timestamp string `json:"timestamp"`
}

type instagramMediaResponse struct {
	Data  []InstagramPost `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// InstagramService mirrors the institution's Instagram feed through the
// backend so the public site never sees the access token. Feed responses
// are cached in Redis; a cron job refreshes them.
type InstagramService struct {
	db      *gorm.DB
	redis   *redis.Client
	client  *http.Client
	apiBase string
}

func NewInstagramService() *InstagramService {
	return &InstagramService{
		db:      database.GetDB(),
		redis:   database.GetRedisClient(),
		client:  &http.Client{Timeout: 10 * time.Second},
		apiBase: config.AppConfig.InstagramAPIBase,
	}
}

// settings returns the single settings row, creating it when missing.
func (s *InstagramService) settings() (*models.InstagramSettings, error) {
	var settings models.InstagramSettings
	err := s.db.First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		settings = models.InstagramSettings{}
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateToken stores a new access token and account name.
func (s *InstagramService) UpdateToken(token, accountName string) error {
	settings, err := s.settings()
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"access_token": token,
		"account_name": accountName,
	}
	if err := s.db.Model(settings).Updates(updates).Error; err != nil {
		return err
	}
	// stale feed entries belong to the previous token
	if s.redis != nil {
		s.redis.Del(context.Background(), instagramFeedCacheKey)
	}
	return nil
}

// TestToken calls the /me endpoint and records the result on the settings row.
func (s *InstagramService) TestToken() (*models.InstagramSettings, error) {
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}
	if settings.AccessToken == "" {
		return nil, fmt.Errorf("no access token configured")
	}

	endpoint := fmt.Sprintf("%s/me?fields=id,username&access_token=%s",
		s.apiBase, url.QueryEscape(settings.AccessToken))
	resp, err := s.client.Get(endpoint)

	now := time.Now()
	ok := err == nil && resp != nil && resp.StatusCode == http.StatusOK
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	s.db.Model(settings).Updates(map[string]interface{}{
		"last_tested_at": now,
		"last_test_ok":   ok,
	})

	if err != nil {
		return nil, fmt.Errorf("token test request failed: %v", err)
	}
	if !ok {
		return nil, fmt.Errorf("token rejected by Instagram (status %d)", resp.StatusCode)
	}
	return settings, nil
}

// GetFeed returns the mirrored feed, from the Redis cache when fresh.
func (s *InstagramService) GetFeed(limit int) ([]InstagramPost, error) {
	if limit <= 0 || limit > 50 {
		limit = 12
	}

	if s.redis != nil {
		if cached, err := s.redis.Get(context.Background(), instagramFeedCacheKey).Result(); err == nil {
			var posts []InstagramPost
			if err := json.Unmarshal([]byte(cached), &posts); err == nil {
				if len(posts) > limit {
					posts = posts[:limit]
				}
				return posts, nil
			}
		}
	}

	return s.RefreshFeed(limit)
}

// RefreshFeed fetches the feed from the Instagram API and re-populates the
// cache. Called directly on cache miss and periodically from the scheduler.
func (s *InstagramService) RefreshFeed(limit int) ([]InstagramPost, error) {
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}
	if settings.AccessToken == "" {
		return nil, fmt.Errorf("no access token configured")
	}
	if limit <= 0 || limit > 50 {
		limit = 12
	}

	posts, err := s.fetchFeed(settings.AccessToken, limit)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(posts); err == nil {
			if err := s.redis.Set(context.Background(), instagramFeedCacheKey, data,
				config.AppConfig.InstagramCacheTTL).Err(); err != nil {
				logrus.WithError(err).Warn("Failed to cache Instagram feed")
			}
		}
	}

	return posts, nil
}

// fetchFeed calls the media endpoint and parses the response. Instagram puts
// errors in the body, so the payload is inspected before the status code.
func (s *InstagramService) fetchFeed(token string, limit int) ([]InstagramPost, error) {
	endpoint := fmt.Sprintf("%s/me/media?fields=id,caption,media_type,media_url,permalink,timestamp&limit=%d&access_token=%s",
		s.apiBase, limit, url.QueryEscape(token))
	resp, err := s.client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %v", err)
	}

	var parsed instagramMediaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %v", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("instagram error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram returned status %d", resp.StatusCode)
	}

	return parsed.Data, nil
}

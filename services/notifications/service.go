package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"rawdahkids_go/config"
	"rawdahkids_go/database"
	"rawdahkids_go/models"
	"rawdahkids_go/utils"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Queue item structure stored in Redis. Kept minimal to reduce payload size;
// one item may target many users with the same payload. If Redis is down the
// service falls back to a direct DB insert, so the DB remains the source of
// truth either way.

type queuedNotification struct {
	UserIDs   []uint    `json:"user_ids"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Channels  []string  `json:"channels,omitempty"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const redisListKey = "notifications:queue"

// Service exposes notification creation with an optional Redis queue.
// If Redis is disabled or unavailable, it performs direct DB inserts.
type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool
	wsHub    WSHub
}

// WSHub is the WebSocket broadcasting interface satisfied by the hub.
type WSHub interface {
	BroadcastToUser(userID uint, message interface{})
}

// LinePusher delivers a text message to a LINE user id. Wired from main to
// avoid an import cycle with the services package.
type LinePusher interface {
	PushMessage(lineID string, message string) error
}

// defaultHub lets services created anywhere in the app (controllers,
// schedulers) broadcast over the same hub without manual wiring.
var defaultHub WSHub

var linePusher LinePusher

// SetDefaultWSHub sets the package-level hub used by new Service instances.
func SetDefaultWSHub(h WSHub) {
	defaultHub = h
}

// SetLinePusher sets the LINE delivery client used for the "line" channel.
func SetLinePusher(p LinePusher) {
	linePusher = p
}

func NewService() *Service {
	return &Service{
		db:       database.GetDB(),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisNotifications && database.GetRedisClient() != nil,
		wsHub:    defaultHub,
	}
}

// SetWebSocketHub overrides the hub for this instance.
func (s *Service) SetWebSocketHub(hub WSHub) {
	s.wsHub = hub
}

// normalizeChannels keeps only allowed values and ensures a default channel
func normalizeChannels(in []string) []string {
	if len(in) == 0 {
		return []string{"normal"}
	}
	allowed := map[string]struct{}{"normal": {}, "popup": {}, "line": {}}
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, ch := range in {
		if _, ok := allowed[ch]; ok {
			if _, dup := seen[ch]; !dup {
				out = append(out, ch)
				seen[ch] = struct{}{}
			}
		}
	}
	if len(out) == 0 {
		out = []string{"normal"}
	}
	return out
}

// Queued builds a minimal queuedNotification.
func Queued(title, message, typ string, channels ...string) queuedNotification {
	ch := normalizeChannels(channels)
	return queuedNotification{Title: title, Message: message, Type: typ, Channels: ch}
}

// QueuedWithData attaches a structured data payload (deep-links, ids).
func QueuedWithData(title, message, typ string, data any, channels ...string) queuedNotification {
	ch := normalizeChannels(channels)
	return queuedNotification{Title: title, Message: message, Type: typ, Channels: ch, Data: data}
}

// EnqueueOrCreate stores notifications via the Redis queue if enabled, else
// inserts directly.
func (s *Service) EnqueueOrCreate(userIDs []uint, n queuedNotification) error {
	if len(userIDs) == 0 {
		return errors.New("no user ids")
	}
	n.UserIDs = userIDs
	n.CreatedAt = time.Now().UTC()

	if s.useRedis {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(context.Background(), redisListKey, b).Err(); err == nil {
			return nil
		}
		log.Printf("[notif] Redis queue failed, falling back to direct insert: %v", err)
	}

	return s.createDirect(userIDs, n)
}

// createDirect writes directly to the DB (used by the worker or as fallback),
// then fans out over WebSocket and LINE.
func (s *Service) createDirect(userIDs []uint, n queuedNotification) error {
	if len(userIDs) == 0 {
		return nil
	}

	channels := normalizeChannels(n.Channels)
	// Always set channels JSON; MySQL forbids a default on JSON columns
	channelsJSON, err := json.Marshal(channels)
	if err != nil {
		channelsJSON = []byte(`["normal"]`)
	}
	var dataJSON []byte
	if n.Data != nil {
		if b, err2 := json.Marshal(n.Data); err2 == nil {
			dataJSON = b
		}
	}

	notifs := make([]models.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		notifs = append(notifs, models.Notification{
			UserID:   uid,
			Title:    n.Title,
			Message:  n.Message,
			Type:     n.Type,
			Read:     false,
			Channels: channelsJSON,
			Data:     dataJSON,
		})
	}

	if err := s.db.Create(&notifs).Error; err != nil {
		return err
	}

	wantsLine := false
	for _, ch := range channels {
		if ch == "line" {
			wantsLine = true
		}
	}

	for _, notif := range notifs {
		if s.wsHub != nil {
			s.db.Preload("User").First(&notif, notif.ID)
			dto := utils.ToNotificationDTO(notif)
			s.wsHub.BroadcastToUser(notif.UserID, map[string]interface{}{
				"type": "notification",
				"data": dto,
			})
		}

		if wantsLine && linePusher != nil {
			var user models.User
			if err := s.db.Select("id", "line_id").First(&user, notif.UserID).Error; err == nil && user.LineID != "" {
				if err := linePusher.PushMessage(user.LineID, n.Title+"\n"+n.Message); err != nil {
					log.Printf("[notif] LINE push failed for user %d: %v", notif.UserID, err)
				}
			}
		}
	}

	return nil
}

// StartWorker starts a background worker polling the Redis queue and flushing
// batches to the DB.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		log.Println("[notif] Redis notifications disabled; worker not started")
		return
	}
	go func() {
		log.Println("[notif] Redis notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		batchSize := 200
		for {
			select {
			case <-stop:
				log.Println("[notif] Worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, batchSize)
			}
		}
	}()
}

// flushBatch drains up to a few sub-batches from the queue per tick.
func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	for i := 0; i < 5; i++ {
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return
		}
		// Trim immediately to avoid duplicates (best-effort)
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			log.Printf("[notif] LTrim failed: %v", err)
		}
		for _, raw := range vals {
			var q queuedNotification
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				continue
			}
			if err := s.createDirect(q.UserIDs, q); err != nil {
				log.Printf("[notif] DB insert failed: %v", err)
			}
		}
		if len(vals) < batchSize {
			return
		}
	}
}

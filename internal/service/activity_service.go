package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/events"
)

// ActivityEntry is a single item in a user's recent-activity feed.
type ActivityEntry struct {
	EventID   string           `json:"event_id"`
	Type      events.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
}

// ActivityService maintains a capped per-user activity feed in Redis, fed
// by domain events.
type ActivityService struct {
	client   *redis.Client
	logger   *zap.Logger
	feedSize int
}

// NewActivityService creates the service.
func NewActivityService(client *redis.Client, logger *zap.Logger, cfg config.ActivityConfig) *ActivityService {
	size := cfg.FeedSize
	if size <= 0 {
		size = 50
	}
	return &ActivityService{client: client, logger: logger, feedSize: size}
}

// RegisterHandlers subscribes to the events worth surfacing to users.
func (a *ActivityService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventUserRegistered, a.record)
	dispatcher.Subscribe(events.EventTaskCreated, a.record)
	dispatcher.Subscribe(events.EventTaskCompleted, a.record)
	dispatcher.Subscribe(events.EventTaskDeleted, a.record)
}

// ListRecent returns the newest feed entries for a user.
func (a *ActivityService) ListRecent(ctx context.Context, userID string) ([]ActivityEntry, error) {
	if a.client == nil {
		return []ActivityEntry{}, nil
	}
	raw, err := a.client.LRange(ctx, feedKey(userID), 0, int64(a.feedSize-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]ActivityEntry, 0, len(raw))
	for _, item := range raw {
		var entry ActivityEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			a.logger.Warn("skipping unreadable activity entry", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (a *ActivityService) record(ctx context.Context, event events.Event) error {
	if a.client == nil || event.UserID == "" {
		return nil
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		a.logger.Warn("failed to encode activity payload", zap.Error(err))
		payload = nil
	}
	entry := ActivityEntry{
		EventID:   event.ID,
		Type:      event.Type,
		Timestamp: event.Timestamp,
		Payload:   payload,
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := feedKey(event.UserID)
	pipe := a.client.TxPipeline()
	pipe.LPush(ctx, key, encoded)
	pipe.LTrim(ctx, key, 0, int64(a.feedSize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		a.logger.Warn("failed to record activity", zap.String("user_id", event.UserID), zap.Error(err))
		return err
	}
	return nil
}

func feedKey(userID string) string {
	return fmt.Sprintf("activity:%s", userID)
}

// internal/store/conversation_redis.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/models"
)

const maxStoredTurns = 200

// RedisConversationStore keeps conversation metadata as JSON values and
// turns as an append-only list, plus a per-user pointer to the most recent
// conversation.
type RedisConversationStore struct {
	client       *redis.Client
	activeWindow time.Duration
	now          func() time.Time
}

func NewRedisConversationStore(client *redis.Client, activeWindow time.Duration) *RedisConversationStore {
	if activeWindow <= 0 {
		activeWindow = 24 * time.Hour
	}
	return &RedisConversationStore{
		client:       client,
		activeWindow: activeWindow,
		now:          time.Now,
	}
}

func conversationKey(id string) string { return fmt.Sprintf("conversation:%s", id) }
func turnsKey(id string) string        { return fmt.Sprintf("conversation:%s:turns", id) }
func latestKey(userID string) string   { return fmt.Sprintf("user:%s:latest-conversation", userID) }

func (s *RedisConversationStore) GetOrCreate(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	if conversationID != "" {
		conv, err := s.load(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if conv != nil && conv.UserID == userID {
			return conv, nil
		}
		// Unknown id or not this user's conversation: fall through.
	}

	if id, err := s.client.Get(ctx, latestKey(userID)).Result(); err == nil && id != "" {
		conv, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv != nil && conv.UserID == userID && conv.ActiveWithin(s.activeWindow, s.now()) {
			return conv, nil
		}
	} else if err != nil && err != redis.Nil {
		return nil, stderrors.NewConversationStoreError(err)
	}

	return s.create(ctx, userID)
}

func (s *RedisConversationStore) create(ctx context.Context, userID string) (*models.Conversation, error) {
	now := s.now()
	conv := &models.Conversation{
		ID:           uuid.New().String(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, latestKey(userID), conv.ID, 0).Err(); err != nil {
		return nil, stderrors.NewConversationStoreError(err)
	}
	return conv, nil
}

func (s *RedisConversationStore) AppendTurn(ctx context.Context, conversationID, role, content string, metadata map[string]interface{}) error {
	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return stderrors.NewNotFoundError("conversation", conversationID)
	}

	turn := models.ConversationTurn{
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return stderrors.NewConversationStoreError(err)
	}
	if err := s.client.RPush(ctx, turnsKey(conversationID), data).Err(); err != nil {
		return stderrors.NewConversationStoreError(err)
	}
	// Bound unbounded growth; history reads never need more than this.
	if err := s.client.LTrim(ctx, turnsKey(conversationID), -maxStoredTurns, -1).Err(); err != nil {
		return stderrors.NewConversationStoreError(err)
	}

	conv.LastActivity = turn.CreatedAt
	if err := s.save(ctx, conv); err != nil {
		return err
	}
	return s.client.Set(ctx, latestKey(conv.UserID), conv.ID, 0).Err()
}

func (s *RedisConversationStore) RecentTurns(ctx context.Context, conversationID string, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := s.client.LRange(ctx, turnsKey(conversationID), int64(-limit), -1).Result()
	if err != nil {
		return nil, stderrors.NewConversationStoreError(err)
	}

	turns := make([]models.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			// A corrupt entry is skipped rather than poisoning the history.
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisConversationStore) load(ctx context.Context, id string) (*models.Conversation, error) {
	data, err := s.client.Get(ctx, conversationKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, stderrors.NewConversationStoreError(err)
	}
	var conv models.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, stderrors.NewConversationStoreError(err)
	}
	return &conv, nil
}

func (s *RedisConversationStore) save(ctx context.Context, conv *models.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return stderrors.NewConversationStoreError(err)
	}
	if err := s.client.Set(ctx, conversationKey(conv.ID), data, 0).Err(); err != nil {
		return stderrors.NewConversationStoreError(err)
	}
	return nil
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"jalsaathi/internal/logging"
	"jalsaathi/internal/models"
	"jalsaathi/internal/redis"
)

const (
	redisInvalidateChannel = "worker:invalidate"
	redisTranscriptPrefix  = "worker:conversation:"
	defaultTranscriptTTL   = 30 * time.Minute
	redisOpTimeout         = 2 * time.Second
)

const (
	scopeTurns   = "turns"
	scopeDeleted = "deleted"
)

type invalidateMessage struct {
	ConversationID string `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
	Scope          string `json:"scope"`
	Origin         string `json:"origin"`
}

type cachedTranscript struct {
	Conversation models.Conversation `json:"conversation"`
	Turns        []*models.Turn      `json:"turns"`
}

// transcriptCache mirrors live transcripts into redis so another instance can
// resume a conversation without a database read. A nil client disables it.
type transcriptCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newTranscriptCache(client *redis.Client, ttl time.Duration) *transcriptCache {
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	return &transcriptCache{client: client, ttl: ttl}
}

func (c *transcriptCache) enabled() bool {
	return c != nil && c.client != nil && c.client.Raw() != nil
}

func transcriptKey(conversationID string) string {
	return redisTranscriptPrefix + conversationID
}

func (c *transcriptCache) load(userID int64, conversationID string) (*models.Conversation, []*models.Turn, bool) {
	if !c.enabled() {
		return nil, nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	raw, err := c.client.Get(ctx, transcriptKey(conversationID))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			logging.L().WithError(err).WithField("conversation", conversationID).Warn("transcript cache read failed")
		}
		return nil, nil, false
	}
	var cached cachedTranscript
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		logging.L().WithError(err).WithField("conversation", conversationID).Warn("transcript cache decode failed")
		return nil, nil, false
	}
	if cached.Conversation.ID != conversationID || cached.Conversation.UserID != userID {
		return nil, nil, false
	}
	return &cached.Conversation, cached.Turns, true
}

func (c *transcriptCache) store(record *models.Conversation, turns []*models.Turn) {
	if !c.enabled() || record == nil {
		return
	}
	payload, err := json.Marshal(cachedTranscript{Conversation: *record, Turns: turns})
	if err != nil {
		logging.L().WithError(err).Warn("transcript cache encode failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Set(ctx, transcriptKey(record.ID), payload, c.ttl); err != nil {
		logging.L().WithError(err).WithField("conversation", record.ID).Warn("transcript cache write failed")
	}
}

func (c *transcriptCache) invalidate(conversationID string) {
	if !c.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Del(ctx, transcriptKey(conversationID)); err != nil {
		logging.L().WithError(err).WithField("conversation", conversationID).Warn("transcript cache delete failed")
	}
}

// publishInvalidation tells other instances to drop their actor for a conversation.
func (c *transcriptCache) publishInvalidation(msg invalidateMessage) {
	if !c.enabled() {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logging.L().WithError(err).Warn("worker invalidation marshal failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Publish(ctx, redisInvalidateChannel, payload); err != nil {
		logging.L().WithError(err).Warn("worker publish invalidation failed")
	}
}

// startListener delivers invalidation messages to handler until the returned
// stop func is called. stop waits for the listener goroutine to exit.
func (c *transcriptCache) startListener(handler func(invalidateMessage)) func() {
	if !c.enabled() || handler == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	pubsub, err := c.client.Subscribe(ctx, redisInvalidateChannel)
	if err != nil {
		cancel()
		logging.L().WithError(err).Warn("worker invalidation subscribe failed")
		return func() {}
	}
	// wait for the subscription so messages published right after start are seen
	if _, err := pubsub.Receive(ctx); err != nil {
		logging.L().WithError(err).Warn("worker invalidation subscribe confirm failed")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var inv invalidateMessage
				if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
					logging.L().WithError(err).Warn("worker invalidation decode failed")
					continue
				}
				handler(inv)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
			wg.Wait()
		})
	}
}

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"jalsaathi/internal/i18n"
	"jalsaathi/internal/models"
	"jalsaathi/internal/redis"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestTranscriptCacheRoundTrip(t *testing.T) {
	client, mr := newTestRedis(t)
	cache := newTranscriptCache(client, time.Minute)

	record := &models.Conversation{ID: "c1", UserID: 7, Locale: "hi"}
	turns := []*models.Turn{{ID: "t1", Seq: 1, Text: "namaste", Sender: models.SenderBot}}
	cache.store(record, turns)
	if !mr.Exists(transcriptKey("c1")) {
		t.Fatalf("transcript not written to redis")
	}
	if ttl := mr.TTL(transcriptKey("c1")); ttl != time.Minute {
		t.Fatalf("ttl = %s, want 1m", ttl)
	}

	gotRecord, gotTurns, ok := cache.load(7, "c1")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if gotRecord.Locale != "hi" || len(gotTurns) != 1 || gotTurns[0].Text != "namaste" {
		t.Fatalf("cached = %+v %+v", gotRecord, gotTurns)
	}

	if _, _, ok := cache.load(8, "c1"); ok {
		t.Fatalf("cache served another user's transcript")
	}

	cache.invalidate("c1")
	if _, _, ok := cache.load(7, "c1"); ok {
		t.Fatalf("cache hit after invalidate")
	}
}

func TestNilTranscriptCacheIsNoOp(t *testing.T) {
	cache := newTranscriptCache(nil, 0)
	cache.store(&models.Conversation{ID: "c1"}, nil)
	if _, _, ok := cache.load(1, "c1"); ok {
		t.Fatalf("nil cache reported a hit")
	}
	cache.publishInvalidation(invalidateMessage{ConversationID: "c1"})
	stop := cache.startListener(func(invalidateMessage) {})
	stop()
}

func TestManagersShareTranscriptThroughRedis(t *testing.T) {
	_, store, userID := openTestStore(t)
	client, _ := newTestRedis(t)
	ctx := context.Background()

	first := newTestManager(t, store, Config{Cache: client, CacheTTL: time.Minute})
	second := newTestManager(t, store, Config{Cache: client, CacheTTL: time.Minute})

	cid := mustCreate(t, first, userID, i18n.EN).Conversation.ID
	stream, err := first.SubmitText(ctx, userID, cid, "water", "")
	if err != nil {
		t.Fatalf("submit on first: %v", err)
	}
	drain(t, stream)

	if got := mustGet(t, second, userID, cid); len(got.Turns) != 3 {
		t.Fatalf("second sees %d turns, want 3", len(got.Turns))
	}

	stream, err = second.SubmitText(ctx, userID, cid, "help", "")
	if err != nil {
		t.Fatalf("submit on second: %v", err)
	}
	drain(t, stream)

	// the second instance's write tells the first to drop its stale actor
	waitFor(t, "first manager to drop its actor", func() bool { return first.Active() == 0 })

	got := mustGet(t, first, userID, cid)
	if len(got.Turns) != 5 || got.Turns[4].Seq != 5 {
		t.Fatalf("first reloaded %d turns", len(got.Turns))
	}
}

func TestDeletePropagatesToOtherManagers(t *testing.T) {
	_, store, userID := openTestStore(t)
	client, mr := newTestRedis(t)
	ctx := context.Background()

	first := newTestManager(t, store, Config{Cache: client})
	second := newTestManager(t, store, Config{Cache: client})

	cid := mustCreate(t, first, userID, i18n.EN).Conversation.ID
	mustGet(t, second, userID, cid)

	if err := first.Delete(ctx, userID, cid); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists(transcriptKey(cid)) {
		t.Fatalf("cached transcript survived delete")
	}
	waitFor(t, "second manager to drop its actor", func() bool { return second.Active() == 0 })

	if _, err := second.Get(ctx, userID, cid); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("get on second after delete: got %v", err)
	}
}

package flags

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"jalsaathi/internal/config"
	"jalsaathi/internal/redis"
	"jalsaathi/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func mustGet(t *testing.T, store Store, scope, name string) bool {
	t.Helper()
	got, err := store.Get(context.Background(), scope, name)
	if err != nil {
		t.Fatalf("get %s/%s: %v", scope, name, err)
	}
	return got
}

func mustSet(t *testing.T, store Store, scope, name string, value bool) {
	t.Helper()
	if err := store.Set(context.Background(), scope, name, value); err != nil {
		t.Fatalf("set %s/%s: %v", scope, name, err)
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()

	if mustGet(t, store, UserScope(1), "welcomed") {
		t.Fatalf("unset flag read true")
	}

	mustSet(t, store, UserScope(1), "welcomed", true)
	if !mustGet(t, store, UserScope(1), "welcomed") {
		t.Fatalf("flag not set")
	}
	if mustGet(t, store, UserScope(2), "welcomed") {
		t.Fatalf("flag leaked into another scope")
	}

	mustSet(t, store, UserScope(1), "welcomed", false)
	if mustGet(t, store, UserScope(1), "welcomed") {
		t.Fatalf("flag not cleared")
	}

	if err := store.Set(context.Background(), "", "welcomed", true); err == nil {
		t.Fatalf("expected error for empty scope")
	}
	if _, err := store.Get(context.Background(), UserScope(1), " "); err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLStore(t *testing.T) {
	exerciseStore(t, NewSQL(openTestDB(t), "sqlite3"))
}

func TestRedisStore(t *testing.T) {
	client, mr := newRedis(t)
	exerciseStore(t, NewRedis(client))
	v, err := mr.Get("flags:user:1:welcomed")
	if err != nil || v != "0" {
		t.Fatalf("stored value = %q err=%v, want \"0\"", v, err)
	}
}

func TestLayeredReadsThroughAndFillsCache(t *testing.T) {
	client, mr := newRedis(t)
	primary := NewSQL(openTestDB(t), "sqlite3")
	mustSet(t, primary, UserScope(7), "welcomed", true)

	layered := NewLayered(primary, NewRedis(client))
	if !mustGet(t, layered, UserScope(7), "welcomed") {
		t.Fatalf("layered store missed the primary value")
	}
	if !mr.Exists("flags:user:7:welcomed") {
		t.Fatalf("miss did not fill the cache")
	}

	exerciseStore(t, layered)
}

func TestLayeredSurvivesCacheOutage(t *testing.T) {
	client, mr := newRedis(t)
	layered := NewLayered(NewMemory(), NewRedis(client))
	mr.Close()

	mustSet(t, layered, UserScope(3), "welcomed", true)
	if !mustGet(t, layered, UserScope(3), "welcomed") {
		t.Fatalf("flag lost while cache is down")
	}
}

func TestScopedAdaptsStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	scoped := For(mem, UserScope(9))

	if err := scoped.SetFlag(ctx, "welcomed", true); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if !mustGet(t, mem, UserScope(9), "welcomed") {
		t.Fatalf("scoped write not visible in the store")
	}

	if _, err := For(nil, "x").GetFlag(ctx, "welcomed"); err == nil {
		t.Fatalf("expected error from nil store")
	}
}

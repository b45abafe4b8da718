package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"jalsaathi/internal/config"
	"jalsaathi/internal/redis"
	"jalsaathi/internal/storage"
)

func TestAuthIssueValidateRevoke(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 1)

	svc := NewService(db, nil, time.Hour)
	ctx := context.Background()
	token, err := svc.IssueToken(ctx, 1)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	userID, err := svc.ValidateToken(ctx, token)
	if err != nil || userID != 1 {
		t.Fatalf("ValidateToken failed: id=%d err=%v", userID, err)
	}
	if err := svc.RevokeToken(ctx, token); err != nil {
		t.Fatalf("RevokeToken error: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token after revoke, got %v", err)
	}

	token2, err := svc.IssueToken(ctx, 1)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if err := svc.RevokeUserTokens(ctx, 1); err != nil {
		t.Fatalf("RevokeUserTokens error: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, token2); err == nil {
		t.Fatalf("expected error after revoke all")
	}
	if _, err := svc.ValidateToken(ctx, ""); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("expected token required, got %v", err)
	}
}

func TestAuthValidateExpiredToken(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 2)

	svc := NewService(db, nil, time.Hour)
	token, err := svc.IssueToken(context.Background(), 2)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	if _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expiration error, got %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM user_tokens WHERE token = ?`, token).Scan(&count); err != nil {
		t.Fatalf("query tokens: %v", err)
	}
	if count != 0 {
		t.Fatalf("expired token not purged")
	}
}

func TestAuthTokenCacheUsesRedis(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 10)

	mr := miniredis.RunT(t)
	cacheClient := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer cacheClient.Close()

	svc := NewService(db, cacheClient, time.Hour)
	ctx := context.Background()

	token, err := svc.IssueToken(ctx, 10)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	key := redisTokenPrefix + token
	got, err := mr.Get(key)
	if err != nil {
		t.Fatalf("get redis token: %v", err)
	}
	if got != "10" {
		t.Fatalf("expected user 10 in redis, got %s", got)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("expected token ttl of an hour, got %v", ttl)
	}

	// the cache answers even once the row is gone
	if _, err := db.Exec(`DELETE FROM user_tokens WHERE token = ?`, token); err != nil {
		t.Fatalf("delete row: %v", err)
	}
	userID, err := svc.ValidateToken(ctx, token)
	if err != nil || userID != 10 {
		t.Fatalf("ValidateToken via redis failed: id=%d err=%v", userID, err)
	}

	if err := svc.RevokeToken(ctx, token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected redis key deleted")
	}
	if _, err := svc.ValidateToken(ctx, token); err == nil {
		t.Fatalf("expected error after revoke")
	}

	token2, err := svc.IssueToken(ctx, 10)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := svc.RevokeUserTokens(ctx, 10); err != nil {
		t.Fatalf("RevokeUserTokens: %v", err)
	}
	if mr.Exists(redisTokenPrefix + token2) {
		t.Fatalf("expected cached token dropped with user tokens")
	}
}

func TestMiddlewareAndCSRF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 3)

	svc := NewService(db, nil, time.Hour)
	token, err := svc.IssueToken(context.Background(), 3)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	router := gin.New()
	router.Use(svc.Middleware(), svc.CSRFMiddleware())
	handler := func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	}
	router.GET("/me", handler)
	router.POST("/me", handler)

	cases := []struct {
		name   string
		method string
		setup  func(r *http.Request)
		want   int
	}{
		{"no token", http.MethodGet, func(*http.Request) {}, http.StatusUnauthorized},
		{"bad token", http.MethodGet, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer get", http.MethodGet, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"bearer post skips csrf", http.MethodPost, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"cookie post without csrf", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: svc.AuthCookieName(), Value: token})
		}, http.StatusForbidden},
		{"cookie post with csrf", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: svc.AuthCookieName(), Value: token})
			r.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: "abc"})
			r.Header.Set(svc.CSRFHeaderName(), "abc")
		}, http.StatusOK},
		{"cookie post with mismatched csrf", http.MethodPost, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: svc.AuthCookieName(), Value: token})
			r.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: "abc"})
			r.Header.Set(svc.CSRFHeaderName(), "abd")
		}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/me", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {
				DSN: ":memory:",
			},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func insertUser(t *testing.T, db *sql.DB, id int64) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, '', ?)`,
		id, "citizen_"+time.Now().Format("150405.000"), time.Now().UTC())
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

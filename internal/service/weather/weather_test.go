package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"jalsaathi/internal/redis"
)

func TestDeriveThresholds(t *testing.T) {
	cases := []struct {
		name    string
		reading Reading
		want    []string
	}{
		{"mild", Reading{Temperature: 28, Humidity: 60}, nil},
		{"boundary values raise nothing", Reading{Temperature: 35, Humidity: 30}, nil},
		{"hot", Reading{Temperature: 38.5, Humidity: 45}, []string{"high"}},
		{"dry", Reading{Temperature: 20, Humidity: 12}, []string{"warning"}},
		{"hot and dry", Reading{Temperature: 41, Humidity: 10}, []string{"high", "warning"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alerts := Derive(tc.reading)
			var got []string
			for _, a := range alerts {
				got = append(got, a.Severity)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("severities = %v, want %v", got, tc.want)
			}
			if alerts == nil {
				t.Fatalf("Derive returned nil, want empty slice")
			}
		})
	}
}

func TestAlertsQueriesAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		q := r.URL.Query()
		if r.URL.Path != "/weather" || q.Get("appid") != "secret" || q.Get("units") != "metric" || q.Get("lat") != "12.9716" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"main":{"temp":36.2,"humidity":25}}`))
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	cache := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer cache.Close()

	client := NewClient("secret", srv.URL, time.Second, cache)
	ctx := context.Background()

	alerts, err := client.Alerts(ctx, 12.9716, 77.5946)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 2 || alerts[0].Type != "temperature" || alerts[1].Type != "humidity" {
		t.Fatalf("alerts = %+v", alerts)
	}

	again, err := client.Alerts(ctx, 12.9716, 77.5946)
	if err != nil {
		t.Fatalf("cached alerts: %v", err)
	}
	if !reflect.DeepEqual(again, alerts) {
		t.Fatalf("cached alerts = %+v, want %+v", again, alerts)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("upstream hits = %d, want 1", n)
	}
	if !mr.Exists(cacheKey(12.9716, 77.5946)) {
		t.Fatalf("alerts not cached in redis")
	}
}

func TestAlertsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := NewClient("", srv.URL, time.Second, nil).Alerts(context.Background(), 1, 1)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("no key: got %v, want ErrNotConfigured", err)
	}

	client := NewClient("bad", srv.URL, time.Second, nil)
	if _, err := client.Alerts(context.Background(), 91, 0); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("bad latitude: got %v, want ErrInvalidCoordinate", err)
	}

	_, err = client.Alerts(context.Background(), 12, 77)
	if err == nil || !strings.Contains(err.Error(), "Invalid API key") {
		t.Fatalf("upstream error: got %v", err)
	}
}

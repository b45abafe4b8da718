package chat

import (
	"context"
	"errors"
	"time"

	"jalsaathi/internal/i18n"
	"jalsaathi/internal/models"
)

// Localizer resolves display strings. i18n.Provider satisfies it.
type Localizer interface {
	Localize(key string, locale i18n.Locale) string
}

// Router switches the host application's active view.
type Router interface {
	RouteTo(token string)
}

// Notifier raises user-visible notifications outside the transcript.
type Notifier interface {
	Notify(category, titleKey, bodyKey string)
}

// FlagStore persists boolean flags such as "welcomed".
type FlagStore interface {
	GetFlag(ctx context.Context, name string) (bool, error)
	SetFlag(ctx context.Context, name string, value bool) error
}

// Geolocator answers a single position query.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Scheduler runs fn after delay. The returned func cancels it if it has not
// fired yet.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

// Listener observes transcript and state changes.
type Listener interface {
	OnEvent(Event)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(token string)

func (f RouterFunc) RouteTo(token string) { f(token) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(category, titleKey, bodyKey string)

func (f NotifierFunc) Notify(category, titleKey, bodyKey string) { f(category, titleKey, bodyKey) }

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Position is a WGS84 coordinate.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ErrLocationUnavailable is reported when no position could be obtained.
var ErrLocationUnavailable = errors.New("location unavailable")

// LocationResult is the outcome of one geolocation query.
type LocationResult struct {
	Position Position
	Err      error
}

// OK reports whether the query produced a position.
func (r LocationResult) OK() bool { return r.Err == nil }

// Locate queries geo once. A non-positive timeout means no deadline; an
// elapsed deadline is reported as a failure.
func Locate(ctx context.Context, geo Geolocator, timeout time.Duration) LocationResult {
	if geo == nil {
		return LocationResult{Err: ErrLocationUnavailable}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type answer struct {
		pos Position
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		pos, err := geo.CurrentPosition(ctx)
		ch <- answer{pos: pos, err: err}
	}()
	select {
	case a := <-ch:
		if a.err != nil {
			return LocationResult{Err: a.err}
		}
		return LocationResult{Position: a.pos}
	case <-ctx.Done():
		return LocationResult{Err: ctx.Err()}
	}
}

// StaticPosition is a Geolocator that already knows its answer, e.g. a
// position reported by a browser.
type StaticPosition struct {
	Position Position
	Err      error
}

func (s StaticPosition) CurrentPosition(context.Context) (Position, error) {
	return s.Position, s.Err
}

// EventKind enumerates Listener events.
type EventKind string

const (
	EventTurnAppended EventKind = "turn"
	EventTurnUpdated  EventKind = "relocalized"
	EventStateChanged EventKind = "state"
)

// Event describes one observable change. Turn is a copy.
type Event struct {
	Kind  EventKind
	Turn  *models.Turn
	State State
}

// Notification categories raised through Notifier.
const (
	NotifyLocationFailed = "LOCATION_FAILED"
	NotifyLocationShared = "LOCATION_SHARED"
)

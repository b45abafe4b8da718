package worker

import (
	"context"
	"time"

	"jalsaathi/internal/chat"
	"jalsaathi/internal/i18n"
	"jalsaathi/internal/logging"
	"jalsaathi/internal/models"
)

const (
	sinkBuffer     = 32
	persistTimeout = 5 * time.Second
)

// Event types streamed to clients.
const (
	EventTurn        = "turn"
	EventTyping      = "typing"
	EventRoute       = "route"
	EventNotify      = "notify"
	EventRelocalized = "relocalized"
	EventDone        = "done"
)

// Event is one observable change of a conversation, shaped for the wire.
type Event struct {
	Type     string       `json:"-"`
	Turn     *models.Turn `json:"turn,omitempty"`
	Token    string       `json:"action,omitempty"`
	Category string       `json:"category,omitempty"`
	Title    string       `json:"title,omitempty"`
	Body     string       `json:"body,omitempty"`
	State    string       `json:"state,omitempty"`
}

// Snapshot is the read model of one conversation.
type Snapshot struct {
	Conversation models.Conversation `json:"conversation"`
	Turns        []*models.Turn      `json:"turns"`
	State        string              `json:"state"`
	QuickReplies []models.QuickReply `json:"quick_replies"`
}

// conversationState is owned by exactly one actor goroutine. Only cmdCh,
// timerCh and done are touched from other goroutines.
type conversationState struct {
	id     string
	userID int64
	record models.Conversation
	conv   *chat.Conversation

	cmdCh   chan command
	timerCh chan func()
	done    chan struct{}

	sink    chan Event
	collect *[]Event
	// dirty marks the cached transcript stale; localeDirty the stored locale.
	dirty       bool
	localeDirty bool

	retireWhenIdle bool
}

func newConversationState(record models.Conversation) *conversationState {
	return &conversationState{
		id:      record.ID,
		userID:  record.UserID,
		record:  record,
		cmdCh:   make(chan command),
		timerCh: make(chan func()),
		done:    make(chan struct{}),
	}
}

// Schedule implements chat.Scheduler by posting fn back to the actor.
func (s *conversationState) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, func() {
		select {
		case s.timerCh <- fn:
		case <-s.done:
		}
	})
	return func() { t.Stop() }
}

func (s *conversationState) emit(e Event) {
	if s.sink != nil {
		select {
		case s.sink <- e:
		default:
			logging.L().WithField("conversation", s.id).Warnf("dropping %s event for slow client", e.Type)
		}
	}
	if s.collect != nil {
		*s.collect = append(*s.collect, e)
	}
}

// finishSink ends the active stream with a done event.
func (s *conversationState) finishSink() {
	if s.sink == nil {
		return
	}
	closeSink(s.sink)
	s.sink = nil
}

func closeSink(sink chan Event) {
	select {
	case sink <- Event{Type: EventDone}:
	default:
	}
	close(sink)
}

// submit runs one submission with a fresh stream attached.
func (s *conversationState) submit(fn func() chat.Outcome) (chat.Outcome, <-chan Event) {
	prev := s.sink
	sink := make(chan Event, sinkBuffer)
	s.sink = sink
	outcome := fn()
	switch outcome {
	case chat.Accepted:
		return outcome, sink
	case chat.LocationFailed:
		s.sink = prev
		closeSink(sink)
		return outcome, sink
	default:
		s.sink = prev
		return outcome, nil
	}
}

// collectOnly runs fn with the stream detached and returns what it emitted.
func (s *conversationState) collectOnly(fn func()) []Event {
	prevSink, prevCollect := s.sink, s.collect
	var events []Event
	s.sink, s.collect = nil, &events
	fn()
	s.sink, s.collect = prevSink, prevCollect
	return events
}

func (s *conversationState) applyLocale(locale i18n.Locale) bool {
	if locale == "" || !locale.Valid() || locale == s.conv.Locale() {
		return false
	}
	s.conv.LocaleChanged(locale)
	s.record.Locale = string(locale)
	s.dirty = true
	s.localeDirty = true
	return true
}

func (s *conversationState) snapshot() *Snapshot {
	return &Snapshot{
		Conversation: s.record,
		Turns:        s.conv.Transcript(),
		State:        s.conv.State().String(),
		QuickReplies: chat.QuickReplies(s.conv.Localizer(), s.conv.Locale()),
	}
}

func persistContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), persistTimeout)
}

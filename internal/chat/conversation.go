// Package chat holds the dialogue engine behind the chat assistant: intent
// classification, canned response selection and the per-conversation state
// machine. A Conversation is not safe for concurrent use; its owner must call
// every method, including scheduled completions, from a single goroutine.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jalsaathi/internal/i18n"
	"jalsaathi/internal/logging"
	"jalsaathi/internal/models"
)

// WelcomeFlag is the flag-store key marking that the welcome turn was shown.
const WelcomeFlag = "welcomed"

// State is the conversation's response state.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome reports what a submission did.
type Outcome int

const (
	Accepted Outcome = iota
	IgnoredEmpty
	RejectedPending
	LocationFailed
	IgnoredClosed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case IgnoredEmpty:
		return "empty_input"
	case RejectedPending:
		return "response_pending"
	case LocationFailed:
		return "location_failed"
	case IgnoredClosed:
		return "closed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Delays are the simulated composing times per branch.
type Delays struct {
	Reply      time.Duration
	QuickReply time.Duration
	Location   time.Duration
}

var DefaultDelays = Delays{
	Reply:      1200 * time.Millisecond,
	QuickReply: 800 * time.Millisecond,
	Location:   time.Second,
}

// Options wires a Conversation to its collaborators. Scheduler and Flags are
// required.
type Options struct {
	Locale    i18n.Locale
	Localizer Localizer
	Scheduler Scheduler
	Router    Router
	Notifier  Notifier
	Flags     FlagStore
	Listener  Listener
	Delays    Delays
	// History restores a previously persisted transcript.
	History []*models.Turn
	Now     func() time.Time
	NewID   func() string
}

// Conversation is the dialogue state machine for one transcript.
type Conversation struct {
	locale    i18n.Locale
	localizer Localizer
	scheduler Scheduler
	router    Router
	notifier  Notifier
	flags     FlagStore
	listener  Listener
	delays    Delays
	now       func() time.Time
	newID     func() string

	state      State
	transcript []*models.Turn
	pending    *pendingResponse
	pendingSeq uint64
	closed     bool
}

type pendingResponse struct {
	id     uint64
	cancel func()
}

// New validates the response tables and builds a Conversation.
func New(opts Options) (*Conversation, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("scheduler required")
	}
	if opts.Flags == nil {
		return nil, errors.New("flag store required")
	}
	if err := ValidateTables(); err != nil {
		return nil, fmt.Errorf("response tables: %w", err)
	}
	c := &Conversation{
		locale:    i18n.Normalize(opts.Locale),
		localizer: opts.Localizer,
		scheduler: opts.Scheduler,
		router:    opts.Router,
		notifier:  opts.Notifier,
		flags:     opts.Flags,
		listener:  opts.Listener,
		delays:    opts.Delays,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if c.localizer == nil {
		c.localizer = i18n.Provider{}
	}
	if c.delays == (Delays{}) {
		c.delays = DefaultDelays
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = newTurnID
	}
	for _, t := range opts.History {
		if t != nil {
			c.transcript = append(c.transcript, t.Clone())
		}
	}
	return c, nil
}

func newTurnID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Start appends the welcome turn if the welcome flag is unset, then sets it.
// It reports whether a welcome turn was appended.
func (c *Conversation) Start(ctx context.Context) bool {
	if c.closed {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	welcomed, err := c.flags.GetFlag(ctx, WelcomeFlag)
	if err != nil {
		logging.L().WithError(err).Warn("chat: read welcome flag failed, treating as unset")
		welcomed = false
	}
	if welcomed {
		return false
	}
	c.appendTurn(&models.Turn{
		Text:             c.localizer.Localize("welcomeMessage", c.locale),
		Sender:           models.SenderBot,
		Template:         models.TemplateWelcome,
		SuggestedActions: welcomeActions(c.localizer, c.locale),
	})
	if err := c.flags.SetFlag(ctx, WelcomeFlag, true); err != nil {
		logging.L().WithError(err).Warn("chat: persist welcome flag failed")
	}
	return true
}

// SubmitUserText appends a user turn and schedules the classified reply.
func (c *Conversation) SubmitUserText(text string) Outcome {
	if c.closed {
		return IgnoredClosed
	}
	if strings.TrimSpace(text) == "" {
		return IgnoredEmpty
	}
	if c.state == StateAwaitingResponse {
		return RejectedPending
	}
	c.appendTurn(&models.Turn{Text: text, Sender: models.SenderUser})
	locale := c.locale
	c.await(c.delays.Reply, func() {
		tag := Classify(text, locale)
		c.appendTurn(&models.Turn{
			Text:     SelectResponse(tag, locale),
			Sender:   models.SenderBot,
			Template: models.TemplateIntentReply,
			Intent:   string(tag),
		})
	}, nil)
	return Accepted
}

// SubmitQuickReply appends the reply's label as a user turn, schedules the
// acknowledgement and routes to the reply's token once it is appended.
func (c *Conversation) SubmitQuickReply(reply models.QuickReply) Outcome {
	if c.closed {
		return IgnoredClosed
	}
	if strings.TrimSpace(reply.Label) == "" {
		return IgnoredEmpty
	}
	if c.state == StateAwaitingResponse {
		return RejectedPending
	}
	c.appendTurn(&models.Turn{Text: reply.Label, Sender: models.SenderUser})
	ack := QuickReplyAcknowledgement(reply.Label, c.locale)
	token := reply.Token
	c.await(c.delays.QuickReply, func() {
		c.appendTurn(&models.Turn{
			Text:     ack,
			Sender:   models.SenderBot,
			Template: models.TemplateQuickReplyAck,
		})
	}, func() {
		c.route(token)
	})
	return Accepted
}

// SubmitLocation handles the result of a geolocation query. A failure
// raises a LOCATION_FAILED notification and leaves the transcript alone.
func (c *Conversation) SubmitLocation(res LocationResult) Outcome {
	if c.closed {
		return IgnoredClosed
	}
	if !res.OK() {
		c.notify(NotifyLocationFailed, "locationFailed", "enableLocation")
		return LocationFailed
	}
	if c.state == StateAwaitingResponse {
		return RejectedPending
	}
	locale := c.locale
	c.appendTurn(&models.Turn{
		Text:     LocationSharedText(res.Position, locale),
		Sender:   models.SenderUser,
		Template: models.TemplateLocationShared,
	})
	c.notify(NotifyLocationShared, "locationShared", "locationHelp")
	c.await(c.delays.Location, func() {
		c.appendTurn(&models.Turn{
			Text:             NearbyOfficeReply(locale),
			Sender:           models.SenderBot,
			Template:         models.TemplateNearbyOffice,
			SuggestedActions: mapAction(c.localizer, locale),
		})
	}, nil)
	return Accepted
}

// ActivateSuggestedAction routes to token without touching the transcript.
func (c *Conversation) ActivateSuggestedAction(token string) {
	if c.closed || strings.TrimSpace(token) == "" {
		return
	}
	c.route(token)
}

// LocaleChanged switches the active locale and re-renders welcome turns.
// It returns how many turns were re-rendered.
func (c *Conversation) LocaleChanged(locale i18n.Locale) int {
	if c.closed {
		return 0
	}
	c.locale = i18n.Normalize(locale)
	n := 0
	for _, t := range c.transcript {
		if t.Template != models.TemplateWelcome {
			continue
		}
		t.Text = c.localizer.Localize("welcomeMessage", c.locale)
		for i := range t.SuggestedActions {
			if key := t.SuggestedActions[i].LabelKey; key != "" {
				t.SuggestedActions[i].Label = c.localizer.Localize(key, c.locale)
			}
		}
		c.emit(Event{Kind: EventTurnUpdated, Turn: t.Clone(), State: c.state})
		n++
	}
	return n
}

// Close cancels any pending completion. Completions that still fire are
// ignored.
func (c *Conversation) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.pending != nil && c.pending.cancel != nil {
		c.pending.cancel()
	}
	c.pending = nil
}

// Transcript returns a copy of every turn in append order.
func (c *Conversation) Transcript() []*models.Turn {
	out := make([]*models.Turn, 0, len(c.transcript))
	for _, t := range c.transcript {
		out = append(out, t.Clone())
	}
	return out
}

func (c *Conversation) Len() int { return len(c.transcript) }
func (c *Conversation) State() State { return c.state }
func (c *Conversation) Locale() i18n.Locale { return c.locale }
func (c *Conversation) Closed() bool { return c.closed }
func (c *Conversation) Localizer() Localizer { return c.localizer }
func (c *Conversation) HasPendingResponse() bool { return c.pending != nil }

func (c *Conversation) await(delay time.Duration, reply func(), after func()) {
	c.pendingSeq++
	p := &pendingResponse{id: c.pendingSeq}
	c.pending = p
	c.setState(StateAwaitingResponse)
	p.cancel = c.scheduler.Schedule(delay, func() {
		c.complete(p.id, reply, after)
	})
}

func (c *Conversation) complete(id uint64, reply func(), after func()) {
	if c.closed || c.pending == nil || c.pending.id != id {
		return
	}
	reply()
	c.pending = nil
	c.setState(StateIdle)
	if after != nil {
		after()
	}
}

func (c *Conversation) appendTurn(t *models.Turn) {
	t.ID = c.newID()
	t.Seq = c.lastSeq() + 1
	t.CreatedAt = c.now()
	c.transcript = append(c.transcript, t)
	c.emit(Event{Kind: EventTurnAppended, Turn: t.Clone(), State: c.state})
}

func (c *Conversation) lastSeq() int {
	if len(c.transcript) == 0 {
		return 0
	}
	return c.transcript[len(c.transcript)-1].Seq
}

func (c *Conversation) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.emit(Event{Kind: EventStateChanged, State: s})
}

func (c *Conversation) route(token string) {
	if c.router != nil {
		c.router.RouteTo(token)
	}
}

func (c *Conversation) notify(category, titleKey, bodyKey string) {
	if c.notifier != nil {
		c.notifier.Notify(category, titleKey, bodyKey)
	}
}

func (c *Conversation) emit(e Event) {
	if c.listener != nil {
		c.listener.OnEvent(e)
	}
}

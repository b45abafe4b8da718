package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"jalsaathi/internal/chat"
	"jalsaathi/internal/flags"
	"jalsaathi/internal/i18n"
	"jalsaathi/internal/logging"
	"jalsaathi/internal/metrics"
	"jalsaathi/internal/models"
	"jalsaathi/internal/redis"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrResponsePending      = errors.New("response pending")
	ErrEmptyInput           = errors.New("empty input")
	ErrUnknownQuickReply    = errors.New("unknown quick reply")
	ErrManagerClosed        = errors.New("worker manager closed")

	errActorRetired = errors.New("conversation actor retired")
)

const defaultIdleTimeout = 10 * time.Minute

// Store persists conversations and their turns.
type Store interface {
	CreateConversation(ctx context.Context, userID int64, locale string) (*models.Conversation, error)
	GetConversationWithTurns(ctx context.Context, userID int64, conversationID string) (*models.Conversation, []*models.Turn, error)
	AppendTurn(ctx context.Context, conversationID string, turn *models.Turn) error
	UpdateTurnText(ctx context.Context, conversationID string, turn *models.Turn) error
	UpdateConversationLocale(ctx context.Context, userID int64, conversationID, locale string) error
	DeleteConversation(ctx context.Context, userID int64, conversationID string) error
}

type Config struct {
	Delays             chat.Delays
	IdleTimeout        time.Duration
	GeolocationTimeout time.Duration
	Localizer          chat.Localizer
	Flags              flags.Store
	Cache              *redis.Client
	CacheTTL           time.Duration
	Metrics            *metrics.ChatMetrics
}

// Manager runs one actor goroutine per live conversation. Every mutation of a
// conversation, including its delayed replies, happens on that goroutine.
type Manager struct {
	store  Store
	cfg    Config
	cache  *transcriptCache
	origin string

	mu     sync.Mutex
	actors map[string]*conversationState
	closed bool
	stopCh chan struct{}
	wg     sync.WaitGroup

	stopListener func()
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdSnapshot
	cmdText
	cmdQuickReply
	cmdLocation
	cmdAction
	cmdLocale
	cmdRetire
)

type command struct {
	kind     commandKind
	ctx      context.Context
	text     string
	reply    models.QuickReply
	location chat.LocationResult
	token    string
	locale   i18n.Locale
	force    bool
	resultCh chan result
}

func (c command) submission() bool {
	return c.kind == cmdText || c.kind == cmdQuickReply || c.kind == cmdLocation
}

type result struct {
	outcome  chat.Outcome
	snapshot *Snapshot
	stream   <-chan Event
	events   []Event
	err      error
}

func NewManager(store Store, cfg Config) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Delays == (chat.Delays{}) {
		cfg.Delays = chat.DefaultDelays
	}
	if cfg.Localizer == nil {
		cfg.Localizer = i18n.Provider{}
	}
	if cfg.Flags == nil {
		cfg.Flags = flags.NewMemory()
	}
	m := &Manager{
		store:  store,
		cfg:    cfg,
		cache:  newTranscriptCache(cfg.Cache, cfg.CacheTTL),
		origin: uuid.NewString(),
		actors: make(map[string]*conversationState),
		stopCh: make(chan struct{}),
	}
	m.stopListener = m.cache.startListener(m.handleInvalidation)
	return m
}

// Create starts a conversation and shows the welcome turn on a user's first visit.
func (m *Manager) Create(ctx context.Context, userID int64, locale i18n.Locale) (*Snapshot, error) {
	locale = i18n.Normalize(locale)
	record, err := m.store.CreateConversation(ctx, userID, string(locale))
	if err != nil {
		return nil, err
	}
	state, err := m.spawn(record, nil)
	if err != nil {
		return nil, err
	}
	res, err := state.call(ctx, command{kind: cmdStart, ctx: ctx})
	if err != nil {
		return nil, err
	}
	return res.snapshot, nil
}

// Get returns the current transcript and state.
func (m *Manager) Get(ctx context.Context, userID int64, conversationID string) (*Snapshot, error) {
	res, err := m.dispatch(ctx, userID, conversationID, command{kind: cmdSnapshot})
	if err != nil {
		return nil, err
	}
	return res.snapshot, nil
}

// SubmitText appends a user turn and returns the stream of events up to and
// including the bot reply. An empty locale keeps the conversation's locale.
func (m *Manager) SubmitText(ctx context.Context, userID int64, conversationID, text string, locale i18n.Locale) (<-chan Event, error) {
	res, err := m.dispatch(ctx, userID, conversationID, command{kind: cmdText, text: text, locale: locale})
	if err != nil {
		return nil, err
	}
	return m.streamFor("text", res)
}

// SubmitQuickReply submits one of the fixed quick replies by id.
func (m *Manager) SubmitQuickReply(ctx context.Context, userID int64, conversationID, replyID string, locale i18n.Locale) (<-chan Event, error) {
	res, err := m.dispatch(ctx, userID, conversationID, command{kind: cmdQuickReply, token: replyID, locale: locale})
	if err != nil {
		return nil, err
	}
	return m.streamFor("quick_reply", res)
}

// SubmitLocation resolves geo under the configured timeout, then submits the
// result. A failed lookup yields a stream carrying only a notify event.
func (m *Manager) SubmitLocation(ctx context.Context, userID int64, conversationID string, geo chat.Geolocator, locale i18n.Locale) (<-chan Event, error) {
	loc := chat.Locate(ctx, geo, m.cfg.GeolocationTimeout)
	res, err := m.dispatch(ctx, userID, conversationID, command{kind: cmdLocation, location: loc, locale: locale})
	if err != nil {
		return nil, err
	}
	return m.streamFor("location", res)
}

// ActivateAction routes a suggested action and returns the emitted token.
func (m *Manager) ActivateAction(ctx context.Context, userID int64, conversationID, token string) (string, error) {
	res, err := m.dispatch(ctx, userID, conversationID, command{kind: cmdAction, token: token})
	if err != nil {
		return "", err
	}
	for _, e := range res.events {
		if e.Type == EventRoute {
			return e.Token, nil
		}
	}
	return "", ErrEmptyInput
}

// ChangeLocale switches the conversation's locale and re-renders its welcome turn.
func (m *Manager) ChangeLocale(ctx context.Context, userID int64, conversationID string, locale i18n.Locale) (*Snapshot, error) {
	res, err := m.dispatch(ctx, userID, conversationID, command{kind: cmdLocale, locale: i18n.Normalize(locale)})
	if err != nil {
		return nil, err
	}
	return res.snapshot, nil
}

// Delete removes the conversation everywhere.
func (m *Manager) Delete(ctx context.Context, userID int64, conversationID string) error {
	if err := m.store.DeleteConversation(ctx, userID, conversationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConversationNotFound
		}
		return err
	}
	m.retireLocal(conversationID, true)
	m.cache.invalidate(conversationID)
	m.cache.publishInvalidation(invalidateMessage{
		ConversationID: conversationID,
		UserID:         userID,
		Scope:          scopeDeleted,
		Origin:         m.origin,
	})
	return nil
}

// Active reports how many actors are running.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actors)
}

// Close stops every actor and waits for them to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.stopCh)
	m.mu.Unlock()

	if m.stopListener != nil {
		m.stopListener()
	}
	m.wg.Wait()
}

func (m *Manager) streamFor(kind string, res result) (<-chan Event, error) {
	m.cfg.Metrics.ObserveSubmission(kind, res.outcome.String())
	switch res.outcome {
	case chat.Accepted, chat.LocationFailed:
		return res.stream, nil
	case chat.IgnoredEmpty:
		return nil, ErrEmptyInput
	case chat.RejectedPending:
		return nil, ErrResponsePending
	default:
		return nil, errActorRetired
	}
}

func (m *Manager) dispatch(ctx context.Context, userID int64, conversationID string, cmd command) (result, error) {
	cmd.ctx = ctx
	for attempt := 0; attempt < 3; attempt++ {
		state, err := m.ensureActor(ctx, userID, conversationID)
		if err != nil {
			return result{}, err
		}
		res, err := state.call(ctx, cmd)
		if errors.Is(err, errActorRetired) {
			logging.Debugf("conversation %s retired mid-call, retrying", conversationID)
			continue
		}
		return res, err
	}
	return result{}, errActorRetired
}

func (s *conversationState) call(ctx context.Context, cmd command) (result, error) {
	cmd.resultCh = make(chan result, 1)
	select {
	case s.cmdCh <- cmd:
	case <-s.done:
		return result{}, errActorRetired
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	select {
	case res := <-cmd.resultCh:
		return res, res.err
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (m *Manager) ensureActor(ctx context.Context, userID int64, conversationID string) (*conversationState, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	state, ok := m.actors[conversationID]
	m.mu.Unlock()
	if ok {
		if state.userID != userID {
			return nil, ErrConversationNotFound
		}
		return state, nil
	}

	record, turns, err := m.load(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return m.spawn(record, turns)
}

func (m *Manager) load(ctx context.Context, userID int64, conversationID string) (*models.Conversation, []*models.Turn, error) {
	if record, turns, ok := m.cache.load(userID, conversationID); ok {
		return record, turns, nil
	}
	record, turns, err := m.store.GetConversationWithTurns(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrConversationNotFound
		}
		return nil, nil, fmt.Errorf("load conversation: %w", err)
	}
	m.cache.store(record, turns)
	return record, turns, nil
}

func (m *Manager) spawn(record *models.Conversation, history []*models.Turn) (*conversationState, error) {
	state := newConversationState(*record)
	conv, err := chat.New(chat.Options{
		Locale:    i18n.Locale(record.Locale),
		Localizer: m.cfg.Localizer,
		Scheduler: state,
		Router:    chat.RouterFunc(func(token string) { m.onRoute(state, token) }),
		Notifier: chat.NotifierFunc(func(category, titleKey, bodyKey string) {
			m.onNotify(state, category, titleKey, bodyKey)
		}),
		Flags:    flags.For(m.cfg.Flags, flags.UserScope(record.UserID)),
		Listener: chat.ListenerFunc(func(e chat.Event) { m.onEvent(state, e) }),
		Delays:   m.cfg.Delays,
		History:  history,
	})
	if err != nil {
		return nil, err
	}
	state.conv = conv

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if existing, ok := m.actors[record.ID]; ok {
		conv.Close()
		if existing.userID != record.UserID {
			return nil, ErrConversationNotFound
		}
		return existing, nil
	}
	m.actors[record.ID] = state
	m.wg.Add(1)
	go m.runActor(state)
	m.cfg.Metrics.ActorStarted()
	logging.Debugf("conversation actor %s started for user %d", record.ID, record.UserID)
	return state, nil
}

func (m *Manager) runActor(state *conversationState) {
	defer m.wg.Done()
	idle := time.NewTimer(m.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-m.stopCh:
			m.retire(state)
			return
		case cmd := <-state.cmdCh:
			res := m.handle(state, cmd)
			m.afterStep(state)
			if cmd.kind == cmdRetire && (cmd.force || !state.conv.HasPendingResponse()) {
				m.retire(state)
				cmd.resultCh <- res
				return
			}
			cmd.resultCh <- res
			resetTimer(idle, m.cfg.IdleTimeout)
		case fn := <-state.timerCh:
			fn()
			m.afterStep(state)
			if state.retireWhenIdle && !state.conv.HasPendingResponse() {
				m.retire(state)
				return
			}
		case <-idle.C:
			if state.conv.HasPendingResponse() {
				idle.Reset(m.cfg.IdleTimeout)
				continue
			}
			logging.Debugf("conversation actor %s idle, retiring", state.id)
			m.retire(state)
			return
		}
	}
}

func (m *Manager) handle(state *conversationState, cmd command) result {
	conv := state.conv
	if cmd.submission() && conv.HasPendingResponse() {
		// Rejected submissions leave the conversation untouched, locale included.
		return result{outcome: chat.RejectedPending}
	}
	switch cmd.kind {
	case cmdStart:
		conv.Start(cmd.ctx)
		return result{snapshot: state.snapshot()}
	case cmdSnapshot:
		return result{snapshot: state.snapshot()}
	case cmdText:
		state.applyLocale(cmd.locale)
		outcome, stream := state.submit(func() chat.Outcome { return conv.SubmitUserText(cmd.text) })
		return result{outcome: outcome, stream: stream}
	case cmdQuickReply:
		state.applyLocale(cmd.locale)
		reply, ok := chat.FindQuickReply(m.cfg.Localizer, cmd.token, conv.Locale())
		if !ok {
			return result{err: ErrUnknownQuickReply}
		}
		outcome, stream := state.submit(func() chat.Outcome { return conv.SubmitQuickReply(reply) })
		return result{outcome: outcome, stream: stream}
	case cmdLocation:
		state.applyLocale(cmd.locale)
		outcome, stream := state.submit(func() chat.Outcome { return conv.SubmitLocation(cmd.location) })
		return result{outcome: outcome, stream: stream}
	case cmdAction:
		events := state.collectOnly(func() { conv.ActivateSuggestedAction(cmd.token) })
		return result{events: events}
	case cmdLocale:
		events := state.collectOnly(func() { state.applyLocale(cmd.locale) })
		return result{snapshot: state.snapshot(), events: events}
	case cmdRetire:
		if !cmd.force && conv.HasPendingResponse() {
			state.retireWhenIdle = true
		}
		return result{}
	default:
		return result{err: fmt.Errorf("unknown command %d", cmd.kind)}
	}
}

// afterStep syncs the cache and ends a finished stream.
func (m *Manager) afterStep(state *conversationState) {
	if state.dirty {
		m.sync(state)
	}
	if state.sink != nil && !state.conv.HasPendingResponse() {
		state.finishSink()
	}
}

// sync writes a changed locale through and refreshes the shared cache.
func (m *Manager) sync(state *conversationState) {
	state.dirty = false
	if state.localeDirty {
		state.localeDirty = false
		ctx, cancel := persistContext()
		if err := m.store.UpdateConversationLocale(ctx, state.userID, state.id, state.record.Locale); err != nil && !errors.Is(err, sql.ErrNoRows) {
			logging.L().WithError(err).WithField("conversation", state.id).Warn("persist locale failed")
		}
		cancel()
	}
	m.cache.store(&state.record, state.conv.Transcript())
	m.cache.publishInvalidation(invalidateMessage{
		ConversationID: state.id,
		UserID:         state.userID,
		Scope:          scopeTurns,
		Origin:         m.origin,
	})
}

func (m *Manager) onEvent(state *conversationState, e chat.Event) {
	switch e.Kind {
	case chat.EventTurnAppended:
		ctx, cancel := persistContext()
		if err := m.store.AppendTurn(ctx, state.id, e.Turn); err != nil {
			logging.L().WithError(err).WithField("conversation", state.id).Error("persist turn failed")
		}
		cancel()
		if e.Turn.Sender == models.SenderBot {
			m.cfg.Metrics.ObserveIntent(e.Turn.Intent)
		}
		state.dirty = true
		state.emit(Event{Type: EventTurn, Turn: e.Turn})
	case chat.EventTurnUpdated:
		ctx, cancel := persistContext()
		if err := m.store.UpdateTurnText(ctx, state.id, e.Turn); err != nil {
			logging.L().WithError(err).WithField("conversation", state.id).Error("persist relocalized turn failed")
		}
		cancel()
		state.dirty = true
		state.emit(Event{Type: EventRelocalized, Turn: e.Turn})
	case chat.EventStateChanged:
		state.emit(Event{Type: EventTyping, State: e.State.String()})
	}
}

func (m *Manager) onRoute(state *conversationState, token string) {
	m.cfg.Metrics.ObserveRoute(token)
	state.emit(Event{Type: EventRoute, Token: token})
}

func (m *Manager) onNotify(state *conversationState, category, titleKey, bodyKey string) {
	m.cfg.Metrics.ObserveNotification(category)
	locale := state.conv.Locale()
	state.emit(Event{
		Type:     EventNotify,
		Category: category,
		Title:    m.cfg.Localizer.Localize(titleKey, locale),
		Body:     m.cfg.Localizer.Localize(bodyKey, locale),
	})
}

func (m *Manager) retire(state *conversationState) {
	m.mu.Lock()
	if m.actors[state.id] == state {
		delete(m.actors, state.id)
	}
	m.mu.Unlock()

	state.conv.Close()
	state.finishSink()
	close(state.done)
	m.cfg.Metrics.ActorStopped()
	logging.Debugf("conversation actor %s stopped", state.id)
}

// retireLocal asks a running actor to stop. A forced stop drops any pending reply.
func (m *Manager) retireLocal(conversationID string, force bool) {
	m.mu.Lock()
	state, ok := m.actors[conversationID]
	m.mu.Unlock()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if _, err := state.call(ctx, command{kind: cmdRetire, force: force}); err != nil && !errors.Is(err, errActorRetired) {
		logging.L().WithError(err).WithField("conversation", conversationID).Warn("retire actor failed")
	}
}

func (m *Manager) handleInvalidation(msg invalidateMessage) {
	if msg.Origin == m.origin || msg.ConversationID == "" {
		return
	}
	m.retireLocal(msg.ConversationID, msg.Scope == scopeDeleted)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

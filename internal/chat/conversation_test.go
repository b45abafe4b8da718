package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"jalsaathi/internal/flags"
	"jalsaathi/internal/i18n"
	"jalsaathi/internal/models"
)

type recorder struct {
	routes        []string
	notifications []string
	events        []Event
	// transcriptLenAtRoute captures ordering between append and route.
	transcriptLenAtRoute []int
	conv                 *Conversation
}

func (r *recorder) RouteTo(token string) {
	r.routes = append(r.routes, token)
	if r.conv != nil {
		r.transcriptLenAtRoute = append(r.transcriptLenAtRoute, r.conv.Len())
	}
}

func (r *recorder) Notify(category, titleKey, bodyKey string) {
	r.notifications = append(r.notifications, category+"|"+titleKey+"|"+bodyKey)
}

func (r *recorder) OnEvent(e Event) { r.events = append(r.events, e) }

type failingFlags struct{ getErr, setErr error }

func (f failingFlags) GetFlag(context.Context, string) (bool, error) { return false, f.getErr }
func (f failingFlags) SetFlag(context.Context, string, bool) error { return f.setErr }

func newTestConversation(t *testing.T, locale i18n.Locale, store FlagStore) (*Conversation, *ManualScheduler, *recorder) {
	t.Helper()
	if store == nil {
		store = flags.For(flags.NewMemory(), flags.UserScope(1))
	}
	sched := &ManualScheduler{}
	rec := &recorder{}
	seq := 0
	conv, err := New(Options{
		Locale:    locale,
		Scheduler: sched,
		Router:    rec,
		Notifier:  rec,
		Flags:     store,
		Listener:  rec,
		NewID: func() string {
			seq++
			return fmt.Sprintf("turn-%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("new conversation: %v", err)
	}
	rec.conv = conv
	return conv, sched, rec
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Flags: flags.For(flags.NewMemory(), "s")}); err == nil {
		t.Fatalf("expected error without scheduler")
	}
	if _, err := New(Options{Scheduler: &ManualScheduler{}}); err == nil {
		t.Fatalf("expected error without flag store")
	}
}

func TestTranscriptGrowsByTwoPerAcceptedSubmission(t *testing.T) {
	conv, sched, _ := newTestConversation(t, i18n.EN, nil)
	if !conv.Start(context.Background()) {
		t.Fatalf("expected welcome on first start")
	}
	inputs := []string{"water please", "help", "hello", "पानी"}
	for i, in := range inputs {
		if got := conv.SubmitUserText(in); got != Accepted {
			t.Fatalf("submission %d: got %s", i, got)
		}
		sched.FireAll()
	}
	if got, want := conv.Len(), 2*len(inputs)+1; got != want {
		t.Fatalf("transcript length = %d, want %d", got, want)
	}

	seen := make(map[string]bool)
	for i, turn := range conv.Transcript() {
		if turn.Seq != i+1 {
			t.Fatalf("turn %d has seq %d", i, turn.Seq)
		}
		if seen[turn.ID] {
			t.Fatalf("duplicate turn id %s", turn.ID)
		}
		seen[turn.ID] = true
	}
}

func TestSubmissionWhileAwaitingIsRejected(t *testing.T) {
	conv, sched, rec := newTestConversation(t, i18n.EN, nil)

	if got := conv.SubmitUserText("water"); got != Accepted {
		t.Fatalf("first submission: %s", got)
	}
	if conv.State() != StateAwaitingResponse {
		t.Fatalf("expected awaiting state, got %s", conv.State())
	}
	before := conv.Len()

	if got := conv.SubmitUserText("help"); got != RejectedPending {
		t.Fatalf("second submission: %s", got)
	}
	reply, _ := FindQuickReply(nil, "report", i18n.EN)
	if got := conv.SubmitQuickReply(reply); got != RejectedPending {
		t.Fatalf("quick reply while pending: %s", got)
	}
	if got := conv.SubmitLocation(LocationResult{Position: Position{Latitude: 1, Longitude: 2}}); got != RejectedPending {
		t.Fatalf("location while pending: %s", got)
	}
	if conv.Len() != before {
		t.Fatalf("rejected submissions appended turns")
	}
	if sched.Pending() != 1 {
		t.Fatalf("expected exactly one scheduled completion, got %d", sched.Pending())
	}
	if len(rec.routes) != 0 {
		t.Fatalf("rejected quick reply routed: %v", rec.routes)
	}

	sched.FireAll()
	if conv.State() != StateIdle {
		t.Fatalf("expected idle after completion")
	}
	if got := conv.SubmitUserText("help"); got != Accepted {
		t.Fatalf("submission after completion: %s", got)
	}
}

func TestBlankInputIsNoOp(t *testing.T) {
	conv, sched, rec := newTestConversation(t, i18n.EN, nil)
	for _, in := range []string{"", "   ", "\t\n"} {
		if got := conv.SubmitUserText(in); got != IgnoredEmpty {
			t.Fatalf("input %q: got %s", in, got)
		}
	}
	if conv.Len() != 0 || conv.State() != StateIdle || sched.Pending() != 0 {
		t.Fatalf("blank input changed the conversation")
	}
	if len(rec.events) != 0 {
		t.Fatalf("blank input emitted events: %v", rec.events)
	}
}

func TestWelcomeShownOncePerFlagStore(t *testing.T) {
	store := flags.For(flags.NewMemory(), flags.UserScope(42))

	first, _, _ := newTestConversation(t, i18n.EN, store)
	if !first.Start(context.Background()) {
		t.Fatalf("expected welcome")
	}
	turns := first.Transcript()
	if len(turns) != 1 || turns[0].Template != models.TemplateWelcome || turns[0].Sender != models.SenderBot {
		t.Fatalf("unexpected welcome transcript: %+v", turns)
	}
	actions := turns[0].SuggestedActions
	if len(actions) != 2 || actions[0].Token != "report" || actions[1].Token != "status" {
		t.Fatalf("unexpected welcome actions: %+v", actions)
	}
	if first.Start(context.Background()) {
		t.Fatalf("second start on same conversation appended welcome again")
	}

	second, _, _ := newTestConversation(t, i18n.EN, store)
	if second.Start(context.Background()) {
		t.Fatalf("welcome repeated for a store that already saw it")
	}
	if second.Len() != 0 {
		t.Fatalf("expected empty transcript")
	}
}

func TestWelcomeFlagReadErrorTreatedAsUnset(t *testing.T) {
	store := failingFlags{getErr: errors.New("boom"), setErr: errors.New("boom")}
	conv, _, _ := newTestConversation(t, i18n.EN, store)
	if !conv.Start(context.Background()) {
		t.Fatalf("expected welcome when flag read fails")
	}
}

func TestLocaleChangeRelocalizesWelcomeOnly(t *testing.T) {
	conv, sched, rec := newTestConversation(t, i18n.EN, nil)
	conv.Start(context.Background())
	conv.SubmitUserText("Is the water safe today?")
	sched.FireAll()

	before := conv.Transcript()
	rec.events = nil

	if n := conv.LocaleChanged(i18n.HI); n != 1 {
		t.Fatalf("expected one relocalized turn, got %d", n)
	}
	after := conv.Transcript()

	if after[0].Text != i18n.Localize("welcomeMessage", i18n.HI) {
		t.Fatalf("welcome not relocalized: %q", after[0].Text)
	}
	if after[0].SuggestedActions[0].Label != i18n.Localize("reportIssue", i18n.HI) ||
		after[0].SuggestedActions[1].Label != i18n.Localize("waterStatus", i18n.HI) {
		t.Fatalf("welcome actions not relocalized: %+v", after[0].SuggestedActions)
	}
	if after[0].SuggestedActions[0].Token != "report" {
		t.Fatalf("action token changed")
	}
	for i := 1; i < len(after); i++ {
		if after[i].Text != before[i].Text || after[i].ID != before[i].ID {
			t.Fatalf("turn %d changed on locale switch", i)
		}
	}
	if conv.State() != StateIdle || conv.Locale() != i18n.HI {
		t.Fatalf("unexpected state %s / locale %s", conv.State(), conv.Locale())
	}
	if len(rec.events) != 1 || rec.events[0].Kind != EventTurnUpdated {
		t.Fatalf("expected one relocalized event, got %+v", rec.events)
	}
}

func TestEnglishWaterQuestion(t *testing.T) {
	conv, sched, _ := newTestConversation(t, i18n.EN, nil)
	input := "Is the water safe today?"
	if got := conv.SubmitUserText(input); got != Accepted {
		t.Fatalf("submission: %s", got)
	}
	if sched.LastDelay() != DefaultDelays.Reply {
		t.Fatalf("expected reply delay %v, got %v", DefaultDelays.Reply, sched.LastDelay())
	}
	turns := conv.Transcript()
	if len(turns) != 1 || turns[0].Sender != models.SenderUser || turns[0].Text != input {
		t.Fatalf("unexpected user turn: %+v", turns)
	}

	sched.FireAll()
	turns = conv.Transcript()
	if len(turns) != 2 {
		t.Fatalf("expected bot reply, got %d turns", len(turns))
	}
	bot := turns[1]
	if bot.Sender != models.SenderBot || bot.Text != SelectResponse(IntentWaterStatusInquiry, i18n.EN) {
		t.Fatalf("unexpected bot turn: %+v", bot)
	}
	if bot.Intent != string(IntentWaterStatusInquiry) {
		t.Fatalf("unexpected intent %q", bot.Intent)
	}
	if conv.State() != StateIdle {
		t.Fatalf("expected idle")
	}
}

func TestReplyUsesLocaleCapturedAtSubmission(t *testing.T) {
	conv, sched, _ := newTestConversation(t, i18n.EN, nil)
	conv.SubmitUserText("help")
	conv.LocaleChanged(i18n.KN)
	sched.FireAll()
	turns := conv.Transcript()
	if turns[1].Text != SelectResponse(IntentHelpRequest, i18n.EN) {
		t.Fatalf("reply rendered in switched locale: %q", turns[1].Text)
	}
}

func TestQuickReplyAcknowledgesThenRoutes(t *testing.T) {
	conv, sched, rec := newTestConversation(t, i18n.EN, nil)
	reply, ok := FindQuickReply(nil, "report", i18n.EN)
	if !ok {
		t.Fatalf("report quick reply missing")
	}
	if got := conv.SubmitQuickReply(reply); got != Accepted {
		t.Fatalf("quick reply: %s", got)
	}
	if sched.LastDelay() != DefaultDelays.QuickReply {
		t.Fatalf("unexpected delay %v", sched.LastDelay())
	}
	if len(rec.routes) != 0 {
		t.Fatalf("routed before the acknowledgement")
	}
	sched.FireAll()

	turns := conv.Transcript()
	if len(turns) != 2 || turns[0].Text != "Report Issue" {
		t.Fatalf("unexpected transcript: %+v", turns)
	}
	if !strings.Contains(turns[1].Text, "report issue") {
		t.Fatalf("acknowledgement lacks lowercased label: %q", turns[1].Text)
	}
	if len(rec.routes) != 1 || rec.routes[0] != "report" {
		t.Fatalf("expected one route to report, got %v", rec.routes)
	}
	if rec.transcriptLenAtRoute[0] != 2 {
		t.Fatalf("route emitted before bot turn was appended")
	}
	if conv.State() != StateIdle {
		t.Fatalf("expected idle")
	}
}

func TestLocationFailureNotifiesOnce(t *testing.T) {
	conv, sched, rec := newTestConversation(t, i18n.EN, nil)
	conv.Start(context.Background())
	before := conv.Len()

	got := conv.SubmitLocation(Locate(context.Background(), StaticPosition{Err: ErrLocationUnavailable}, time.Second))
	if got != LocationFailed {
		t.Fatalf("expected location failure, got %s", got)
	}
	if conv.Len() != before || sched.Pending() != 0 {
		t.Fatalf("failure changed the transcript")
	}
	want := NotifyLocationFailed + "|locationFailed|enableLocation"
	if len(rec.notifications) != 1 || rec.notifications[0] != want {
		t.Fatalf("expected one failure notification, got %v", rec.notifications)
	}
}

func TestLocationSuccessAppendsAndSuggestsMap(t *testing.T) {
	conv, sched, rec := newTestConversation(t, i18n.EN, nil)
	pos := Position{Latitude: 12.97159, Longitude: 77.59456}
	if got := conv.SubmitLocation(LocationResult{Position: pos}); got != Accepted {
		t.Fatalf("location: %s", got)
	}
	if sched.LastDelay() != DefaultDelays.Location {
		t.Fatalf("unexpected delay %v", sched.LastDelay())
	}
	if len(rec.notifications) != 1 || !strings.HasPrefix(rec.notifications[0], NotifyLocationShared) {
		t.Fatalf("expected shared notification, got %v", rec.notifications)
	}
	sched.FireAll()
	turns := conv.Transcript()
	if turns[0].Text != "Location shared: 12.9716, 77.5946" {
		t.Fatalf("unexpected location turn %q", turns[0].Text)
	}
	if len(turns[1].SuggestedActions) != 1 || turns[1].SuggestedActions[0].Token != "map" {
		t.Fatalf("expected map action, got %+v", turns[1].SuggestedActions)
	}
}

func TestLocateTimesOut(t *testing.T) {
	res := Locate(context.Background(), blockingGeo{}, 10*time.Millisecond)
	if res.OK() {
		t.Fatalf("expected timeout failure")
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("unexpected error %v", res.Err)
	}
}

type blockingGeo struct{}

func (blockingGeo) CurrentPosition(ctx context.Context) (Position, error) {
	<-ctx.Done()
	return Position{}, ctx.Err()
}

func TestSuggestedActionRoutesInAnyState(t *testing.T) {
	conv, sched, rec := newTestConversation(t, i18n.EN, nil)
	conv.SubmitUserText("water")
	before := conv.Len()
	conv.ActivateSuggestedAction("map")
	if len(rec.routes) != 1 || rec.routes[0] != "map" {
		t.Fatalf("expected route to map, got %v", rec.routes)
	}
	if conv.Len() != before || conv.State() != StateAwaitingResponse {
		t.Fatalf("action changed the conversation")
	}
	sched.FireAll()
}

func TestCloseMakesPendingCompletionNoOp(t *testing.T) {
	conv, sched, _ := newTestConversation(t, i18n.EN, nil)
	conv.SubmitUserText("water")
	// keep a handle on the callback the way a timer would
	var fire func()
	sched.mu.Lock()
	fire = sched.pending[0].fn
	sched.mu.Unlock()

	conv.Close()
	if sched.Pending() != 0 {
		t.Fatalf("close did not cancel the scheduled completion")
	}
	fire()
	if conv.Len() != 1 {
		t.Fatalf("completion after close appended a turn")
	}
	if got := conv.SubmitUserText("help"); got != IgnoredClosed {
		t.Fatalf("submission after close: %s", got)
	}
}

func TestHistoryRestoresSequence(t *testing.T) {
	history := []*models.Turn{
		{ID: "a", Seq: 1, Text: "hi", Sender: models.SenderUser},
		{ID: "b", Seq: 2, Text: "hello", Sender: models.SenderBot, Template: models.TemplateIntentReply},
	}
	conv, err := New(Options{
		Scheduler: &ManualScheduler{},
		Flags:     flags.For(flags.NewMemory(), "s"),
		History:   history,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	conv.SubmitUserText("help")
	turns := conv.Transcript()
	if len(turns) != 3 || turns[2].Seq != 3 {
		t.Fatalf("unexpected restored transcript: %+v", turns)
	}
	history[0].Text = "mutated"
	if conv.Transcript()[0].Text != "hi" {
		t.Fatalf("history was not copied")
	}
}

func TestDefaultTurnIDsAreUniqueAndOrdered(t *testing.T) {
	sched := &ManualScheduler{}
	conv, err := New(Options{
		Scheduler: sched,
		Flags:     flags.For(flags.NewMemory(), "s"),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 500; i++ {
		if got := conv.SubmitUserText("water"); got != Accepted {
			t.Fatalf("submission %d: %s", i, got)
		}
		sched.FireAll()
	}

	turns := conv.Transcript()
	if len(turns) != 1000 {
		t.Fatalf("transcript length = %d, want 1000", len(turns))
	}
	seen := make(map[string]bool, len(turns))
	prev := ""
	for i, turn := range turns {
		id, err := uuid.Parse(turn.ID)
		if err != nil {
			t.Fatalf("turn %d id %q: %v", i, turn.ID, err)
		}
		if id.Version() != 7 {
			t.Fatalf("turn %d id version = %d, want 7", i, id.Version())
		}
		if seen[turn.ID] {
			t.Fatalf("duplicate turn id %s at %d", turn.ID, i)
		}
		seen[turn.ID] = true
		if turn.ID <= prev {
			t.Fatalf("turn %d id %s not after %s", i, turn.ID, prev)
		}
		prev = turn.ID
	}
}

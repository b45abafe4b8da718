package assistant

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"jalsaathi/internal/config"
	"jalsaathi/internal/models"
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
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func TestRegisterAndLogin(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, Registration{Username: " Asha ", Password: "secret", FullName: " Asha Rao "})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID <= 0 || user.Username != "asha" || user.FullName != "Asha Rao" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := svc.RegisterUser(ctx, Registration{Username: "ASHA", Password: "another"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.RegisterUser(ctx, Registration{Password: "secret"}); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := svc.RegisterUser(ctx, Registration{Username: "ravi", Password: "12345"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	got, err := svc.Login(ctx, "Asha", "secret")
	if err != nil || got.ID != user.ID || got.FullName != "Asha Rao" {
		t.Fatalf("login failed: %+v %v", got, err)
	}
	if _, err := svc.Login(ctx, "asha", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := svc.GetUser(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	if err := svc.DeleteUser(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestConversationTurnsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, Registration{Username: "ravi", Password: "secret"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	conv, err := svc.CreateConversation(ctx, user.ID, "en")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	now := time.Now().UTC()
	welcome := &models.Turn{
		ID: "t1", Seq: 1, Text: "Welcome", Sender: models.SenderBot, Template: models.TemplateWelcome,
		SuggestedActions: []models.SuggestedAction{{Label: "Report Issue", Token: "report", LabelKey: "reportIssue"}},
		CreatedAt:        now,
	}
	user1 := &models.Turn{ID: "t2", Seq: 2, Text: "water?", Sender: models.SenderUser, CreatedAt: now}
	for _, turn := range []*models.Turn{welcome, user1} {
		if err := svc.AppendTurn(ctx, conv.ID, turn); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}
	if err := svc.AppendTurn(ctx, conv.ID, &models.Turn{ID: "t3", Seq: 2, Sender: models.SenderBot, CreatedAt: now}); err == nil {
		t.Fatalf("expected duplicate seq to fail")
	}

	welcome.Text = "स्वागत"
	welcome.SuggestedActions[0].Label = "समस्या"
	if err := svc.UpdateTurnText(ctx, conv.ID, welcome); err != nil {
		t.Fatalf("update turn: %v", err)
	}
	if err := svc.UpdateConversationLocale(ctx, user.ID, conv.ID, "hi"); err != nil {
		t.Fatalf("update locale: %v", err)
	}

	got, turns, err := svc.GetConversationWithTurns(ctx, user.ID, conv.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if got.Locale != "hi" || len(turns) != 2 {
		t.Fatalf("unexpected conversation %+v with %d turns", got, len(turns))
	}
	if turns[0].Text != "स्वागत" || turns[0].Template != models.TemplateWelcome {
		t.Fatalf("unexpected first turn %+v", turns[0])
	}
	if len(turns[0].SuggestedActions) != 1 || turns[0].SuggestedActions[0].Token != "report" || turns[0].SuggestedActions[0].LabelKey != "reportIssue" {
		t.Fatalf("actions not restored: %+v", turns[0].SuggestedActions)
	}
	if turns[1].SuggestedActions != nil {
		t.Fatalf("expected no actions on user turn")
	}

	if _, _, err := svc.GetConversationWithTurns(ctx, user.ID+1, conv.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected other user to get no rows, got %v", err)
	}

	list, err := svc.ListConversations(ctx, user.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list conversations: %v %d", err, len(list))
	}

	if err := svc.DeleteConversation(ctx, user.ID+1, conv.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected no rows deleting foreign conversation, got %v", err)
	}
	if err := svc.DeleteConversation(ctx, user.ID, conv.ID); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM turns WHERE conversation_id = ?`, conv.ID).Scan(&count); err != nil {
		t.Fatalf("count turns: %v", err)
	}
	if count != 0 {
		t.Fatalf("turns not deleted")
	}
}

func TestAdvisorHistory(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, Registration{Username: "meera", Password: "secret"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	base := time.Now().UTC()
	for i, q := range []string{"first", "second", "third"} {
		ex := &models.AdvisorExchange{UserID: user.ID, Query: q, Response: "a", Locale: "en", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := svc.SaveAdvisorExchange(ctx, ex); err != nil {
			t.Fatalf("save: %v", err)
		}
		if ex.ID <= 0 {
			t.Fatalf("expected id")
		}
	}
	history, err := svc.ListAdvisorHistory(ctx, user.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 || history[0].Query != "second" || history[1].Query != "third" {
		t.Fatalf("unexpected history order: %+v", history)
	}
	if err := svc.SaveAdvisorExchange(ctx, &models.AdvisorExchange{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

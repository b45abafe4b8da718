package assistant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jalsaathi/internal/models"
)

// CreateConversation inserts a new conversation for the user.
func (s *Service) CreateConversation(ctx context.Context, userID int64, locale string) (*models.Conversation, error) {
	if userID <= 0 {
		return nil, errors.New("user_id is required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}
	now := time.Now().UTC()
	conv := &models.Conversation{ID: id.String(), UserID: userID, Locale: locale, CreatedAt: now, UpdatedAt: now}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, locale, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.Locale, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns a user's conversations, most recently active first.
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, locale, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Locale, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConversationWithTurns returns one conversation and its turns in
// transcript order. A conversation owned by someone else is sql.ErrNoRows.
func (s *Service) GetConversationWithTurns(ctx context.Context, userID int64, conversationID string) (*models.Conversation, []*models.Turn, error) {
	var conv models.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, locale, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	).Scan(&conv.ID, &conv.UserID, &conv.Locale, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("get conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, sender, text, template, intent, actions, created_at FROM turns WHERE conversation_id = ? ORDER BY seq ASC`,
		conversationID,
	)
	if err != nil {
		return &conv, nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []*models.Turn
	for rows.Next() {
		var (
			t       models.Turn
			sender  string
			tmpl    string
			actions string
		)
		if err := rows.Scan(&t.ID, &t.Seq, &sender, &t.Text, &tmpl, &t.Intent, &actions, &t.CreatedAt); err != nil {
			return &conv, nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Sender = models.Sender(sender)
		t.Template = models.TemplateID(tmpl)
		if actions != "" && actions != "[]" {
			if err := json.Unmarshal([]byte(actions), &t.SuggestedActions); err != nil {
				return &conv, nil, fmt.Errorf("decode actions of turn %s: %w", t.ID, err)
			}
		}
		turns = append(turns, &t)
	}
	return &conv, turns, rows.Err()
}

// AppendTurn stores a turn and touches the conversation's updated_at.
func (s *Service) AppendTurn(ctx context.Context, conversationID string, turn *models.Turn) error {
	if turn == nil {
		return errors.New("turn is required")
	}
	actions, err := encodeActions(turn.SuggestedActions)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (id, conversation_id, seq, sender, text, template, intent, actions, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, conversationID, turn.Seq, string(turn.Sender), turn.Text, string(turn.Template), turn.Intent, actions, turn.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// UpdateTurnText rewrites a turn's text and action labels after relocalization.
func (s *Service) UpdateTurnText(ctx context.Context, conversationID string, turn *models.Turn) error {
	if turn == nil {
		return errors.New("turn is required")
	}
	actions, err := encodeActions(turn.SuggestedActions)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE turns SET text = ?, actions = ? WHERE id = ? AND conversation_id = ?`,
		turn.Text, actions, turn.ID, conversationID,
	)
	if err != nil {
		return fmt.Errorf("update turn: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("turn rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateConversationLocale records the locale the user switched to.
func (s *Service) UpdateConversationLocale(ctx context.Context, userID int64, conversationID, locale string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET locale = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		locale, time.Now().UTC(), conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("update conversation locale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conversation rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteConversation removes a conversation and its turns for the user.
func (s *Service) DeleteConversation(ctx context.Context, userID int64, conversationID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ? AND user_id = ?`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conversation rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete conversation: %w", err)
	}
	return nil
}

func encodeActions(actions []models.SuggestedAction) (string, error) {
	if len(actions) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("encode actions: %w", err)
	}
	return string(data), nil
}

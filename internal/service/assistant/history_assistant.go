package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jalsaathi/internal/models"
)

// SaveAdvisorExchange stores one advisor question and its answer.
func (s *Service) SaveAdvisorExchange(ctx context.Context, ex *models.AdvisorExchange) error {
	if ex == nil || ex.UserID <= 0 {
		return errors.New("user_id is required")
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, query, response, locale, created_at) VALUES (?, ?, ?, ?, ?)`,
		ex.UserID, ex.Query, ex.Response, ex.Locale, ex.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chat history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("chat history id: %w", err)
	}
	ex.ID = id
	return nil
}

// ListAdvisorHistory returns the user's latest exchanges, oldest first.
func (s *Service) ListAdvisorHistory(ctx context.Context, userID int64, limit int) ([]*models.AdvisorExchange, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, query, response, locale, created_at FROM chat_history WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	defer rows.Close()

	var out []*models.AdvisorExchange
	for rows.Next() {
		ex := new(models.AdvisorExchange)
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.Query, &ex.Response, &ex.Locale, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat history: %w", err)
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

package flags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jalsaathi/internal/logging"
)

// SQL stores flags in the flags table created by storage.Migrate.
type SQL struct {
	db     *sql.DB
	driver string
}

func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: strings.ToLower(driver)}
}

func (s *SQL) Get(ctx context.Context, scope, name string) (bool, error) {
	if err := validate(scope, name); err != nil {
		return false, err
	}
	var value bool
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM flags WHERE scope = ? AND name = ?`, scope, name,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get flag %s: %w", name, err)
	}
	return value, nil
}

func (s *SQL) Set(ctx context.Context, scope, name string, value bool) error {
	if err := validate(scope, name); err != nil {
		return err
	}
	var stmt string
	if s.driver == "mysql" {
		stmt = `INSERT INTO flags (scope, name, value, updated_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`
	} else {
		stmt = `INSERT INTO flags (scope, name, value, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(scope, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	}
	if _, err := s.db.ExecContext(ctx, stmt, scope, name, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("set flag %s: %w", name, err)
	}
	return nil
}

// Layered reads through a Redis cache in front of a durable store.
type Layered struct {
	primary Store
	cache   *Redis
}

func NewLayered(primary Store, cache *Redis) *Layered {
	return &Layered{primary: primary, cache: cache}
}

func (l *Layered) Get(ctx context.Context, scope, name string) (bool, error) {
	if l.cache != nil {
		value, found, err := l.cache.lookup(ctx, scope, name)
		if err == nil && found {
			return value, nil
		}
		if err != nil {
			logging.L().WithError(err).Warn("flags: cache lookup failed")
		}
	}
	value, err := l.primary.Get(ctx, scope, name)
	if err != nil {
		return false, err
	}
	if l.cache != nil {
		if err := l.cache.Set(ctx, scope, name, value); err != nil {
			logging.L().WithError(err).Warn("flags: cache fill failed")
		}
	}
	return value, nil
}

func (l *Layered) Set(ctx context.Context, scope, name string, value bool) error {
	if err := l.primary.Set(ctx, scope, name, value); err != nil {
		return err
	}
	if l.cache != nil {
		if err := l.cache.Set(ctx, scope, name, value); err != nil {
			logging.L().WithError(err).Warn("flags: cache write failed")
		}
	}
	return nil
}

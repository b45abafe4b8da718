// Package flags persists per-scope boolean flags such as the welcome marker.
package flags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Store keeps flags grouped by scope.
type Store interface {
	Get(ctx context.Context, scope, name string) (bool, error)
	Set(ctx context.Context, scope, name string, value bool) error
}

// UserScope is the scope of flags that belong to one user.
func UserScope(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// Scoped binds a Store to one scope. It satisfies chat.FlagStore.
type Scoped struct {
	store Store
	scope string
}

// For returns the view of store restricted to scope.
func For(store Store, scope string) Scoped {
	return Scoped{store: store, scope: scope}
}

func (s Scoped) GetFlag(ctx context.Context, name string) (bool, error) {
	if s.store == nil {
		return false, errors.New("flag store not configured")
	}
	return s.store.Get(ctx, s.scope, name)
}

func (s Scoped) SetFlag(ctx context.Context, name string, value bool) error {
	if s.store == nil {
		return errors.New("flag store not configured")
	}
	return s.store.Set(ctx, s.scope, name, value)
}

func validate(scope, name string) error {
	if strings.TrimSpace(scope) == "" {
		return errors.New("flag scope required")
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("flag name required")
	}
	return nil
}

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewMemory() *Memory {
	return &Memory{flags: make(map[string]bool)}
}

func (m *Memory) Get(_ context.Context, scope, name string) (bool, error) {
	if err := validate(scope, name); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[scope+"\x00"+name], nil
}

func (m *Memory) Set(_ context.Context, scope, name string, value bool) error {
	if err := validate(scope, name); err != nil {
		return err
	}
	m.mu.Lock()
	m.flags[scope+"\x00"+name] = value
	m.mu.Unlock()
	return nil
}

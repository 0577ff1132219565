package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/endpoint"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/event"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/placeholder"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/storage"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// CreateOptions describe a session to create.
type CreateOptions struct {
	BasePrompt string
	Profile    string
	Config     types.EndpointConfig

	// Files lists selected files whose contents become the session's file
	// context. Unreadable files fail the creation.
	Files []string

	// Substitutions carries keyed placeholder values bound for the
	// session's lifetime.
	Substitutions *placeholder.Context
}

// storedSession is the persisted form of a session: the wire snapshot plus
// what a revival needs to keep invoking.
type storedSession struct {
	Info        *types.Session       `json:"info"`
	Config      types.EndpointConfig `json:"config"`
	Previous    string               `json:"previous,omitempty"`
	FileContext string               `json:"fileContext,omitempty"`
}

// Manager is the server-side session registry. Live sessions are held in
// memory; snapshots are persisted through storage so sessions survive a
// restart as idle conversations.
type Manager struct {
	mu   sync.RWMutex
	live map[string]*Session

	storage  *storage.Storage
	invoker  *endpoint.Invoker
	resolver *placeholder.Resolver
}

// NewManager creates a session manager. Storage may be nil for ephemeral
// registries.
func NewManager(store *storage.Storage, invoker *endpoint.Invoker, resolver *placeholder.Resolver) *Manager {
	return &Manager{
		live:     make(map[string]*Session),
		storage:  store,
		invoker:  invoker,
		resolver: resolver,
	}
}

// Create registers a new idle session. No invocation is started.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*Session, error) {
	fileContext, err := readFileContext(opts.Files)
	if err != nil {
		return nil, err
	}

	sess := New(Options{
		BasePrompt:    opts.BasePrompt,
		Profile:       opts.Profile,
		Config:        opts.Config,
		FileContext:   fileContext,
		Substitutions: opts.Substitutions,
		Invoker:       m.invoker,
		Resolver:      m.resolver,
		Storage:       m.storage,
	})

	m.mu.Lock()
	m.live[sess.ID()] = sess
	m.mu.Unlock()

	if m.storage != nil {
		rec := &storedSession{Info: sess.Snapshot(), Config: opts.Config, FileContext: fileContext}
		if err := m.storage.Put(ctx, []string{"session", sess.ID()}, rec); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	logging.Info().
		Str("session", sess.ID()).
		Str("profile", opts.Profile).
		Msg("session created")
	event.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionCreatedData{Info: sess.Snapshot()},
	})
	return sess, nil
}

// Get returns the live session for id, reviving it from storage when the
// registry does not hold it.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.live[id]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if m.storage == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var rec storedSession
	if err := m.storage.Get(ctx, []string{"session", id}, &rec); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	if rec.Info == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	revived := m.revive(&rec)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.live[id]; ok {
		return existing, nil
	}
	m.live[id] = revived
	return revived, nil
}

// List returns snapshots of every session, most recently updated first. Live
// sessions shadow their stored snapshots.
func (m *Manager) List(ctx context.Context) ([]*types.Session, error) {
	seen := make(map[string]bool)
	var out []*types.Session

	m.mu.RLock()
	for id, sess := range m.live {
		seen[id] = true
		out = append(out, sess.Snapshot())
	}
	m.mu.RUnlock()

	if m.storage != nil {
		err := m.storage.Scan(ctx, []string{"session"}, func(key string, data json.RawMessage) error {
			if seen[key] {
				return nil
			}
			var rec storedSession
			if err := json.Unmarshal(data, &rec); err != nil || rec.Info == nil {
				logging.Warn().Str("session", key).Msg("skipping unreadable session record")
				return nil
			}
			out = append(out, rec.Info)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Time.Updated > out[j].Time.Updated
	})
	return out, nil
}

// Delete closes the session and removes it from the registry and storage.
func (m *Manager) Delete(ctx context.Context, id string) error {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.Close()

	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()

	if m.storage != nil {
		if err := m.storage.Delete(ctx, []string{"session", id}); err != nil {
			return err
		}
	}

	logging.Info().Str("session", id).Msg("session deleted")
	event.Publish(event.Event{
		Type: event.SessionDeleted,
		Data: event.SessionDeletedData{SessionID: id},
	})
	return nil
}

// revive reconstructs a live session from its stored record. In-flight state
// cannot survive a restart, so anything short of closed loads as idle.
func (m *Manager) revive(rec *storedSession) *Session {
	sess := New(Options{
		ID:          rec.Info.ID,
		BasePrompt:  rec.Info.BasePrompt,
		Profile:     rec.Info.Profile,
		Config:      rec.Config,
		FileContext: rec.FileContext,
		Invoker:     m.invoker,
		Resolver:    m.resolver,
		Storage:     m.storage,
	})
	if len(rec.Info.History) > 0 {
		sess.history = append([]string(nil), rec.Info.History...)
	}
	sess.previous = rec.Previous
	sess.data = rec.Info.View.Data
	sess.errText = rec.Info.View.Error
	if rec.Info.State == types.SessionClosed {
		sess.state = types.SessionClosed
	}
	sess.created = rec.Info.Time.Created
	sess.updated = rec.Info.Time.Updated
	return sess
}

// readFileContext loads the selected files into one context block, each file
// behind a filename header.
func readFileContext(paths []string) (string, error) {
	var b strings.Builder
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read context file: %w", err)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s:\n%s", filepath.Base(path), strings.TrimRight(string(data), "\n"))
	}
	return b.String(), nil
}

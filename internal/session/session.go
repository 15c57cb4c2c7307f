package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felitsch/postforge/internal/arbiter"
	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/history"
	"github.com/felitsch/postforge/internal/infra/limiter"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/pkg/errors"
)

// Session bundles the single-owner state of one editing session: the
// draft store, its history manager, and its generation arbiter. Many
// sessions run in isolation; nothing here is global.
type Session struct {
	ID        string
	Store     *draft.Store
	History   *history.Manager
	Arbiter   *arbiter.Arbiter
	CreatedAt time.Time
}

// Options configures the per-session components.
type Options struct {
	Debounce time.Duration
	MaxDepth int
}

func newSession(id string, initial draft.Draft, client arbiter.Client, lim *limiter.Limiter, opts Options, log *logger.Logger) *Session {
	store := draft.NewStore(initial)
	hist := history.New(store, opts.Debounce, opts.MaxDepth, log)
	arb := arbiter.New(store, client, lim, log)

	// A freshly applied full generation starts a new editing phase;
	// the first undo must not erase it.
	arb.OnFullApplied(func() {
		hist.InitFromState(store.State())
	})

	hist.InitFromState(store.State())
	hist.Start()

	return &Session{
		ID:        id,
		Store:     store,
		History:   hist,
		Arbiter:   arb,
		CreatedAt: time.Now(),
	}
}

// Close tears the session down, flushing the history debounce timer so
// no snapshot fires after teardown.
func (s *Session) Close() {
	s.History.Close()
}

// Registry holds the live sessions of this process, keyed by uuid.
type Registry struct {
	client arbiter.Client
	lim    *limiter.Limiter
	opts   Options
	log    *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(client arbiter.Client, lim *limiter.Limiter, opts Options, log *logger.Logger) *Registry {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 50
	}
	return &Registry{
		client:   client,
		lim:      lim,
		opts:     opts,
		log:      log,
		sessions: map[string]*Session{},
	}
}

// Create opens a session, optionally rehydrated from a persisted
// in-progress draft.
func (r *Registry) Create(initial draft.Draft) *Session {
	id := uuid.New().String()
	s := newSession(id, initial, r.client, r.lim, r.opts, r.log.With("session_id", id))

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.log.Info("session created", "session_id", id, "slides", len(s.Store.State().Slides))
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "session not found")
	}
	return s, nil
}

// Remove closes and forgets a session.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return errors.New(errors.ErrCodeNotFound, "session not found")
	}
	s.Close()
	r.log.Info("session closed", "session_id", id)
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

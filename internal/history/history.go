package history

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/infra/logger"
)

// Snapshot is one immutable undo/redo entry: the editable subset of the
// draft at a settled moment.
type Snapshot struct {
	State   draft.Editable
	TakenAt time.Time
}

// Manager keeps a linear snapshot stack with a cursor over one draft
// store. Edits are observed through the store's commit events and
// recorded on a debounced cadence; undo/redo replay snapshots under an
// "applying" guard so replay never records itself.
type Manager struct {
	store    *draft.Store
	log      *logger.Logger
	debounce time.Duration
	maxDepth int

	applying  atomic.Bool
	listening atomic.Bool

	mu      sync.Mutex
	stack   []Snapshot
	cursor  int
	timer   *time.Timer
	pending *draft.Editable

	now func() time.Time
}

func New(store *draft.Store, debounce time.Duration, maxDepth int, log *logger.Logger) *Manager {
	m := &Manager{
		store:    store,
		log:      log,
		debounce: debounce,
		maxDepth: maxDepth,
		cursor:   -1,
		now:      time.Now,
	}
	store.OnCommit(m.onCommit)
	return m
}

// Start begins observing edits. Listening is explicit so earlier wizard
// phases do not accumulate history irrelevant to editing.
func (m *Manager) Start() { m.listening.Store(true) }

// Stop pauses observation without discarding the stack.
func (m *Manager) Stop() { m.listening.Store(false) }

// Close stops listening and cancels any armed debounce timer so no
// snapshot fires after session teardown.
func (m *Manager) Close() {
	m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = nil
}

func (m *Manager) onCommit(ev draft.Event) {
	if !m.listening.Load() || m.applying.Load() {
		return
	}
	if ev.Programmatic {
		// Wholesale replacement is recorded by whoever replaced the
		// state (InitFromState after generation), not by the observer.
		return
	}
	m.Record(m.store.State().Editable())
}

// Record schedules state to be pushed once the current burst of edits
// settles.
func (m *Manager) Record(state draft.Editable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &state
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.flush)
}

func (m *Manager) flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applying.Load() {
		// Fired mid-replay; try again after the replay settles so the
		// burst is not left waiting for the next explicit flush.
		if m.pending != nil {
			m.timer = time.AfterFunc(m.debounce, m.flush)
		}
		return
	}
	m.flushLocked()
}

func (m *Manager) flushLocked() {
	if m.pending == nil {
		return
	}
	m.pushLocked(Snapshot{State: *m.pending, TakenAt: m.now()})
	m.pending = nil
}

func (m *Manager) pushLocked(snap Snapshot) {
	// Pushing while behind the top discards forward history.
	m.stack = append(m.stack[:m.cursor+1], snap)
	if m.maxDepth > 0 && len(m.stack) > m.maxDepth {
		drop := len(m.stack) - m.maxDepth
		m.stack = append([]Snapshot(nil), m.stack[drop:]...)
	}
	m.cursor = len(m.stack) - 1
}

// InitFromState resets the stack to a single entry, so the first undo
// after entering the editing phase cannot erase freshly generated
// content.
func (m *Manager) InitFromState(d draft.Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = nil
	m.stack = []Snapshot{{State: d.Editable(), TakenAt: m.now()}}
	m.cursor = 0
}

// Undo replays the previous snapshot into the store. Un-flushed edits
// are pushed first so the latest burst is itself undoable.
func (m *Manager) Undo() bool {
	m.mu.Lock()
	m.flushLocked()
	if m.cursor <= 0 {
		m.mu.Unlock()
		return false
	}
	m.cursor--
	snap := m.stack[m.cursor]
	m.mu.Unlock()

	m.apply(snap)
	return true
}

// Redo is symmetric to Undo.
func (m *Manager) Redo() bool {
	m.mu.Lock()
	m.flushLocked()
	if m.cursor < 0 || m.cursor >= len(m.stack)-1 {
		m.mu.Unlock()
		return false
	}
	m.cursor++
	snap := m.stack[m.cursor]
	m.mu.Unlock()

	m.apply(snap)
	return true
}

func (m *Manager) apply(snap Snapshot) {
	m.applying.Store(true)
	defer m.applying.Store(false)
	m.store.Restore(snap.State)
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0 || m.pending != nil && m.cursor >= 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor >= 0 && m.cursor < len(m.stack)-1
}

// Depth returns the number of snapshots currently held.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack)
}

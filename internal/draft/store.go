package draft

import (
	"sync"

	"github.com/felitsch/postforge/pkg/errors"
	"github.com/felitsch/postforge/pkg/util"
)

// Event describes one committed mutation of the store. Programmatic is
// true for wholesale state replacement (generation apply, history
// replay), false for incremental edits; observers react differently to
// the two.
type Event struct {
	Programmatic bool
}

// Store owns the single live draft of an editing session. It is the
// only writer-facing handle; renderers and exporters read copies via
// State and never see the mutable value.
type Store struct {
	mu       sync.Mutex
	draft    Draft
	dirty    bool
	onCommit []func(Event)
}

// NewStore builds a store around initial, guaranteeing the at-least-one
// -slide invariant.
func NewStore(initial Draft) *Store {
	d := initial.Clone()
	if len(d.Slides) == 0 {
		d.Slides = []Slide{{BackgroundType: BackgroundColor, BackgroundValue: "#16324f"}}
	}
	if d.SelectedPlatforms == nil {
		d.SelectedPlatforms = map[Platform]bool{}
	}
	return &Store{draft: d}
}

// OnCommit registers fn to run after every committed mutation. The
// callback runs outside the store lock.
func (s *Store) OnCommit(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = append(s.onCommit, fn)
}

// State returns a deep copy of the current draft.
func (s *Store) State() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

func (s *Store) commit(ev Event, mutate func(d *Draft) error) error {
	s.mu.Lock()
	if err := mutate(&s.draft); err != nil {
		s.mu.Unlock()
		return err
	}
	s.dirty = true
	listeners := make([]func(Event), len(s.onCommit))
	copy(listeners, s.onCommit)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
	return nil
}

// Replace swaps the whole draft programmatically. Used by accepted
// generation results; the one-slide invariant still holds.
func (s *Store) Replace(d Draft) {
	next := d.Clone()
	s.commit(Event{Programmatic: true}, func(cur *Draft) error {
		if len(next.Slides) == 0 {
			next.Slides = cur.Slides[:1:1]
		}
		if next.SelectedPlatforms == nil {
			next.SelectedPlatforms = cur.SelectedPlatforms
		}
		*cur = next
		return nil
	})
}

// Restore replays a history snapshot over the editable subset, leaving
// platform selection and arc linkage untouched. Replay is idempotent:
// a snapshot slide without an identity token reuses the live slide's
// token at the same position, so repeated undo/redo never mints fresh
// ones and a round trip restores the exact prior state.
func (s *Store) Restore(e Editable) {
	s.commit(Event{Programmatic: true}, func(cur *Draft) error {
		slides := append([]Slide(nil), e.Slides...)
		if len(slides) == 0 {
			slides = cur.Slides[:1:1]
		}
		for i := range slides {
			if slides[i].DragID == "" && i < len(cur.Slides) {
				slides[i].DragID = cur.Slides[i].DragID
			}
		}
		cur.Slides = slides
		cur.CaptionA = e.CaptionA
		cur.CaptionB = e.CaptionB
		cur.HashtagsA = e.HashtagsA
		cur.HashtagsB = e.HashtagsB
		cur.CTAText = e.CTAText
		return nil
	})
}

// SetField writes one regenerable field as an ordinary edit.
func (s *Store) SetField(f Field, slideIndex int, value string) error {
	return s.commit(Event{}, func(d *Draft) error {
		return f.set(d, slideIndex, value)
	})
}

func (s *Store) SetCategory(v string) {
	s.commit(Event{}, func(d *Draft) error { d.Category = v; return nil })
}

func (s *Store) SetPlatform(p Platform) error {
	if !p.Valid() {
		return errors.New(errors.ErrCodeValidation, "unknown platform "+string(p))
	}
	return s.commit(Event{}, func(d *Draft) error { d.Platform = p; return nil })
}

func (s *Store) SetSelectedPlatforms(ps []Platform) error {
	selected := make(map[Platform]bool, len(ps))
	for _, p := range ps {
		if !p.Valid() {
			return errors.New(errors.ErrCodeValidation, "unknown platform "+string(p))
		}
		selected[p] = true
	}
	return s.commit(Event{}, func(d *Draft) error { d.SelectedPlatforms = selected; return nil })
}

func (s *Store) SetArc(arc *Arc) {
	s.commit(Event{}, func(d *Draft) error {
		if arc == nil {
			d.Arc = nil
			return nil
		}
		a := *arc
		d.Arc = &a
		return nil
	})
}

// AddSlide appends sl and returns the new slide count.
func (s *Store) AddSlide(sl Slide) int {
	var n int
	s.commit(Event{}, func(d *Draft) error {
		if sl.BackgroundType == "" {
			sl.BackgroundType = BackgroundColor
			sl.BackgroundValue = "#16324f"
		}
		d.Slides = append(d.Slides, sl)
		n = len(d.Slides)
		return nil
	})
	return n
}

// RemoveSlide deletes the slide at index. Removing the last remaining
// slide is a no-op; the return value reports whether anything changed.
func (s *Store) RemoveSlide(index int) (bool, error) {
	removed := false
	err := s.commit(Event{}, func(d *Draft) error {
		if index < 0 || index >= len(d.Slides) {
			return errors.New(errors.ErrCodeValidation, "slide index out of range")
		}
		if len(d.Slides) == 1 {
			return nil
		}
		d.Slides = append(d.Slides[:index], d.Slides[index+1:]...)
		removed = true
		return nil
	})
	return removed, err
}

// MoveSlide reorders one slide. All slides get identity tokens on the
// first reorder so a diffing UI can track them.
func (s *Store) MoveSlide(from, to int) error {
	return s.commit(Event{}, func(d *Draft) error {
		if from < 0 || from >= len(d.Slides) || to < 0 || to >= len(d.Slides) {
			return errors.New(errors.ErrCodeValidation, "slide index out of range")
		}
		assignDragIDs(d.Slides)
		if from == to {
			return nil
		}
		sl := d.Slides[from]
		d.Slides = append(d.Slides[:from], d.Slides[from+1:]...)
		rest := append([]Slide(nil), d.Slides[to:]...)
		d.Slides = append(append(d.Slides[:to:to], sl), rest...)
		return nil
	})
}

func assignDragIDs(slides []Slide) {
	for i := range slides {
		if slides[i].DragID == "" {
			slides[i].DragID = "drag-" + util.RandomString(12)
		}
	}
}

package arbiter

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/infra/limiter"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/internal/service/genai"
	"github.com/felitsch/postforge/pkg/errors"
)

// Kind distinguishes a whole-draft generation from a single-field one.
type Kind string

const (
	KindFull  Kind = "full"
	KindField Kind = "field"
)

// Client is the generation-service boundary the arbiter talks to.
type Client interface {
	GeneratePost(ctx context.Context, params genai.PostParams) (*genai.PostResult, error)
	RegenerateField(ctx context.Context, params genai.FieldParams) (string, error)
}

// Pending is a generated result that arrived after the user edited the
// same content by hand. It is never auto-applied; the user accepts or
// dismisses it. At most one exists per arbiter.
type Pending struct {
	Kind       Kind
	Field      draft.Field
	SlideIndex int
	Value      string
	Full       *genai.PostResult
	Seq        uint64
}

// ErrInFlight is returned when a generation of the same kind is already
// outstanding; rapid repeated invocations are rejected as no-ops.
var ErrInFlight = errors.New(errors.ErrCodeConflict, "generation already in flight")

// Arbiter issues generation requests tagged with a monotonically
// increasing sequence number and reconciles late responses against
// concurrent manual edits. Recency governs precedence: only the most
// recently issued request may apply its result.
type Arbiter struct {
	store  *draft.Store
	client Client
	lim    *limiter.Limiter
	log    *logger.Logger

	mu       sync.Mutex
	seq      uint64
	inFlight map[Kind]bool
	pending  *Pending

	onFullApplied func()
}

func New(store *draft.Store, client Client, lim *limiter.Limiter, log *logger.Logger) *Arbiter {
	return &Arbiter{
		store:    store,
		client:   client,
		lim:      lim,
		log:      log,
		inFlight: map[Kind]bool{},
	}
}

// OnFullApplied registers a hook that runs after a full generation
// result lands in the store (directly or via accept).
func (a *Arbiter) OnFullApplied(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFullApplied = fn
}

func (a *Arbiter) begin(kind Kind) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight[kind] {
		return 0, ErrInFlight
	}
	a.seq++
	a.inFlight[kind] = true
	return a.seq, nil
}

func (a *Arbiter) finish(kind Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight[kind] = false
}

// current reports whether seq is still the newest issued request.
func (a *Arbiter) current(seq uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return seq == a.seq
}

// GenerateFull requests a whole draft. On success the result is applied
// only when no newer request exists and the slides were not hand-edited
// while the call was outstanding; an edit turns the result into the
// pending slot instead.
func (a *Arbiter) GenerateFull(ctx context.Context, params genai.PostParams) error {
	seq, err := a.begin(KindFull)
	if err != nil {
		return err
	}
	defer a.finish(KindFull)

	before := marshalSlides(a.store.State().Slides)

	release, ok := a.lim.TryAcquire()
	if !ok {
		return errors.New(errors.ErrCodeRateLimited, "too many generation requests, slow down")
	}
	defer release()

	result, err := a.client.GeneratePost(ctx, params)
	if err != nil {
		a.log.Error("full generation failed", "seq", seq, "code", errors.Code(err))
		return err
	}

	if !a.current(seq) {
		a.log.Info("discarding superseded generation result", "seq", seq)
		return nil
	}

	if !bytes.Equal(marshalSlides(a.store.State().Slides), before) {
		a.setPending(&Pending{Kind: KindFull, Full: result, Seq: seq})
		a.log.Info("generation result held pending user confirmation", "seq", seq)
		return nil
	}

	a.applyFull(result)
	a.clearPending()
	return nil
}

// RegenerateField requests one field. The conflict comparison covers
// only the targeted field value.
func (a *Arbiter) RegenerateField(ctx context.Context, field draft.Field, slideIndex int, params genai.FieldParams) error {
	if !field.Valid() {
		return errors.New(errors.ErrCodeValidation, "unknown field "+string(field))
	}
	state := a.store.State()
	before, err := field.Get(&state, slideIndex)
	if err != nil {
		return err
	}

	seq, err := a.begin(KindField)
	if err != nil {
		return err
	}
	defer a.finish(KindField)

	release, ok := a.lim.TryAcquire()
	if !ok {
		return errors.New(errors.ErrCodeRateLimited, "too many generation requests, slow down")
	}
	defer release()

	params.Field = string(field)
	params.SlideIndex = slideIndex
	params.Current = before

	value, err := a.client.RegenerateField(ctx, params)
	if err != nil {
		a.log.Error("field regeneration failed", "seq", seq, "field", field, "code", errors.Code(err))
		return err
	}

	if !a.current(seq) {
		a.log.Info("discarding superseded field result", "seq", seq, "field", field)
		return nil
	}

	state = a.store.State()
	now, err := field.Get(&state, slideIndex)
	if err != nil {
		return err
	}
	if now != before {
		a.setPending(&Pending{Kind: KindField, Field: field, SlideIndex: slideIndex, Value: value, Seq: seq})
		a.log.Info("field result held pending user confirmation", "seq", seq, "field", field)
		return nil
	}

	if err := a.store.SetField(field, slideIndex, value); err != nil {
		return err
	}
	a.clearPendingFor(field, slideIndex)
	return nil
}

// Pending returns a copy of the undecided result, if any.
func (a *Arbiter) Pending() *Pending {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return nil
	}
	p := *a.pending
	return &p
}

// AcceptPending applies the held result and clears the slot.
func (a *Arbiter) AcceptPending() error {
	a.mu.Lock()
	p := a.pending
	a.pending = nil
	a.mu.Unlock()

	if p == nil {
		return errors.New(errors.ErrCodeNotFound, "no pending generation result")
	}
	if p.Kind == KindFull {
		a.applyFull(p.Full)
		return nil
	}
	return a.store.SetField(p.Field, p.SlideIndex, p.Value)
}

// DismissPending drops the held result, keeping the manual edit.
func (a *Arbiter) DismissPending() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return errors.New(errors.ErrCodeNotFound, "no pending generation result")
	}
	a.pending = nil
	return nil
}

func (a *Arbiter) applyFull(result *genai.PostResult) {
	cur := a.store.State()
	cur.Slides = result.Slides
	cur.CaptionA = result.CaptionA
	cur.CaptionB = result.CaptionB
	cur.HashtagsA = result.HashtagsA
	cur.HashtagsB = result.HashtagsB
	cur.CTAText = result.CTAText
	a.store.Replace(cur)

	a.mu.Lock()
	hook := a.onFullApplied
	a.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// setPending overwrites any undecided earlier result; the newer one
// supersedes it.
func (a *Arbiter) setPending(p *Pending) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = p
}

func (a *Arbiter) clearPending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil
}

// clearPendingFor drops a stale pending value for the same field after
// a clean apply landed newer content there.
func (a *Arbiter) clearPendingFor(field draft.Field, slideIndex int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil && a.pending.Kind == KindField &&
		a.pending.Field == field && a.pending.SlideIndex == slideIndex {
		a.pending = nil
	}
}

func marshalSlides(slides []draft.Slide) []byte {
	b, _ := json.Marshal(draft.StripDragIDs(slides))
	return b
}

package arbiter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/infra/limiter"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/internal/service/genai"
	"github.com/felitsch/postforge/pkg/errors"
)

type fakeClient struct {
	generateFunc func(ctx context.Context, params genai.PostParams) (*genai.PostResult, error)
	fieldFunc    func(ctx context.Context, params genai.FieldParams) (string, error)
}

func (f *fakeClient) GeneratePost(ctx context.Context, params genai.PostParams) (*genai.PostResult, error) {
	return f.generateFunc(ctx, params)
}

func (f *fakeClient) RegenerateField(ctx context.Context, params genai.FieldParams) (string, error) {
	return f.fieldFunc(ctx, params)
}

func fullResult(headline string) *genai.PostResult {
	return &genai.PostResult{
		Slides:   []draft.Slide{{Headline: headline}},
		CaptionA: "generated caption",
	}
}

func newFixture(client *fakeClient) (*draft.Store, *Arbiter) {
	store := draft.NewStore(draft.Draft{Slides: []draft.Slide{{Headline: "original"}}})
	a := New(store, client, limiter.New(4, 1000), logger.NewNop())
	return store, a
}

func TestGenerateFull_CleanApply(t *testing.T) {
	client := &fakeClient{
		generateFunc: func(context.Context, genai.PostParams) (*genai.PostResult, error) {
			return fullResult("generated"), nil
		},
	}
	store, a := newFixture(client)

	applied := 0
	a.OnFullApplied(func() { applied++ })

	require.NoError(t, a.GenerateFull(context.Background(), genai.PostParams{}))

	state := store.State()
	assert.Equal(t, "generated", state.Slides[0].Headline)
	assert.Equal(t, "generated caption", state.CaptionA)
	assert.Nil(t, a.Pending())
	assert.Equal(t, 1, applied)
}

func TestSupersededResultDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &fakeClient{
		generateFunc: func(context.Context, genai.PostParams) (*genai.PostResult, error) {
			close(started)
			<-release
			return fullResult("stale"), nil
		},
		fieldFunc: func(context.Context, genai.FieldParams) (string, error) {
			return "fresh caption", nil
		},
	}
	store, a := newFixture(client)

	done := make(chan error, 1)
	go func() { done <- a.GenerateFull(context.Background(), genai.PostParams{}) }()
	<-started

	// A newer request is issued and resolves first.
	require.NoError(t, a.RegenerateField(context.Background(), draft.FieldCaptionA, 0, genai.FieldParams{}))
	assert.Equal(t, "fresh caption", store.State().CaptionA)

	// The older request resolves last but is no longer current, so its
	// result is dropped even though it would be safe to apply.
	close(release)
	require.NoError(t, <-done)

	state := store.State()
	assert.Equal(t, "original", state.Slides[0].Headline)
	assert.Equal(t, "fresh caption", state.CaptionA)
	assert.Nil(t, a.Pending())
}

func TestManualEditDuringFullGenerationGoesPending(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &fakeClient{
		generateFunc: func(context.Context, genai.PostParams) (*genai.PostResult, error) {
			close(started)
			<-release
			return fullResult("generated"), nil
		},
	}
	store, a := newFixture(client)

	done := make(chan error, 1)
	go func() { done <- a.GenerateFull(context.Background(), genai.PostParams{}) }()
	<-started

	require.NoError(t, store.SetField(draft.FieldHeadline, 0, "hand edit"))
	close(release)
	require.NoError(t, <-done)

	// Never auto-applied over the manual edit.
	assert.Equal(t, "hand edit", store.State().Slides[0].Headline)

	p := a.Pending()
	require.NotNil(t, p)
	assert.Equal(t, KindFull, p.Kind)
	require.NotNil(t, p.Full)
	assert.Equal(t, "generated", p.Full.Slides[0].Headline)
}

func TestManualEditDuringFieldRegenerationGoesPending(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &fakeClient{
		fieldFunc: func(context.Context, genai.FieldParams) (string, error) {
			close(started)
			<-release
			return "machine headline", nil
		},
	}
	store, a := newFixture(client)

	done := make(chan error, 1)
	go func() {
		done <- a.RegenerateField(context.Background(), draft.FieldHeadline, 0, genai.FieldParams{})
	}()
	<-started

	require.NoError(t, store.SetField(draft.FieldHeadline, 0, "typed meanwhile"))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, "typed meanwhile", store.State().Slides[0].Headline)

	p := a.Pending()
	require.NotNil(t, p)
	assert.Equal(t, KindField, p.Kind)
	assert.Equal(t, draft.FieldHeadline, p.Field)
	assert.Equal(t, "machine headline", p.Value)
}

func TestAcceptPendingAppliesAndClears(t *testing.T) {
	store, a := newFixture(&fakeClient{})
	a.setPending(&Pending{Kind: KindField, Field: draft.FieldHeadline, SlideIndex: 0, Value: "accepted"})

	require.NoError(t, a.AcceptPending())
	assert.Equal(t, "accepted", store.State().Slides[0].Headline)
	assert.Nil(t, a.Pending())

	assert.Error(t, a.AcceptPending())
}

func TestDismissPendingKeepsManualEdit(t *testing.T) {
	store, a := newFixture(&fakeClient{})
	a.setPending(&Pending{Kind: KindField, Field: draft.FieldHeadline, SlideIndex: 0, Value: "unwanted"})

	require.NoError(t, a.DismissPending())
	assert.Equal(t, "original", store.State().Slides[0].Headline)
	assert.Nil(t, a.Pending())

	assert.Error(t, a.DismissPending())
}

func TestLaterPendingSupersedesEarlier(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &fakeClient{
		fieldFunc: func(context.Context, genai.FieldParams) (string, error) {
			close(started)
			<-release
			return "newer value", nil
		},
	}
	store, a := newFixture(client)
	a.setPending(&Pending{Kind: KindField, Field: draft.FieldCaptionA, Value: "older value", Seq: 1})

	done := make(chan error, 1)
	go func() {
		done <- a.RegenerateField(context.Background(), draft.FieldHeadline, 0, genai.FieldParams{})
	}()
	<-started
	require.NoError(t, store.SetField(draft.FieldHeadline, 0, "conflict"))
	close(release)
	require.NoError(t, <-done)

	p := a.Pending()
	require.NotNil(t, p)
	assert.Equal(t, "newer value", p.Value)
	assert.Equal(t, draft.FieldHeadline, p.Field)
}

func TestCleanFieldApplyClearsStalePendingForField(t *testing.T) {
	client := &fakeClient{
		fieldFunc: func(context.Context, genai.FieldParams) (string, error) {
			return "clean value", nil
		},
	}
	store, a := newFixture(client)
	a.setPending(&Pending{Kind: KindField, Field: draft.FieldHeadline, SlideIndex: 0, Value: "stale"})

	require.NoError(t, a.RegenerateField(context.Background(), draft.FieldHeadline, 0, genai.FieldParams{}))

	assert.Equal(t, "clean value", store.State().Slides[0].Headline)
	assert.Nil(t, a.Pending())
}

func TestDuplicateInFlightRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &fakeClient{
		generateFunc: func(context.Context, genai.PostParams) (*genai.PostResult, error) {
			close(started)
			<-release
			return fullResult("x"), nil
		},
	}
	_, a := newFixture(client)

	done := make(chan error, 1)
	go func() { done <- a.GenerateFull(context.Background(), genai.PostParams{}) }()
	<-started

	err := a.GenerateFull(context.Background(), genai.PostParams{})
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestRateLimiterRejectionSurfaced(t *testing.T) {
	client := &fakeClient{
		generateFunc: func(context.Context, genai.PostParams) (*genai.PostResult, error) {
			return fullResult("x"), nil
		},
	}
	store := draft.NewStore(draft.Draft{})
	a := New(store, client, limiter.New(1, 0.5), logger.NewNop())

	require.NoError(t, a.GenerateFull(context.Background(), genai.PostParams{}))

	err := a.GenerateFull(context.Background(), genai.PostParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRateLimited, errors.Code(err))
}

func TestGenerationErrorSurfaced(t *testing.T) {
	client := &fakeClient{
		generateFunc: func(context.Context, genai.PostParams) (*genai.PostResult, error) {
			return nil, assert.AnError
		},
	}
	store, a := newFixture(client)

	err := a.GenerateFull(context.Background(), genai.PostParams{})
	assert.Error(t, err)
	assert.Equal(t, "original", store.State().Slides[0].Headline)
	assert.False(t, a.inFlight[KindFull])
}

func TestRegenerateField_RejectsUnknownField(t *testing.T) {
	_, a := newFixture(&fakeClient{})
	err := a.RegenerateField(context.Background(), draft.Field("bogus"), 0, genai.FieldParams{})
	assert.Error(t, err)
}

func TestRegenerateField_PassesCurrentValue(t *testing.T) {
	var got genai.FieldParams
	client := &fakeClient{
		fieldFunc: func(_ context.Context, params genai.FieldParams) (string, error) {
			got = params
			return "v", nil
		},
	}
	_, a := newFixture(client)

	require.NoError(t, a.RegenerateField(context.Background(), draft.FieldHeadline, 0, genai.FieldParams{Tone: "witty"}))
	assert.Equal(t, "headline", got.Field)
	assert.Equal(t, "original", got.Current)
	assert.Equal(t, "witty", got.Tone)
}

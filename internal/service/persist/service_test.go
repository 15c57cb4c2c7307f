package persist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felitsch/postforge/internal/draft"
	"github.com/felitsch/postforge/internal/infra/httpclient"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/pkg/errors"
)

func newTestService(baseURL string) *Service {
	client := httpclient.New(httpclient.Options{Timeout: 2 * time.Second, MaxRetries: 0})
	return New(baseURL, "backend-key", client, logger.NewNop())
}

func TestRecordFromDraft(t *testing.T) {
	d := draft.Draft{
		Slides: []draft.Slide{
			{Headline: "First headline", DragID: "drag-1"},
			{Headline: "Second", DragID: "drag-2"},
		},
		Category:  "visa",
		Country:   "spain",
		Tone:      "friendly",
		CaptionA:  "cap a",
		HashtagsA: "#one",
		CTAText:   "Follow",
		Arc:       &draft.Arc{ID: "arc-1", EpisodeNumber: 2},
	}

	rec, err := RecordFromDraft(d, draft.PlatformStory)
	require.NoError(t, err)

	assert.Equal(t, "visa", rec.Category)
	assert.Equal(t, "story", rec.Platform)
	assert.Equal(t, "First headline", rec.Title)
	assert.Equal(t, "draft", rec.Status)
	assert.Equal(t, "arc-1", rec.ArcID)
	assert.Equal(t, 2, rec.EpisodeNumber)
	assert.NotContains(t, rec.SlideData, "dragId", "identity tokens are transport-only")

	var slides []draft.Slide
	require.NoError(t, json.Unmarshal([]byte(rec.SlideData), &slides))
	require.Len(t, slides, 2)
	assert.Equal(t, "First headline", slides[0].Headline)
}

func TestSavePost(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "backend-key", r.URL.Query().Get("key"))
		var rec PostRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		assert.Equal(t, "draft", rec.Status)
		w.Write([]byte(`{"id": "post-42", "platform": "feed"}`))
	}))
	defer srv.Close()

	id, err := newTestService(srv.URL).SavePost(context.Background(), PostRecord{Status: "draft", Platform: "feed"})
	require.NoError(t, err)
	assert.Equal(t, "post-42", id)
	assert.Equal(t, "/posts", gotPath)
}

func TestSaveMultiPlatform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts/multi-platform", r.URL.Path)
		var req MultiPlatformRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"feed", "story"}, req.Platforms)
		assert.Equal(t, "feed", req.SourcePlatform)
		assert.True(t, req.AdaptContent)
		w.Write([]byte(`[{"id": "post-1", "platform": "feed"}, {"id": "post-2", "platform": "story"}]`))
	}))
	defer srv.Close()

	saved, err := newTestService(srv.URL).SaveMultiPlatform(context.Background(), MultiPlatformRequest{
		Platforms:      []string{"feed", "story"},
		SourcePlatform: "feed",
		AdaptContent:   true,
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "post-2", saved[1].ID)
	assert.Equal(t, "story", saved[1].Platform)
}

func TestRecordExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exports", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var rec ExportRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		assert.Equal(t, "post-42", rec.PostID)
		assert.Equal(t, "2160", rec.Resolution)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newTestService(srv.URL).RecordExport(context.Background(), ExportRecord{
		PostID: "post-42", Platform: "feed", Resolution: "2160", SlideCount: 5,
	})
	require.NoError(t, err)
}

func TestUpsertEpisode_UsesPut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/episodes", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)
		var ep Episode
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ep))
		assert.Equal(t, "arc-1", ep.ArcID)
		assert.Equal(t, 3, ep.EpisodeNumber)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newTestService(srv.URL).UpsertEpisode(context.Background(), Episode{
		ArcID: "arc-1", EpisodeNumber: 3, PostID: "post-42", Title: "Part three",
	})
	require.NoError(t, err)
}

func TestSavePost_BackendErrors(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"rate limited", http.StatusTooManyRequests, errors.ErrCodeRateLimited},
		{"server error", http.StatusInternalServerError, errors.ErrCodePersistence},
		{"bad request", http.StatusBadRequest, errors.ErrCodePersistence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := newTestService(srv.URL).SavePost(context.Background(), PostRecord{})
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, errors.Code(err))
		})
	}
}

func TestSavePost_Offline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestService(srv.URL).SavePost(context.Background(), PostRecord{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeOffline, errors.Code(err))
}

package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felitsch/postforge/internal/infra/httpclient"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/pkg/errors"
)

func newTestService(baseURL string) *Service {
	client := httpclient.New(httpclient.Options{Timeout: 2 * time.Second, MaxRetries: 0})
	return New(baseURL, "test-key", "gemini-2.0-flash", client, logger.NewNop())
}

func TestGeneratePost_Success(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"slides": [{"headline": "Generated headline"}],
			"captionA": "caption one",
			"hashtagsA": "#go #testing",
			"ctaText": "Read more"
		}`))
	}))
	defer srv.Close()

	result, err := newTestService(srv.URL).GeneratePost(context.Background(), PostParams{
		Category: "visa", Platform: "feed", SlideCount: 3, Tone: "friendly",
	})
	require.NoError(t, err)
	require.Len(t, result.Slides, 1)
	assert.Equal(t, "Generated headline", result.Slides[0].Headline)
	assert.Equal(t, "caption one", result.CaptionA)

	assert.Equal(t, "visa", gotBody["category"])
	assert.Equal(t, float64(3), gotBody["slideCount"])
	assert.Equal(t, "gemini-2.0-flash", gotBody["model"])
}

func TestGeneratePost_EmptySlidesRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"slides": []}`))
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL).GeneratePost(context.Background(), PostParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeGeneration, errors.Code(err))
}

func TestGeneratePost_RateLimitMessagePassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message": "quota exhausted until midnight"}`))
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL).GeneratePost(context.Background(), PostParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRateLimited, errors.Code(err))
	assert.Contains(t, err.Error(), "quota exhausted until midnight")
}

func TestGeneratePost_RateLimitWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL).GeneratePost(context.Background(), PostParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRateLimited, errors.Code(err))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGeneratePost_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL).GeneratePost(context.Background(), PostParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeGeneration, errors.Code(err))
}

func TestGeneratePost_Offline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestService(srv.URL).GeneratePost(context.Background(), PostParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeOffline, errors.Code(err))
}

func TestRegenerateField_Success(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/regenerate-field", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"value": "A sharper headline"}`))
	}))
	defer srv.Close()

	value, err := newTestService(srv.URL).RegenerateField(context.Background(), FieldParams{
		Field: "headline", SlideIndex: 1, Current: "A dull headline",
	})
	require.NoError(t, err)
	assert.Equal(t, "A sharper headline", value)

	assert.Equal(t, "headline", gotBody["field"])
	assert.Equal(t, float64(1), gotBody["slideIndex"])
	assert.Equal(t, "A dull headline", gotBody["current"])
}

func TestRegenerateField_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL).RegenerateField(context.Background(), FieldParams{Field: "headline"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeGeneration, errors.Code(err))
}

package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"n": 1}`, string(body), "retry must resend the body")
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	c := New(Options{Timeout: 5 * time.Second, MaxRetries: 2})
	payload, _ := json.Marshal(map[string]int{"n": 1})
	resp, err := c.PostJSON(context.Background(), srv.URL, payload)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_ReturnsFinalServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{Timeout: 5 * time.Second, MaxRetries: 0})
	resp, err := c.PostJSON(context.Background(), srv.URL, []byte(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, ClassUpstream, Classify(resp, err))
}

func TestDo_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Options{Timeout: 5 * time.Second, MaxRetries: 3})
	resp, err := c.PostJSON(context.Background(), srv.URL, []byte(`{}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), calls.Load())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassOffline, Classify(nil, assert.AnError))
	assert.Equal(t, ClassOffline, Classify(nil, nil))
	assert.Equal(t, ClassRateLimited, Classify(&http.Response{StatusCode: http.StatusTooManyRequests}, nil))
	assert.Equal(t, ClassUpstream, Classify(&http.Response{StatusCode: http.StatusBadRequest}, nil))
	assert.Equal(t, ClassUpstream, Classify(&http.Response{StatusCode: http.StatusBadGateway}, nil))
	assert.Equal(t, ClassOK, Classify(&http.Response{StatusCode: http.StatusOK}, nil))
	assert.Equal(t, ClassOK, Classify(&http.Response{StatusCode: http.StatusCreated}, nil))
}

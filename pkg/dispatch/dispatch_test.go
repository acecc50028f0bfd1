package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func TestDispatch_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Say hi", req.Input)

		_ = json.NewEncoder(w).Encode(wireResponse{Response: "hello!", ToolCalls: []wireToolCall{}})
	}))
	defer srv.Close()

	d := New(testPolicy(), nil)
	resp, attempts, err := d.Dispatch(context.Background(), Request{Endpoint: srv.URL, Input: "Say hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, "hello!", resp.ResponseText)
	assert.Empty(t, resp.ToolCalls)
}

func TestDispatch_RetriesOn429ThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(wireResponse{Response: "ok"})
	}))
	defer srv.Close()

	var rateLimitHits []int
	d := New(testPolicy(), nil)
	resp, attempts, err := d.Dispatch(context.Background(), Request{Endpoint: srv.URL, Input: "hi"}, func(attempt int, wait time.Duration) {
		rateLimitHits = append(rateLimitHits, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "ok", resp.ResponseText)
	assert.Equal(t, []int{1, 2}, rateLimitHits)
}

func TestDispatch_ExhaustsRetriesOn429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := New(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)
	_, attempts, err := d.Dispatch(context.Background(), Request{Endpoint: srv.URL, Input: "hi"}, nil)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDispatch_OtherErrorIsSingleShot(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(testPolicy(), nil)
	_, attempts, err := d.Dispatch(context.Background(), Request{Endpoint: srv.URL, Input: "hi"}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tables/vip/results", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"n":12,"ts":3000},{"n":40,"ts":2500},{"n":0,"ts":2000},{"n":7,"ts":1000}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, ClientConfig{Limit: 50})
	got, err := c.FetchResults(context.Background(), "vip", time.UnixMilli(1000))
	require.NoError(t, err)
	assert.Equal(t, []Result{{N: 0, TS: 2000}, {N: 12, TS: 3000}}, got)
}

func TestFetchResults_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"n":5,"ts":10}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, ClientConfig{MaxRetries: 3, RetryDelayBase: time.Millisecond})
	got, err := c.FetchResults(context.Background(), "t1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchResults_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, ClientConfig{MaxRetries: 2, RetryDelayBase: time.Millisecond})
	_, err := c.FetchResults(context.Background(), "t1", time.Time{})
	assert.Error(t, err)
}

func TestFetchResults_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, ClientConfig{})
	_, err := c.FetchResults(context.Background(), "t1", time.Time{})
	assert.Error(t, err)
}

package ustvgo

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mkaindl/epggen/internal/cache"
)

func testClient(srv *MockServer, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.RatePerSecond == 0 {
		opts.RatePerSecond = 1000
	}
	return New(srv.URL, opts)
}

func TestScheduleFlattensDaysInOrder(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	srv.SetSchedule("cnn", "2026-08-29", []Program{
		{ID: 3, Name: "Tomorrow Show", StartTimestamp: 300},
	})
	srv.SetSchedule("cnn", "2026-08-28", []Program{
		{ID: 1, Name: "Morning Show", StartTimestamp: 100},
		{ID: 2, Name: "Evening Show", StartTimestamp: 200},
	})

	got, err := testClient(srv, Options{}).Schedule(context.Background(), "cnn")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 programs, got %d", len(got))
	}
	// Day buckets iterate in sorted key order.
	if got[0].ID != 1 || got[1].ID != 2 || got[2].ID != 3 {
		t.Errorf("unexpected order: %d %d %d", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestScheduleUnexpectedStatus(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.SetStatus("cnn", http.StatusNotFound)

	_, err := testClient(srv, Options{}).Schedule(context.Background(), "cnn")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatal("expected *UpstreamError")
	}
	if upErr.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", upErr.Status)
	}
}

func TestScheduleRecoversAfterTransientUpstreamFailure(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.SetSchedule("cnn", "2026-08-28", []Program{
		{ID: 1, Name: "Morning Show", StartTimestamp: 100},
	})
	srv.FailTimes("cnn", 1)

	cl := testClient(srv, Options{})

	_, err := cl.Schedule(context.Background(), "cnn")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus while upstream is failing, got %v", err)
	}
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected a 503 upstream error, got %v", err)
	}

	got, err := cl.Schedule(context.Background(), "cnn")
	if err != nil {
		t.Fatalf("schedule after recovery: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected programs after recovery: %+v", got)
	}
	if n := srv.Requests("cnn"); n != 2 {
		t.Errorf("expected 2 upstream requests, got %d", n)
	}
}

func TestScheduleEmptyResponse(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.SetEmpty("cnn")

	_, err := testClient(srv, Options{}).Schedule(context.Background(), "cnn")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestScheduleBadPayload(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.SetRawBody("cnn", []byte("<html>not json</html>"))

	_, err := testClient(srv, Options{}).Schedule(context.Background(), "cnn")
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("payload errors must not be retryable")
	}
}

func TestScheduleTimeout(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.SetDelay("cnn", 300*time.Millisecond)

	cl := testClient(srv, Options{Timeout: 50 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := cl.Schedule(ctx, "cnn")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsRetryable(err) {
		t.Errorf("timeouts must be retryable, got %v", err)
	}
}

func TestScheduleUsesCache(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.SetSchedule("cnn", "2026-08-28", []Program{
		{ID: 1, Name: "Morning Show", StartTimestamp: 100},
	})

	c := cache.NewMemoryCache(0)
	defer c.Close()
	cl := testClient(srv, Options{Cache: c})

	for i := 0; i < 3; i++ {
		got, err := cl.Schedule(context.Background(), "cnn")
		if err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
		if len(got) != 1 {
			t.Fatalf("schedule %d: expected 1 program, got %d", i, len(got))
		}
	}

	if n := srv.Requests("cnn"); n != 1 {
		t.Errorf("expected 1 upstream request with warm cache, got %d", n)
	}
}

func TestScheduleCacheKeyExcludesCacheBuster(t *testing.T) {
	now := time.Unix(1000, 0)
	cl := New("http://example.com", Options{Now: func() time.Time { return now }})

	requestURL, cacheKey := cl.scheduleURL("cnn")
	if cacheKey != "http://example.com/epg/json/cnn.json" {
		t.Errorf("unexpected cache key %q", cacheKey)
	}
	if requestURL != cacheKey+"?_=1000" {
		t.Errorf("unexpected request URL %q", requestURL)
	}
}

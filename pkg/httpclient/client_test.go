package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cgast/apiprobe/pkg/probe"
)

func TestExecuteReturnsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client := New()
	resp, err := client.Execute(context.Background(), &Request{Method: "GET", URL: server.URL}, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"id": 1}` {
		t.Errorf("body = %q", resp.Body)
	}
	if resp.ContentType() != "application/json" {
		t.Errorf("content type = %q", resp.ContentType())
	}
	if resp.Elapsed <= 0 {
		t.Error("elapsed not measured")
	}
}

func TestExecuteSendsHeadersAndBody(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = buf[:n]
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req := &Request{
		Method:  "POST",
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer t"},
		Body:    []byte(`{"a":1}`),
	}
	if _, err := New().Execute(context.Background(), req, Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotAuth != "Bearer t" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if string(gotBody) != `{"a":1}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestExecuteRetriesSequentiallyThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	var retryAttempts []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	opts := Options{
		Retry:   &probe.RetryPolicy{MaxAttempts: 3, DelaySeconds: 0.01},
		OnRetry: func(attempt int) { retryAttempts = append(retryAttempts, attempt) },
	}
	resp, err := New().Execute(context.Background(), &Request{Method: "GET", URL: server.URL}, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if hits.Load() != 3 {
		t.Errorf("attempts = %d, want 3", hits.Load())
	}
	if len(retryAttempts) != 2 || retryAttempts[0] != 2 || retryAttempts[1] != 3 {
		t.Errorf("retry attempts = %v", retryAttempts)
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	req := &Request{Method: "GET", URL: "http://127.0.0.1:1"}
	opts := Options{Retry: &probe.RetryPolicy{MaxAttempts: 2}}

	start := time.Now()
	_, err := New().Execute(context.Background(), req, opts)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("retries took too long: %v", elapsed)
	}
}

func TestExecuteRetryDelayStopsOnCancellation(t *testing.T) {
	req := &Request{Method: "GET", URL: "http://127.0.0.1:1"}
	opts := Options{Retry: &probe.RetryPolicy{MaxAttempts: 3, DelaySeconds: 30}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := New().Execute(ctx, req, opts)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancelled execute held the worker for %v", elapsed)
	}
}

func TestExecuteTimeoutPerAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := New().Execute(context.Background(), &Request{Method: "GET", URL: server.URL},
		Options{Timeout: 50 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

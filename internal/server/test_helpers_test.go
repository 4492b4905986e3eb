package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"doodle-chain/internal/config"
	"doodle-chain/internal/store"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

// newMemoryServer serves a fresh in-memory store and returns both.
func newMemoryServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimitPerSecond = 1000
	cfg.RateLimitBurst = 1000
	if mutate != nil {
		mutate(&cfg)
	}
	st := store.NewMemoryStore()
	return newTestServer(t, New(st, cfg).Handler()), st
}

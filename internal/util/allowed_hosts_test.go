package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithAllowedHosts(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := WithAllowedHosts([]string{"example.com", ".library.org"}, ok)

	cases := []struct {
		host string
		want int
	}{
		{"example.com", http.StatusNoContent},
		{"example.com:8443", http.StatusNoContent},
		{"library.org", http.StatusNoContent},
		{"branch.library.org", http.StatusNoContent},
		{"evil.com", http.StatusBadRequest},
		{"example.com.evil.com", http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tc.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("host %q: got status %d, want %d", tc.host, rec.Code, tc.want)
		}
	}
}

func TestWithAllowedHostsEmptyAdmitsAll(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := WithAllowedHosts(nil, ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "anything.example"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}

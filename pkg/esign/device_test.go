package esign

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDeviceType(t *testing.T) {
	cases := []struct {
		ua   string
		want string
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "iPhone"},
		{"Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X)", "iPad"},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36", "Android Phone"},
		{"Mozilla/5.0 (Linux; Android 13; SM-X200) Safari/537.36", "Android Tablet"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "Windows"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1)", "macOS"},
		{"Mozilla/5.0 (X11; Linux x86_64)", "Linux"},
		{"curl/8.4.0", "Unknown Device"},
		{"", "Unknown Device"},
	}
	for _, tc := range cases {
		if got := DeviceType(tc.ua); got != tc.want {
			t.Errorf("DeviceType(%q) = %q, want %q", tc.ua, got, tc.want)
		}
	}
}

func TestIPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":" 198.51.100.7 "}`))
	}))
	defer srv.Close()

	if got := NewIPLookup(srv.URL, time.Second).Lookup(context.Background()); got != "198.51.100.7" {
		t.Fatalf("lookup = %q", got)
	}
}

func TestIPLookup_Fallback(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer garbage.Close()

	cases := map[string]*IPLookup{
		"status":       NewIPLookup(failing.URL, time.Second),
		"bad body":     NewIPLookup(garbage.URL, time.Second),
		"unconfigured": NewIPLookup("", 0),
		"nil":          nil,
	}
	for name, lookup := range cases {
		if got := lookup.Lookup(context.Background()); got != IPFallback {
			t.Errorf("%s: lookup = %q, want fallback", name, got)
		}
	}
}

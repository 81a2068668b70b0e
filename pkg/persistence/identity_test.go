package persistence

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFingerprint(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/formData", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0)")

	first, err := Fingerprint{}.Identify(req)
	if err != nil || first == "" {
		t.Fatalf("identify = %q, %v", first, err)
	}

	// The port changes between connections; the token must not.
	req.RemoteAddr = "10.0.0.7:6001"
	if again, _ := (Fingerprint{}).Identify(req); again != first {
		t.Fatalf("fingerprint changed with port: %q != %q", again, first)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone)")
	if other, _ := (Fingerprint{}).Identify(req); other == first {
		t.Fatalf("expected a different fingerprint for another user agent")
	}

	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "remembered"})
	if got, _ := (Fingerprint{}).Identify(req); got != "remembered" {
		t.Fatalf("expected cookie to win, got %q", got)
	}
}

func TestRememberDevice(t *testing.T) {
	rec := httptest.NewRecorder()
	RememberDevice(rec, "abc")
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DeviceCookie || cookies[0].Value != "abc" || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
}

func TestSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := NewSessions("s3cret", "")
	sessions.now = func() time.Time { return now }

	token, err := sessions.Issue("user-42", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	if id, err := sessions.Identify(req); err != nil || id != "user-42" {
		t.Fatalf("identify = %q, %v", id, err)
	}

	bearer := httptest.NewRequest(http.MethodGet, "/", nil)
	bearer.Header.Set("Authorization", "Bearer "+token)
	if id, err := sessions.Identify(bearer); err != nil || id != "user-42" {
		t.Fatalf("bearer identify = %q, %v", id, err)
	}

	if _, err := NewSessions("other", "").Verify(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected wrong secret to fail, got %v", err)
	}

	sessions.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := sessions.Verify(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	if _, err := sessions.Identify(httptest.NewRequest(http.MethodGet, "/", nil)); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected missing session to fail, got %v", err)
	}
}

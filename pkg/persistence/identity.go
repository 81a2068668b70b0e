package persistence

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang-jwt/jwt/v5"
)

// DeviceCookie names the cookie that carries the anonymous device token.
const DeviceCookie = "deviceToken"

// ErrUnauthenticated is returned when a session identity is required but the
// request carries no valid session.
var ErrUnauthenticated = errors.New("persistence: no authenticated session")

// Identifier derives the storage identifier of a request.
type Identifier interface {
	Identify(r *http.Request) (string, error)
}

// Fingerprint identifies anonymous visitors. A deviceToken cookie wins;
// otherwise a token is derived from stable request attributes.
type Fingerprint struct{}

func (Fingerprint) Identify(r *http.Request) (string, error) {
	if c, err := r.Cookie(DeviceCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value, nil
	}
	return DeviceToken(r), nil
}

// DeviceToken hashes the client address, user agent and accepted languages.
func DeviceToken(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	d := xxhash.New()
	_, _ = d.WriteString(host)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(r.UserAgent())
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(r.Header.Get("Accept-Language"))
	return strconv.FormatUint(d.Sum64(), 16)
}

// RememberDevice sets the deviceToken cookie so later requests keep the same
// identifier even when their attributes change.
func RememberDevice(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Sessions issues and verifies HS256 session tokens. The subject claim is
// the user id used as storage identifier.
type Sessions struct {
	secret []byte
	cookie string
	now    func() time.Time
}

func NewSessions(secret, cookie string) *Sessions {
	if cookie == "" {
		cookie = "session"
	}
	return &Sessions{secret: []byte(secret), cookie: cookie, now: time.Now}
}

func (s *Sessions) Cookie() string { return s.cookie }

// Issue signs a token for userID valid for ttl.
func (s *Sessions) Issue(userID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("persistence: sign session: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by token.
func (s *Sessions) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrUnauthenticated
	}
	return claims.Subject, nil
}

// Identify reads the session cookie or a bearer token.
func (s *Sessions) Identify(r *http.Request) (string, error) {
	token := ""
	if c, err := r.Cookie(s.cookie); err == nil {
		token = c.Value
	}
	if auth := r.Header.Get("Authorization"); token == "" && strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	if token == "" {
		return "", ErrUnauthenticated
	}
	return s.Verify(token)
}

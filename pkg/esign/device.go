package esign

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/json-iterator/go"
)

// IPFallback is recorded when the public address cannot be resolved.
const IPFallback = "Unable to fetch IP"

// DeviceType maps a user agent to the device label printed on the agreement.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "iphone"):
		return "iPhone"
	case strings.Contains(ua, "ipad"):
		return "iPad"
	case strings.Contains(ua, "android"):
		if strings.Contains(ua, "mobile") {
			return "Android Phone"
		}
		return "Android Tablet"
	case strings.Contains(ua, "windows"), strings.Contains(ua, "win64"), strings.Contains(ua, "win32"):
		return "Windows"
	case strings.Contains(ua, "mac"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "Unknown Device"
	}
}

// IPLookup resolves the public address through an ipify compatible endpoint
// answering {"ip": "..."}.
type IPLookup struct {
	URL    string
	Client *http.Client
}

func NewIPLookup(url string, timeout time.Duration) *IPLookup {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IPLookup{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Lookup never fails; errors yield IPFallback.
func (l *IPLookup) Lookup(ctx context.Context) string {
	ip, err := l.fetch(ctx)
	if err != nil || ip == "" {
		return IPFallback
	}
	return ip
}

func (l *IPLookup) fetch(ctx context.Context) (string, error) {
	if l == nil || l.URL == "" {
		return "", fmt.Errorf("esign: ip lookup not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return "", err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("esign: ip lookup status %d", resp.StatusCode)
	}
	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<10)).Decode(&payload); err != nil {
		return "", err
	}
	return strings.TrimSpace(payload.IP), nil
}

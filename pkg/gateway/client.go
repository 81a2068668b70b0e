// Package gateway forwards boarding applications, attachments and the demo
// customer/payment calls to the hosted payment API and relays the embedded
// result payloads.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-boarding/pkg/config"
)

const (
	headerToken       = "requestToken"
	headerIdempotency = "idempotencyKey"
	maxErrorBody      = 2 << 10
	maxResponseBody   = 8 << 20
)

// Response is the envelope every API answer is wrapped in.
type Response struct {
	IsSuccess    bool            `json:"isSuccess"`
	ResponseText string          `json:"responseText"`
	ResponseData json.RawMessage `json:"responseData"`
	Records      json.RawMessage `json:"Records,omitempty"`
}

// Client talks to one API environment with one credential and entry point.
type Client struct {
	baseURL    string
	token      string
	entryPoint string
	http       *http.Client
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client for baseURL ("https://api-sandbox.payabli.com/api/").
func New(baseURL, token, entryPoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		token:      token,
		entryPoint: entryPoint,
		http:       &http.Client{Timeout: timeout, Transport: transport},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// FromConfig builds a client from the service configuration.
func FromConfig(cfg config.Config, opts ...Option) *Client {
	return New(cfg.APIBaseURL(), cfg.APIToken, cfg.EntryPoint, cfg.RequestTimeout, opts...)
}

func (c *Client) EntryPoint() string { return c.entryPoint }

type call struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        any
	idempotency string
}

// do performs one request. Non-2xx answers become *StatusError; 2xx bodies
// are decoded into the envelope.
func (c *Client) do(ctx context.Context, cl call) (*Response, error) {
	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("gateway: %s: marshal request: %w", cl.op, err)
		}
		body = bytes.NewReader(payload)
	}

	target := c.baseURL + strings.TrimLeft(cl.path, "/")
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: %s: build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerToken, c.token)
	if cl.idempotency != "" {
		req.Header.Set(headerIdempotency, cl.idempotency)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("op", cl.op).Msg("gateway request failed")
		return nil, fmt.Errorf("%w: %s: %w", ErrSubmission, cl.op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", cl.op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("gateway response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: cl.op, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrSubmission, cl.op, err)
	}
	out := &Response{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, cl.op, err)
	}
	return out, nil
}

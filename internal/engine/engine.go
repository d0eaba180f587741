// Package engine talks to the remote conversational engine.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/logging"
	"github.com/eryai/mimre/internal/model/chat"
)

const (
	JSONContentType = "application/json"
	chatPath        = "/api/chat"
	maxBodyBytes    = 1 << 20
)

// ErrMalformedReply is returned when the engine answers with something other
// than the expected JSON shape.
var ErrMalformedReply = errors.New("malformed engine reply")

// StatusError reports a non-2xx answer.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine request failed: status code %d", e.StatusCode)
	}
	return fmt.Sprintf("engine request failed: status code %d, message %s", e.StatusCode, e.Message)
}

// RemoteError carries the error field of an otherwise successful answer.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return "engine error: " + e.Reason
}

// Request is the body of POST /api/chat.
type Request struct {
	Prompt    string      `json:"prompt"`
	Slug      string      `json:"slug"`
	Companion string      `json:"companion"`
	SessionID *string     `json:"sessionId"`
	History   []chat.Turn `json:"history"`
}

// Reply is a successful engine answer. SessionID is empty when the engine did
// not return one.
type Reply struct {
	Text      string
	SessionID string
}

type rawReply struct {
	Response  *string `json:"response"`
	SessionID string  `json:"sessionId"`
	Error     string  `json:"error"`
}

// Client calls the engine over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each call. Zero keeps calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(logger) }
}

// NewClient returns a client for the engine at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Chat sends one prompt and parses the answer.
func (c *Client) Chat(ctx context.Context, request Request) (Reply, error) {
	if request.History == nil {
		request.History = []chat.Turn{}
	}

	reqBytes, err := json.Marshal(request)
	if err != nil {
		return Reply{}, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(reqBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", JSONContentType)
	req.Header.Set("Accept", JSONContentType)

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("send chat request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("read chat response body: %w", err)
	}

	c.logger.Debug("engine answered",
		zap.Int("status", res.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(body)),
	)

	return parseReply(res.StatusCode, body)
}

func parseReply(status int, body []byte) (Reply, error) {
	var raw rawReply
	decodeErr := json.Unmarshal(body, &raw)

	if status < 200 || status > 299 {
		statusErr := &StatusError{StatusCode: status}
		if decodeErr == nil {
			statusErr.Message = raw.Error
		}
		return Reply{}, statusErr
	}
	if decodeErr != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, decodeErr)
	}
	if raw.Error != "" {
		return Reply{}, &RemoteError{Reason: raw.Error}
	}
	if raw.Response == nil {
		return Reply{}, fmt.Errorf("%w: missing response field", ErrMalformedReply)
	}
	return Reply{Text: *raw.Response, SessionID: raw.SessionID}, nil
}

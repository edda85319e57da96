// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-survey/models"
)

// DefaultTimeout applies to every request unless WithTimeout is used.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

var ErrInvalidInput = errors.New("invalid input")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: API error: %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Endpoints are paths relative to the base URL. VoterParams may contain
// "{id}", replaced by the escaped voter id.
type Endpoints struct {
	RegisterVoter string
	VoterParams   string
	GetTicket     string
	RegisterVote  string
}

// DefaultEndpoints match the survey API layout.
var DefaultEndpoints = Endpoints{
	RegisterVoter: "registerVoter",
	VoterParams:   "voter/{id}",
	GetTicket:     "getTicket",
	RegisterVote:  "registerVote",
}

// Client talks JSON over HTTP to the survey scoring backend.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	endpoints  Endpoints
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoints overrides the endpoint paths.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

// New returns a client for the API rooted at baseURL, e.g.
// "https://tools.qrplus.ai/api/v1/survey".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(DefaultTimeout),
		endpoints:  DefaultEndpoints,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// RegisterVoter handles POST registerVoter
func (c *Client) RegisterVoter(ctx context.Context, req models.RegisterVoterRequest) (models.RegisterVoterResponse, error) {
	var resp models.RegisterVoterResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.RegisterVoter, req, &resp); err != nil {
		return models.RegisterVoterResponse{}, err
	}
	return resp, nil
}

// VoterParams handles GET voter/{id}
func (c *Client) VoterParams(ctx context.Context, voterID string) (models.VoterParams, error) {
	if voterID == "" {
		return models.VoterParams{}, fmt.Errorf("%w: voter id is empty", ErrInvalidInput)
	}
	path := strings.ReplaceAll(c.endpoints.VoterParams, "{id}", url.PathEscape(voterID))

	var params models.VoterParams
	if err := c.do(ctx, http.MethodGet, path, nil, &params); err != nil {
		return models.VoterParams{}, err
	}
	return params, nil
}

// FetchRound handles POST getTicket. Image fields are returned verbatim.
func (c *Client) FetchRound(ctx context.Context, req models.TicketRequest) (models.TicketResponse, error) {
	var resp models.TicketResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.GetTicket, req, &resp); err != nil {
		return models.TicketResponse{}, err
	}
	return resp, nil
}

// RegisterVote handles POST registerVote. Only success matters; the
// acknowledgement body is logged at debug level.
func (c *Client) RegisterVote(ctx context.Context, req models.VoteRequest) error {
	if req.TicketID == "" {
		return fmt.Errorf("%w: ticket id is empty", ErrInvalidInput)
	}
	var ack models.VoteResponse
	if err := c.do(ctx, http.MethodPost, c.endpoints.RegisterVote, req, &ack); err != nil {
		return err
	}
	slog.Debug("vote acknowledged", "ticket_id", req.TicketID, "ack", string(ack))
	return nil
}

// do sends body as JSON (if non-nil) and decodes the response into out.
// An empty 2xx body leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if ctx == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidInput)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	slog.Debug("survey api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

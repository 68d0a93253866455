package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jamerly/chatbox/pkg/chatbox"
	"github.com/jamerly/chatbox/pkg/stream"
)

// Client talks to the chatbases HTTP API. It keeps no session state: every
// call takes the session id it should present.
type Client struct {
	httpClient *http.Client
	serverURL  string
	appID      string
	language   string
	tokens     TokenSource
}

type Option func(*Client) error

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

func WithLanguage(language string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(language) != "" {
			c.language = strings.TrimSpace(language)
		}
		return nil
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) error {
		c.tokens = ts
		return nil
	}
}

func WithToken(token string) Option {
	return WithTokenSource(StaticToken(token))
}

// New creates a client for serverURL. An empty serverURL selects
// DefaultServerURL; appID is required.
func New(serverURL, appID string, options ...Option) (*Client, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, errors.New("app id is required")
	}
	if strings.TrimSpace(serverURL) == "" {
		serverURL = DefaultServerURL
	}
	normalized, err := NormalizeServerURL(serverURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid server URL")
	}

	c := &Client{
		// no overall timeout, the chat response is a long-lived stream
		httpClient: &http.Client{Transport: http.DefaultTransport},
		serverURL:  normalized,
		appID:      strings.TrimSpace(appID),
		language:   DefaultLanguage,
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "failed to apply client option")
		}
	}
	return c, nil
}

// NormalizeServerURL adds a scheme when missing and strips trailing slashes.
func NormalizeServerURL(server string) (string, error) {
	server = strings.TrimSpace(server)
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", errors.Errorf("invalid server URL %q", server)
	}
	return strings.TrimRight(fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path), "/"), nil
}

func (c *Client) ServerURL() string { return c.serverURL }
func (c *Client) AppID() string     { return c.appID }
func (c *Client) Language() string  { return c.language }

// InitResult is the outcome of a successful session bootstrap.
type InitResult struct {
	SessionID   string
	WelcomeText string
}

type initData struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// apiResponse is the envelope every non-streaming endpoint answers with.
type apiResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    *int   `json:"code"`
	Data    T      `json:"data"`
}

// InitSession opens or resumes a chat session. sessionID may be empty.
func (c *Client) InitSession(ctx context.Context, sessionID string) (*InitResult, error) {
	data, err := getJSON[initData](ctx, c, endpointInit, sessionID)
	if err != nil {
		return nil, &chatbox.InitError{Err: err}
	}
	res := &InitResult{
		SessionID:   data.SessionID,
		WelcomeText: ParseWelcome(data.Message),
	}
	if res.SessionID == "" {
		res.SessionID = sessionID
	}
	log.Debug().Str("component", "client").Str("session_id", res.SessionID).Msg("chat session initialized")
	return res, nil
}

// FetchHistory returns the past exchanges of the session, oldest first.
func (c *Client) FetchHistory(ctx context.Context, sessionID string) ([]chatbox.HistoryItem, error) {
	items, err := getJSON[[]chatbox.HistoryItem](ctx, c, endpointHistory, sessionID)
	if err != nil {
		return nil, &chatbox.HistoryError{Err: err}
	}
	return items, nil
}

type chatRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId,omitempty"`
}

// StreamChat posts message and returns the streamed response as frames. A
// missing session yields a failed reader without touching the network.
func (c *Client) StreamChat(ctx context.Context, message, sessionID string) (*stream.Reader, error) {
	if sessionID == "" {
		return stream.Failed(&chatbox.ChatError{Err: chatbox.ErrNoSession}), nil
	}

	body, err := json.Marshal(chatRequest{Message: message, ChatID: sessionID})
	if err != nil {
		return nil, &chatbox.ChatError{Err: errors.Wrap(err, "failed to marshal request")}
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpointChat, sessionID, bytes.NewReader(body))
	if err != nil {
		return nil, &chatbox.ChatError{Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &chatbox.ChatError{Err: errors.Wrap(err, "request failed")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, &chatbox.ChatError{Status: resp.StatusCode, Err: errorFromBody(resp)}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, &chatbox.ChatError{Status: resp.StatusCode, Err: errors.New("failed to get reader from response body")}
	}
	log.Debug().
		Str("component", "client").
		Str("session_id", sessionID).
		Dur("ttfb", time.Since(start)).
		Msg("chat stream opened")

	return stream.NewReader(ctx, resp.Body), nil
}

func (c *Client) newRequest(ctx context.Context, method, path, sessionID string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerAppID, c.appID)
	req.Header.Set(headerAcceptLanguage, c.language)
	if sessionID != "" {
		req.Header.Set(headerSessionID, sessionID)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load user token")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func getJSON[T any](ctx context.Context, c *Client, path, sessionID string) (T, error) {
	var zero T
	req, err := c.newRequest(ctx, http.MethodGet, path, sessionID, nil)
	if err != nil {
		return zero, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, errorFromBody(resp)
	}
	var env apiResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return zero, errors.Wrap(err, "failed to unmarshal response")
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "API error"
		}
		return zero, errors.New(msg)
	}
	return env.Data, nil
}

// errorFromBody builds an error from a non-success response, preferring the
// server-provided message.
func errorFromBody(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return errors.New(body.Message)
	}
	return errors.Errorf("network response was not ok: %s", resp.Status)
}

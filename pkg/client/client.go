// Package client talks to a running TTS server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	DefaultURL = "http://localhost:5002"

	availabilityTimeout = 2 * time.Second
)

// Options describes one synthesis request.
type Options struct {
	Text       string
	SpeakerID  string
	LanguageID string
	Speed      float64
}

// Status mirrors the server's /api/status response.
type Status struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Engine      string `json:"engine,omitempty"`
	Model       string `json:"model,omitempty"`
}

// Error is a non-2xx answer from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tts server: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("tts server: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithToken sends the token as a bearer credential.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// New builds a client for baseURL. An empty baseURL falls back to
// COQUI_TTS_SERVER_URL and then DefaultURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("COQUI_TTS_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Synthesize returns the WAV bytes for opts.
func (c *Client) Synthesize(ctx context.Context, opts Options) ([]byte, error) {
	if opts.LanguageID == "" {
		opts.LanguageID = "en"
	}
	if opts.Speed == 0 {
		opts.Speed = 1.0
	}

	body, err := json.Marshal(map[string]interface{}{
		"text":        opts.Text,
		"speaker_id":  opts.SpeakerID,
		"language_id": opts.LanguageID,
		"speed":       opts.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/tts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}

func (c *Client) Speakers(ctx context.Context) ([]string, error) {
	var out struct {
		Speakers []string `json:"speakers"`
	}
	if err := c.getJSON(ctx, "/api/speakers", &out); err != nil {
		return nil, err
	}
	if out.Speakers == nil {
		return []string{}, nil
	}
	return out.Speakers, nil
}

func (c *Client) Languages(ctx context.Context) ([]string, error) {
	var out struct {
		Languages []string `json:"languages"`
	}
	if err := c.getJSON(ctx, "/api/languages", &out); err != nil {
		return nil, err
	}
	if len(out.Languages) == 0 {
		return []string{"en"}, nil
	}
	return out.Languages, nil
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.getJSON(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Available reports whether the server answers /api/status within two seconds.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	_, err := c.Status(ctx)
	return err == nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

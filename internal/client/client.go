// Package client is a small typed client for the imaged HTTP API. It speaks
// the encrypted protocol transparently when given an enabled cipher.
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

	"imaged/internal/gateway"
	"imaged/pkg/types"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("api error %d: %s", e.Status, e.Message) }

// StatusCode implements the HTTP error contract used by the server.
func (e *APIError) StatusCode() int { return e.Status }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	ae, ok := err.(*APIError)
	return ok && ae.Status == http.StatusNotFound
}

// Client talks to one imaged endpoint.
type Client struct {
	base   string
	http   *http.Client
	cipher *gateway.Cipher
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithCipher enables payload encryption.
func WithCipher(ci *gateway.Cipher) Option { return func(c *Client) { c.cipher = ci } }

// New returns a client for base, e.g. http://127.0.0.1:8000.
func New(base string, opts ...Option) *Client {
	c := &Client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: 60 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the endpoint this client targets.
func (c *Client) BaseURL() string { return c.base }

func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	encrypted := false
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		if c.cipher.Enabled() && !strings.HasPrefix(path, "/health") {
			if b, err = c.cipher.Encrypt(b); err != nil {
				return nil, err
			}
			encrypted = true
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		if encrypted {
			req.Header.Set("Content-Type", "application/octet-stream")
			req.Header.Set(gateway.HeaderEncrypted, "true")
		} else {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if strings.EqualFold(resp.Header.Get(gateway.HeaderEncrypted), "true") {
		if raw, err = c.cipher.Decrypt(raw); err != nil {
			return nil, err
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er types.ErrorResponse
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, method, path string, in, out any) error {
	raw, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.getJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error) {
	var out types.GenerateResponse
	err := c.getJSON(ctx, http.MethodPost, "/generate", req, &out)
	return out, err
}

func (c *Client) Job(ctx context.Context, id string) (types.JobStatusResponse, error) {
	var out types.JobStatusResponse
	err := c.getJSON(ctx, http.MethodGet, "/job/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) LoadModel(ctx context.Context, modelPath, modelType string) (types.LoadModelResponse, error) {
	return c.loadModel(ctx, modelPath, modelType, false)
}

// ReloadModel drops any cached handle for modelPath before loading it again.
func (c *Client) ReloadModel(ctx context.Context, modelPath, modelType string) (types.LoadModelResponse, error) {
	return c.loadModel(ctx, modelPath, modelType, true)
}

func (c *Client) loadModel(ctx context.Context, modelPath, modelType string, reload bool) (types.LoadModelResponse, error) {
	q := url.Values{}
	q.Set("model_path", modelPath)
	if modelType != "" {
		q.Set("model_type", modelType)
	}
	if reload {
		q.Set("reload", "true")
	}
	var out types.LoadModelResponse
	err := c.getJSON(ctx, http.MethodPost, "/load-model?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) Models(ctx context.Context) (types.ModelsResponse, error) {
	var out types.ModelsResponse
	err := c.getJSON(ctx, http.MethodGet, "/models", nil, &out)
	return out, err
}

func (c *Client) Samplers(ctx context.Context) (types.SamplersResponse, error) {
	var out types.SamplersResponse
	err := c.getJSON(ctx, http.MethodGet, "/samplers", nil, &out)
	return out, err
}

// Image fetches raw image bytes by the URL reported in a job's results.
func (c *Client) Image(ctx context.Context, imageURL string) ([]byte, error) {
	path := imageURL
	if u, err := url.Parse(imageURL); err == nil && u.IsAbs() {
		path = u.RequestURI()
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

// Wait polls a job until it reaches a terminal state. onUpdate, if set, is
// called for every poll.
func (c *Client) Wait(ctx context.Context, id string, every time.Duration, onUpdate func(types.JobStatusResponse)) (types.JobStatusResponse, error) {
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		st, err := c.Job(ctx, id)
		if err != nil {
			return st, err
		}
		if onUpdate != nil {
			onUpdate(st)
		}
		if st.Status.Terminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-t.C:
		}
	}
}

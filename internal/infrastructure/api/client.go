package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skincare-client/internal/domain"
	"skincare-client/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for outgoing requests.
// An empty token sends the request anonymously.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Response is a successful backend reply.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the body into out.
func (r *Response) Decode(out interface{}) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
	}
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

func (c *Client) Delete(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, body)
}

// Do sends one request. Non-2xx replies come back as *domain.APIError,
// transport failures wrap domain.ErrTransport, cancellation returns the context error.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.New().String()[:8]
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.APICall(requestID, method, path, 0, time.Since(start), ctxErr)
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		logger.APICall(requestID, method, path, 0, time.Since(start), err)
		return nil, fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.APICall(requestID, method, path, resp.StatusCode, time.Since(start), err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return nil, fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &domain.APIError{Status: resp.StatusCode, Message: serverMessage(data)}
		logger.APICall(requestID, method, path, resp.StatusCode, time.Since(start), apiErr)
		return nil, apiErr
	}

	logger.APICall(requestID, method, path, resp.StatusCode, time.Since(start), nil)
	return &Response{Status: resp.StatusCode, Body: data}, nil
}

// serverMessage extracts the human message from an error body.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	for _, m := range []string{body.Message, body.Error, body.Msg} {
		if m != "" {
			return m
		}
	}
	return ""
}

// IsCanceled reports whether err came from a cancelled or superseded request.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Package api is the REST client of the quiz backend.
//
// Every endpoint has one response schema. A body that does not decode into it,
// or decodes into a value that fails validation, is a *DecodeError; there is no
// guessing between alternative shapes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxErrorBodySize      = 4 << 10
)

var (
	ErrBadBaseURL     = errors.New("bad api base url")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
)

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Detail)
}

// Is lets callers match 401 and 404 with errors.Is.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// DecodeError is a response that does not match the endpoint schema.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TokenSource supplies the bearer token for each request, empty means anonymous.
type TokenSource interface {
	Token() string
}

type (
	Config struct {
		Logger     *zerolog.Logger
		BaseURL    string
		HTTPClient *http.Client
		Tokens     TokenSource
		Timeout    time.Duration
	}

	Client struct {
		logger   zerolog.Logger
		base     *url.URL
		http     *http.Client
		tokens   TokenSource
		validate *validator.Validate
	}
)

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Join(ErrBadBaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrBadBaseURL, base.Scheme)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Client{
		logger:   logger.With().Str("component", "api").Logger(),
		base:     base,
		http:     hc,
		tokens:   cfg.Tokens,
		validate: newValidator(),
	}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// do sends one request and decodes a 2xx body into out, out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		if err := c.validate.Struct(in); err != nil {
			return errors.Join(ErrInvalidRequest, err)
		}
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	se := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	switch {
	case json.Unmarshal(raw, &body) == nil && body.Detail != "":
		se.Detail = body.Detail
	case body.Error != "":
		se.Detail = body.Error
	default:
		se.Detail = strings.TrimSpace(string(raw))
	}
	return se
}

func getOne[T any](ctx context.Context, c *Client, method, path string, query url.Values, in any) (T, error) {
	var out T
	if err := c.do(ctx, method, path, query, in, &out); err != nil {
		return out, err
	}
	if err := c.validate.Struct(&out); err != nil {
		return out, &DecodeError{Path: path, Err: err}
	}
	return out, nil
}

func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var out []T
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &DecodeError{Path: path, Err: errors.New("expected an array, got null")}
	}
	for i := range out {
		if err := c.validate.Struct(&out[i]); err != nil {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return out, nil
}

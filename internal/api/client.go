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

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/config"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
	"github.com/google/uuid"
)

var (
	errBaseURLRequired = errors.New("api base url is required")
	errLoggerRequired  = errors.New("api logger is required")
)

// CredentialSource supplies the bearer credential attached to requests.
// Requests go out unauthenticated when no credential is present.
type CredentialSource interface {
	Token() (string, bool)
}

// Client is the shared HTTP transport for the Order/Cart and Payment APIs,
// with centralized auth, logging, idempotency keys, and error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	creds      CredentialSource
	userAgent  string
	logger     *logger.Logger
}

// NewClient initializes the backend API wrapper.
func NewClient(cfg config.APIConfig, creds CredentialSource, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	trimmed := strings.TrimSpace(cfg.BaseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		creds:      creds,
		userAgent:  cfg.UserAgent,
		logger:     logg,
	}, nil
}

// NewIdempotencyKey returns a unique key for payment initializations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "lb"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

type requestOptions struct {
	query          url.Values
	idempotencyKey string
}

func (c *Client) do(ctx context.Context, method, path string, opts requestOptions, body any, out any) error {
	target := c.baseURL.JoinPath(path)
	if len(opts.query) > 0 {
		target.RawQuery = opts.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", opts.idempotencyKey)
	}
	if c.creds != nil {
		if token, ok := c.creds.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.log(ctx, "request", method, path, map[string]any{})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", method, path, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log(ctx, "error", method, path, map[string]any{"status": resp.StatusCode})
		return c.mapAPIError(resp.StatusCode, raw, method, path)
	}

	c.log(ctx, "response", method, path, map[string]any{"status": resp.StatusCode})

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response body")
	}
	return nil
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) mapAPIError(status int, raw []byte, method, path string) error {
	message := fmt.Sprintf("%s %s failed", method, path)
	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		message = body.Message
	}
	return pkgerrors.New(domainCodeForStatus(status), message)
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, method, path string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"method": method,
		"path":   path,
		"phase":  phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Warn(ctx, fmt.Sprintf("api %s %s", method, path))
	default:
		c.logger.Info(ctx, fmt.Sprintf("api %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "authorization", "secret", "card"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

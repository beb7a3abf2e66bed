// Package platform is a client for the metadata platform's REST API: asset
// search, lineage process lookup and creation, and bulk asset registration.
package platform

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
)

// API paths relative to the base URL.
const (
	searchPath = "/api/meta/search/indexsearch"
	bulkPath   = "/api/meta/entity/bulk"
)

// DefaultPageSize is the search page size used when Config.PageSize is zero.
const DefaultPageSize = 100

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// APIError is returned for non-2xx responses.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("platform returned %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the tenant URL, e.g. https://tenant.example.com.
	BaseURL string
	// APIToken is sent as a bearer token.
	APIToken string
	// PageSize is the number of records per search page (optional).
	PageSize int
	// Connection is the qualified name lineage processes are created under.
	Connection string
	// HTTPClient overrides the transport (optional).
	HTTPClient *http.Client
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Client talks to the metadata platform. It implements core.AssetSource and
// core.LinkStore.
type Client struct {
	baseURL    *url.URL
	token      string
	pageSize   int
	connection string
	http       *http.Client
	logger     *slog.Logger
}

// New creates a platform client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("platform base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid platform base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid platform base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:    base,
		token:      cfg.APIToken,
		pageSize:   pageSize,
		connection: cfg.Connection,
		http:       httpClient,
		logger:     logger,
	}, nil
}

// do sends body as JSON to path and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("platform request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"scriptdex/internal/application/cooking"
	"scriptdex/internal/application/dto"
	"scriptdex/internal/application/query"
)

const (
	userAgent       = "scriptdex-client/1.0"
	contentTypeJSON = "application/json"

	pathHealth          = "/health"
	pathMeta            = "/meta"
	pathIndex           = "/catalog/index"
	pathSearch          = "/catalog/search"
	pathItems           = "/items/"
	pathTrace           = "/tuning/trace"
	pathI18n            = "/i18n/"
	pathCookingSimulate = "/cooking/simulate"
	pathReload          = "/admin/reload"
)

// APIError is a non-2xx response. Body holds the server's error envelope when it sent
// one.
type APIError struct {
	StatusCode int
	Body       dto.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("API request failed: %d %s: %s", e.StatusCode, e.Body.Error, e.Body.Message)
	}
	return fmt.Sprintf("API request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client talks to one scriptdex API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for config.
func NewClient(config *Config) (*Client, error) {
	return NewClientWithHTTPClient(config, nil)
}

// NewClientWithHTTPClient creates a client that sends requests through httpClient. A nil
// httpClient gets a default one with the configured timeout.
func NewClientWithHTTPClient(config *Config, httpClient *http.Client) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(config.APIURL, "/"),
		httpClient: httpClient,
	}, nil
}

// doRequest sends body as JSON when non-nil and decodes the response into result. Status
// codes listed in accept are decoded like a 2xx.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}, accept ...int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, code := range accept {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Health returns the server health. An unhealthy server answers 503 with a health body,
// which is returned without error.
func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	var result dto.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, pathHealth, nil, &result, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &result, nil
}

// Meta describes the snapshot the server is serving.
func (c *Client) Meta(ctx context.Context) (*query.MetaView, error) {
	var result query.MetaView
	if err := c.doRequest(ctx, http.MethodGet, pathMeta, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Index returns one page of the compact catalog index. Zero offset and limit use the
// server defaults.
func (c *Client) Index(ctx context.Context, offset, limit int) (*query.IndexPage, error) {
	var result query.IndexPage
	if err := c.doRequest(ctx, http.MethodGet, pathIndex+pageQuery(nil, offset, limit), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search runs q against the catalog.
func (c *Client) Search(ctx context.Context, q string, offset, limit int) (*query.SearchResult, error) {
	params := url.Values{"q": {q}}
	var result query.SearchResult
	if err := c.doRequest(ctx, http.MethodGet, pathSearch+pageQuery(params, offset, limit), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Item returns the detail view of one item.
func (c *Client) Item(ctx context.Context, id string) (*query.ItemDetail, error) {
	var result query.ItemDetail
	if err := c.doRequest(ctx, http.MethodGet, pathItems+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Trace returns the derivation of one trace key.
func (c *Client) Trace(ctx context.Context, key string) (*query.TraceResult, error) {
	params := url.Values{"key": {key}}
	var result query.TraceResult
	if err := c.doRequest(ctx, http.MethodGet, pathTrace+"?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TracePrefix returns the traces whose keys start with prefix.
func (c *Client) TracePrefix(ctx context.Context, prefix string, limit int) (*query.TracePage, error) {
	params := url.Values{"prefix": {prefix}}
	var result query.TracePage
	if err := c.doRequest(ctx, http.MethodGet, pathTrace+pageQuery(params, 0, limit), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// I18n returns the names of one language.
func (c *Client) I18n(ctx context.Context, lang string) (*query.I18nNames, error) {
	var result query.I18nNames
	if err := c.doRequest(ctx, http.MethodGet, pathI18n+url.PathEscape(lang), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CookingSimulate resolves a full pot on the server.
func (c *Client) CookingSimulate(ctx context.Context, req cooking.SimulateRequest) (*cooking.SimulateResult, error) {
	var result cooking.SimulateResult
	if err := c.doRequest(ctx, http.MethodPost, pathCookingSimulate, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reload asks the server to reload its snapshot from disk.
func (c *Client) Reload(ctx context.Context) (*dto.ReloadResponse, error) {
	var result dto.ReloadResponse
	if err := c.doRequest(ctx, http.MethodPost, pathReload, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func pageQuery(params url.Values, offset, limit int) string {
	if params == nil {
		params = url.Values{}
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

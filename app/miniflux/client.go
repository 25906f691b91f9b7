package miniflux

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
	"time"
)

const requestTimeout = 30 * time.Second

// Client talks to a Miniflux server through its REST API. Authentication is
// either an API token (X-Auth-Token header) or HTTP basic credentials; the
// token wins when both are set.
type Client struct {
	baseURL    string
	authToken  string
	username   string
	password   string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a new Miniflux API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// WithToken sets API token authentication
func (c *Client) WithToken(token string) *Client {
	c.authToken = token
	return c
}

// WithCredentials sets username/password authentication
func (c *Client) WithCredentials(username, password string) *Client {
	c.username = username
	c.password = password
	return c
}

// WithUserAgent overrides the User-Agent header on outgoing requests
func (c *Client) WithUserAgent(userAgent string) *Client {
	c.userAgent = userAgent
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/v1/"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	} else if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Path: path}
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("miniflux API error: %d on /v1/%s", e.StatusCode, e.Path)
}

// Authenticate verifies the configured credentials against the server.
// Returns false on a 401/403 rejection, an error on any other failure.
func (c *Client) Authenticate(ctx context.Context) (bool, error) {
	_, err := c.GetCurrentUser(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetCurrentUser returns the account the credentials belong to.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCategories returns every category of the authenticated user.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, http.MethodGet, "categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetFeeds returns every feed of the authenticated user.
func (c *Client) GetFeeds(ctx context.Context) ([]Feed, error) {
	var feeds []Feed
	if err := c.do(ctx, http.MethodGet, "feeds", nil, &feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

// GetEntries returns one window of entries matching the filters.
func (c *Client) GetEntries(ctx context.Context, filters *EntryFilters) (*EntryResponse, error) {
	path := "entries"
	if query := buildEntryQuery(filters); query != "" {
		path += "?" + query
	}

	var response EntryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// UpdateEntries sets the status of the given entries on the server.
func (c *Client) UpdateEntries(ctx context.Context, ids []int64, status string) error {
	body := struct {
		EntryIDs []int64 `json:"entry_ids"`
		Status   string  `json:"status"`
	}{EntryIDs: ids, Status: status}

	return c.do(ctx, http.MethodPut, "entries", &body, nil)
}

// ToggleBookmark flips the starred flag of an entry on the server.
func (c *Client) ToggleBookmark(ctx context.Context, entryID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("entries/%d/bookmark", entryID), nil, nil)
}

// GetCounters returns the server-side read/unread tally.
func (c *Client) GetCounters(ctx context.Context) (*Counters, error) {
	var counters Counters
	if err := c.do(ctx, http.MethodGet, "counters", nil, &counters); err != nil {
		return nil, err
	}
	return &counters, nil
}

func buildEntryQuery(filters *EntryFilters) string {
	if filters == nil {
		return ""
	}

	params := url.Values{}
	if filters.Status != nil {
		params.Set("status", *filters.Status)
	}
	if filters.Offset != nil {
		params.Set("offset", strconv.FormatInt(*filters.Offset, 10))
	}
	if filters.Limit != nil {
		params.Set("limit", strconv.FormatInt(*filters.Limit, 10))
	}
	if filters.Order != nil {
		params.Set("order", *filters.Order)
	}
	if filters.Direction != nil {
		params.Set("direction", *filters.Direction)
	}
	if filters.ChangedAfter != nil {
		params.Set("changed_after", strconv.FormatInt(*filters.ChangedAfter, 10))
	}
	if filters.Starred != nil {
		params.Set("starred", strconv.FormatBool(*filters.Starred))
	}
	if filters.Search != nil {
		params.Set("search", *filters.Search)
	}
	if filters.CategoryID != nil {
		params.Set("category_id", strconv.FormatInt(*filters.CategoryID, 10))
	}
	if filters.FeedID != nil {
		params.Set("feed_id", strconv.FormatInt(*filters.FeedID, 10))
	}

	return params.Encode()
}

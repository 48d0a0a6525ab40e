// Package monday wraps the monday.com GraphQL API for board metadata and
// item reads. Writes are out of scope; the sync pipeline only ever pulls.
package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/funnel-cli/internal/model"
)

const (
	defaultBaseURL = "https://api.monday.com/v2"
	apiVersion     = "2024-10"

	// pageLimit is the items_page size. monday caps pages at 500.
	pageLimit = 500

	// idBatch caps one items(ids:) lookup.
	idBatch = 100
)

// Client defines the monday.com operations used by this application.
type Client interface {
	Board(ctx context.Context, boardID string) (*Board, error)
	Items(ctx context.Context, boardID string, columnIDs []string) ([]model.RawRecord, error)
	ItemsByIDs(ctx context.Context, boardID string, ids []string, columnIDs []string) ([]model.RawRecord, error)
}

// Board is a board's identity plus its column schema.
type Board struct {
	ID      string
	Name    string
	Columns []model.ColumnMeta
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request throttle (5 req/s). A
// non-positive value disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a monday.com API client with the given API token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 25 * time.Second},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Board fetches one board's name and column schema.
func (c *httpClient) Board(ctx context.Context, boardID string) (*Board, error) {
	var data struct {
		Boards []board `json:"boards"`
	}
	vars := map[string]any{"boardID": []string{boardID}}
	if err := c.query(ctx, boardQuery, vars, &data); err != nil {
		return nil, err
	}
	if len(data.Boards) == 0 {
		return nil, eris.Errorf("monday: board %s not found", boardID)
	}
	return data.Boards[0].toBoard(), nil
}

// Items fetches every item on a board, following the items_page cursor
// until exhausted. Pass nil columnIDs to fetch every column value.
func (c *httpClient) Items(ctx context.Context, boardID string, columnIDs []string) ([]model.RawRecord, error) {
	vars := map[string]any{
		"boardID": []string{boardID},
		"limit":   pageLimit,
	}
	if columnIDs != nil {
		vars["columnIDs"] = columnIDs
	}
	var first struct {
		Boards []struct {
			ItemsPage itemsPage `json:"items_page"`
		} `json:"boards"`
	}
	if err := c.query(ctx, itemsFirstPageQuery, vars, &first); err != nil {
		return nil, err
	}
	if len(first.Boards) == 0 {
		return nil, eris.Errorf("monday: board %s not found", boardID)
	}

	page := first.Boards[0].ItemsPage
	records := toRecords(page.Items)

	for page.Cursor != nil && *page.Cursor != "" {
		vars := map[string]any{
			"cursor": *page.Cursor,
			"limit":  pageLimit,
		}
		if columnIDs != nil {
			vars["columnIDs"] = columnIDs
		}
		var next struct {
			NextItemsPage itemsPage `json:"next_items_page"`
		}
		if err := c.query(ctx, itemsNextPageQuery, vars, &next); err != nil {
			return nil, err
		}
		page = next.NextItemsPage
		records = append(records, toRecords(page.Items)...)
	}
	return records, nil
}

// ItemsByIDs fetches specific items by id, batching at the API's 100-id
// lookup limit. The boardID is accepted for interface symmetry; the lookup
// itself is id-global.
func (c *httpClient) ItemsByIDs(ctx context.Context, boardID string, ids []string, columnIDs []string) ([]model.RawRecord, error) {
	var records []model.RawRecord
	for len(ids) > 0 {
		batch := ids
		if len(batch) > idBatch {
			batch = batch[:idBatch]
		}
		ids = ids[len(batch):]

		vars := map[string]any{"ids": batch}
		if columnIDs != nil {
			vars["columnIDs"] = columnIDs
		}
		var data struct {
			Items []item `json:"items"`
		}
		if err := c.query(ctx, itemsByIDsQuery, vars, &data); err != nil {
			return nil, err
		}
		records = append(records, toRecords(data.Items)...)
	}
	return records, nil
}

// query posts one GraphQL request and decodes data into out.
func (c *httpClient) query(ctx context.Context, query string, vars map[string]any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "monday: rate limit")
		}
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return eris.Wrap(err, "monday: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monday: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)
	req.Header.Set("API-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "monday: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "monday: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("monday: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var gql gqlResponse
	if err := json.Unmarshal(respBody, &gql); err != nil {
		return eris.Wrap(err, "monday: unmarshal response")
	}
	if len(gql.Errors) > 0 {
		return eris.Errorf("monday: graphql error: %s", gql.Errors[0].Message)
	}
	if err := json.Unmarshal(gql.Data, out); err != nil {
		return eris.Wrap(err, "monday: unmarshal data")
	}
	return nil
}

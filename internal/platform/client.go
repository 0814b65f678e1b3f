package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// Client is the Graph client shared by the export, matcher, executor and
// rollback. It holds no business logic.
type Client struct {
	requester Requester
}

// NewClient creates a Client on top of a requester chain.
func NewClient(r Requester) *Client {
	return &Client{requester: r}
}

// pagedResponse is the OData collection envelope.
type pagedResponse struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// Get performs a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string, params url.Values, header http.Header) ([]byte, error) {
	return c.requester.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: params, Header: header})
}

// GetJSON performs a GET and unmarshals the response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	body, err := c.Get(ctx, path, params, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// GetAll fetches all pages of a collection, following @odata.nextLink.
func (c *Client) GetAll(ctx context.Context, path string, params url.Values) ([]models.Resource, error) {
	var all []models.Resource
	next := path
	query := params

	for next != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := c.Get(ctx, next, query, nil)
		if err != nil {
			return nil, err
		}

		var page pagedResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		for _, raw := range page.Value {
			var res models.Resource
			if err := json.Unmarshal(raw, &res); err != nil {
				return nil, fmt.Errorf("parsing resource: %w", err)
			}
			all = append(all, res)
		}

		// nextLink already carries the query options
		next = page.NextLink
		query = nil
	}
	if all == nil {
		all = []models.Resource{}
	}
	return all, nil
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return c.requester.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: payload})
}

// Delete performs a DELETE request. A 404 is reported as *RemoteError with
// KindNotFound; callers decide whether "already gone" is success.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.requester.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
	return err
}

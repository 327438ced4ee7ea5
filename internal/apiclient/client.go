package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/server"
	"github.com/brk3/healthdata/pkg/activity"
	"github.com/brk3/healthdata/pkg/versioninfo"
)

// Client is a healthstore.Store backed by a remote healthdata server.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(base, apiKey string) *Client {
	return &Client{
		BaseURL: base,
		APIKey:  apiKey,
		HTTP:    http.DefaultClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e server.ErrorResponse
		if json.NewDecoder(res.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %s: %s", method, path, res.Status, e.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, res.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) RequestAuthorization(ctx context.Context, categories []healthstore.Category) (bool, error) {
	var resp server.AuthorizationResponse
	err := c.do(ctx, http.MethodPost, "/authorization", server.AuthorizationRequest{Categories: categories}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Granted, nil
}

func (c *Client) ActivitySummaries(ctx context.Context, days activity.DayRange) ([]activity.Summary, error) {
	q := url.Values{}
	q.Set("start", days.Start.String())
	q.Set("end", days.End.String())

	var sums []activity.Summary
	if err := c.do(ctx, http.MethodGet, "/summaries?"+q.Encode(), nil, &sums); err != nil {
		return nil, err
	}
	return sums, nil
}

func (c *Client) PutSummaries(ctx context.Context, sums []activity.Summary) error {
	var resp server.ImportResponse
	return c.do(ctx, http.MethodPost, "/summaries", sums, &resp)
}

func (c *Client) Close() error {
	return nil
}

var _ healthstore.Store = (*Client)(nil)

func (c *Client) Version(ctx context.Context) (*versioninfo.VersionInfo, error) {
	var info versioninfo.VersionInfo
	if err := c.do(ctx, http.MethodGet, "/version", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

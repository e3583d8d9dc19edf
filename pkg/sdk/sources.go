package sdk

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Source is a link seen in an answer that is not on the official allow-list.
type Source struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Type       string    `json:"type"`
	Status     string    `json:"status"` // "pending", "approved" or "rejected"
	DetectedAt time.Time `json:"detectedAt"`
	Context    string    `json:"context,omitempty"`
}

type sourceList struct {
	Sources []Source `json:"sources"`
	Total   int      `json:"total"`
}

// Sources lists detected sources, optionally filtered by status ("" for all). Admin only.
func (c *Client) Sources(ctx context.Context, status string) ([]Source, error) {
	path := "/api/admin/sources"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out sourceList
	if err := c.do(ctx, "sources.list", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Sources, nil
}

// ApproveSource marks a source approved.
func (c *Client) ApproveSource(ctx context.Context, id string) (Source, error) {
	return c.moderate(ctx, "sources.approve", id, "approve")
}

// RejectSource marks a source rejected.
func (c *Client) RejectSource(ctx context.Context, id string) (Source, error) {
	return c.moderate(ctx, "sources.reject", id, "reject")
}

func (c *Client) moderate(ctx context.Context, op, id, action string) (Source, error) {
	var src Source
	path := "/api/admin/sources/" + url.PathEscape(id) + "/" + action
	if err := c.do(ctx, op, http.MethodPost, path, nil, &src); err != nil {
		return Source{}, err
	}
	return src, nil
}

// DeleteSource removes a source.
func (c *Client) DeleteSource(ctx context.Context, id string) error {
	return c.do(ctx, "sources.delete", http.MethodDelete, "/api/admin/sources/"+url.PathEscape(id), nil, nil)
}

// ClearSources removes every source.
func (c *Client) ClearSources(ctx context.Context) error {
	return c.do(ctx, "sources.clear", http.MethodPost, "/api/admin/sources/clear", nil, nil)
}

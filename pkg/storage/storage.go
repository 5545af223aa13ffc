// Package storage is a small client for the backend's object store. Artifact
// bytes for audio/image submissions are uploaded here before the submission
// row referencing them is created.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one bucket of the object store over its REST surface.
type Client struct {
	BaseURL string
	Bucket  string
	APIKey  string

	HTTPClient *http.Client
}

// NewClient creates a client for the given bucket. baseURL is the storage
// root, e.g. "https://project.example.co/storage/v1".
func NewClient(baseURL, bucket, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Bucket:     bucket,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload writes data to path within the bucket. Overwrite is idempotent: the
// upsert header makes a re-upload of the same path replace the object
// instead of failing, so a retried submission attempt cannot get stuck on a
// half-finished earlier one.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	url := fmt.Sprintf("%s/object/%s/%s", c.BaseURL, c.Bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("x-upsert", "true")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload %s: status %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// PublicURL returns the unauthenticated URL an uploaded object is served
// from.
func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.BaseURL, c.Bucket, path)
}

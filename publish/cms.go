// Package publish pushes finished articles to the CMS over its HTTP API.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"medscribe/types"
)

// Client publishes articles to a CMS endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// New creates a CMS client. Endpoint is the full article-creation URL.
func New(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type publishRequest struct {
	Title           string               `json:"title"`
	MetaDescription string               `json:"metaDescription"`
	Slug            string               `json:"slug"`
	Body            string               `json:"body"`
	InternalLinks   []types.InternalLink `json:"internalLinks,omitempty"`
}

type publishResponse struct {
	ID string `json:"id"`
}

// Publish creates the article in the CMS and returns its external id.
func (c *Client) Publish(ctx context.Context, article types.FinalArticle) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("cms endpoint not configured")
	}

	payload, err := json.Marshal(publishRequest{
		Title:           article.Title,
		MetaDescription: article.MetaDescription,
		Slug:            article.Slug,
		Body:            article.Body,
		InternalLinks:   article.InternalLinks,
	})
	if err != nil {
		return "", fmt.Errorf("marshal article: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", article.Slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("publish %s: status %d: %s", article.Slug, resp.StatusCode, snippet)
	}

	var parsed publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode publish response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("publish %s: response missing id", article.Slug)
	}
	return parsed.ID, nil
}

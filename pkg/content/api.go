package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"metacasts/pkg/httpclient"
)

var (
	// ErrFetchFailure covers network errors, non-success responses and
	// undecodable payloads.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrMissingContent is returned when a page carries no markup body.
	ErrMissingContent = errors.New("missing content")
)

// Page is one document of the content API.
type Page struct {
	URI      string
	Body     string
	AudioURL Lookup[string]
}

type apiResponse struct {
	Content struct {
		Body string `json:"body"`
	} `json:"content"`
	Meta struct {
		Audio []struct {
			MediaURL string `json:"mediaUrl"`
		} `json:"audio"`
	} `json:"meta"`
}

// Fetcher loads pages by their content URI.
type Fetcher interface {
	FetchPage(ctx context.Context, uri string) (*Page, error)
}

// Client talks to the content API. The page URI is appended verbatim to
// baseURL, which usually ends in "uri=".
type Client struct {
	http    *httpclient.HTTPClient
	baseURL string
}

// NewClient creates a content API client.
func NewClient(baseURL string, client *httpclient.HTTPClient) *Client {
	if client == nil {
		client = httpclient.NewClient(httpclient.JSON)
	}
	return &Client{http: client, baseURL: baseURL}
}

// FetchPage implements Fetcher.
func (c *Client) FetchPage(ctx context.Context, uri string) (*Page, error) {
	target := c.baseURL + uri
	resp, err := c.http.Get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailure, uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: unexpected status code: %d", ErrFetchFailure, uri, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrFetchFailure, uri, err)
	}
	return decodePage(uri, data)
}

func decodePage(uri string, data []byte) (*Page, error) {
	var raw apiResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: decode response: %v", ErrFetchFailure, uri, err)
	}
	if raw.Content.Body == "" {
		return nil, fmt.Errorf("%w: %s: content.body", ErrMissingContent, uri)
	}

	page := &Page{
		URI:      uri,
		Body:     raw.Content.Body,
		AudioURL: Missing[string]("meta.audio[0].mediaUrl"),
	}
	if len(raw.Meta.Audio) > 0 {
		page.AudioURL = text("meta.audio[0].mediaUrl", raw.Meta.Audio[0].MediaURL)
	}
	return page, nil
}

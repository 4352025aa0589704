// Package blog relays the external blog feed to the site.
package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/donia1222/remix-crypto-sub000/internal/model"
)

// Errors
var (
	ErrFeedFailed = errors.New("blog feed reported failure")
)

// feedResponse is the body of the blog endpoint.
type feedResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    []postWire `json:"data"`
}

type postWire struct {
	ID       postID `json:"id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	PostDate string `json:"post_date"`
	ImageURL string `json:"image_url"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// postID accepts a JSON string or number.
type postID string

func (p *postID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*p = postID(n.String())
		return nil
	}
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*p = ""
		return nil
	}
	unq, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("post id: %s is neither string nor number", s)
	}
	*p = postID(unq)
	return nil
}

// Client fetches the blog feed.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new blog feed client.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// FetchPosts fetches and validates the current list of posts. Entries
// without an id or title are dropped.
func (c *Client) FetchPosts(ctx context.Context) ([]model.BlogPost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch posts: status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("unmarshal posts: %w", err)
	}
	if !feed.Success {
		if feed.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrFeedFailed, feed.Message)
		}
		return nil, ErrFeedFailed
	}

	posts := make([]model.BlogPost, 0, len(feed.Data))
	for i, w := range feed.Data {
		if w.ID == "" || strings.TrimSpace(w.Title) == "" {
			c.logger.Debug("skipping invalid post", "index", i, "id", string(w.ID))
			continue
		}
		posts = append(posts, model.BlogPost{
			ID:       string(w.ID),
			Title:    w.Title,
			Excerpt:  w.Excerpt,
			PostDate: w.PostDate,
			ImageURL: w.ImageURL,
			Category: w.Category,
			Content:  w.Content,
		})
	}

	return posts, nil
}

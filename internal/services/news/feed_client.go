// Package news reads headlines from RSS and Atom feeds.
package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/httpclient"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

// DefaultUserAgent is sent with feed requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; prism/1.0)"

var _ interfaces.NewsFeedProvider = (*FeedClient)(nil)

// FeedClient fetches and parses one feed per call.
type FeedClient struct {
	httpClient *http.Client
	userAgent  string
	logger     arbor.ILogger
}

// NewFeedClient creates a feed client.
func NewFeedClient(httpClient *http.Client, userAgent string, logger arbor.ILogger) *FeedClient {
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient(20 * time.Second)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &FeedClient{
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Fetch returns the feed's items in feed order.
func (c *FeedClient) Fetch(ctx context.Context, url string) ([]models.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}
		items = append(items, toNewsItem(item, feed.Link))
	}

	c.logger.Debug().
		Str("feed", feed.Title).
		Int("items", len(items)).
		Msg("Feed parsed")

	return items, nil
}

func toNewsItem(item *gofeed.Item, baseURL string) models.NewsItem {
	title := strings.TrimSpace(item.Title)

	source := publisher(item.Description)
	if source == "" && item.Author != nil {
		source = item.Author.Name
	}
	if source == "" {
		source = publisherFromTitle(title)
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	}

	return models.NewsItem{
		Title:       title,
		Link:        strings.TrimSpace(item.Link),
		Source:      source,
		Summary:     summarize(item.Description, title, baseURL),
		PublishedAt: published,
	}
}

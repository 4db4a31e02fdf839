// Package news fetches RSS feeds and filters items for market relevance.
package news

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rewired-gh/gapsentry/internal/models"
)

// Client fetches and parses RSS feeds.
type Client struct {
	parser     *gofeed.Parser
	httpClient *http.Client
}

// NewClient creates a new feed client.
func NewClient(timeout time.Duration) *Client {
	httpClient := &http.Client{Timeout: timeout}
	parser := gofeed.NewParser()
	parser.Client = httpClient
	parser.UserAgent = "gapsentry/1.0"
	return &Client{
		parser:     parser,
		httpClient: httpClient,
	}
}

// FetchFeedItems retrieves one feed and converts its entries. Items without
// a GUID fall back to their link; items with neither are skipped.
func (c *Client) FetchFeedItems(ctx context.Context, feedName, feedURL string) ([]models.NewsItem, error) {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, &models.FetchError{Source: "news:" + feedName, Err: err}
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		guid := entry.GUID
		if guid == "" {
			guid = entry.Link
		}
		if guid == "" || entry.Title == "" {
			continue
		}

		title, source := splitTitleSource(entry.Title)
		if source == "" {
			source = feedName
		}

		published := time.Time{}
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		}

		items = append(items, models.NewsItem{
			GUID:      guid,
			Title:     title,
			Link:      entry.Link,
			Source:    source,
			FeedName:  feedName,
			Published: published,
		})
	}
	return items, nil
}

// splitTitleSource strips a trailing " - Source" suffix, the form Google
// News aggregated feeds use, returning the bare title and the source name.
func splitTitleSource(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 || idx+3 >= len(title) {
		return title, ""
	}
	source := strings.TrimSpace(title[idx+3:])
	// A long tail is part of the headline, not an outlet name.
	if len(source) > 40 || strings.Contains(source, " - ") {
		return title, ""
	}
	return strings.TrimSpace(title[:idx]), source
}

package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"

	"sattbot/models"
)

const (
	fetchTimeout = 10 * time.Second
	// One retry after the initial attempt
	maxRetries = 1
)

// Client fetches and parses the news and question-of-the-day feeds. It
// implements the service.FeedFetcher interface.
type Client struct {
	parser  *gofeed.Parser
	newsURL string
	qotdURL string
}

// NewClient creates a feed client for the given feed URLs
func NewClient(newsURL, qotdURL string) *Client {
	return &Client{
		parser:  gofeed.NewParser(),
		newsURL: newsURL,
		qotdURL: qotdURL,
	}
}

// FetchNews returns the current news feed items, newest first
func (c *Client) FetchNews(ctx context.Context) ([]models.FeedItem, error) {
	return c.fetch(ctx, c.newsURL)
}

// FetchQOTD returns the current question-of-the-day feed items, newest first
func (c *Client) FetchQOTD(ctx context.Context) ([]models.FeedItem, error) {
	return c.fetch(ctx, c.qotdURL)
}

// fetch retrieves and parses one feed with a bounded retry. Feed hosts hand
// out transient 5xx responses often enough that a single failure should not
// sink a daily run.
func (c *Client) fetch(ctx context.Context, url string) ([]models.FeedItem, error) {
	var parsed *gofeed.Feed

	operation := func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		var err error
		parsed, err = c.parser.ParseURLWithContext(url, fetchCtx)
		if err != nil {
			log.WithError(err).WithField("url", url).Warn("Feed fetch attempt failed")
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", url, err)
	}

	now := time.Now().UTC()
	items := make([]models.FeedItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		items = append(items, models.FeedItem{
			Title:       entry.Title,
			Link:        entry.Link,
			Description: entry.Description,
			PublishedAt: publishedTime(entry, now),
			FetchedAt:   now,
		})
	}

	return items, nil
}

// publishedTime picks the entry's published time, falling back to its
// updated time and finally the fetch time for feeds that omit dates
func publishedTime(entry *gofeed.Item, fallback time.Time) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return fallback
}

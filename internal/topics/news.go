package topics

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mmcdole/gofeed"
)

// Feed is one RSS source.
type Feed struct {
	URL    string
	Source string
}

var defaultFeeds = []Feed{
	{URL: "http://feeds.bbci.co.uk/news/world/rss.xml", Source: "BBC World"},
	{URL: "https://rss.nytimes.com/services/xml/rss/nyt/World.xml", Source: "NY Times"},
	{URL: "https://feeds.npr.org/1001/rss.xml", Source: "NPR"},
}

var defaultHeadlines = []string{
	"Climate change efforts continue worldwide",
	"Technology advances reshape daily life",
	"Cultural events bring communities together",
	"Health research shows promising results",
	"Economic trends affect global markets",
}

// Headline is one news item used as prompt inspiration.
type Headline struct {
	Title  string
	Link   string
	Source string
}

// Headlines fetches a random headline from a rotating set of RSS feeds.
type Headlines struct {
	feeds  []Feed
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewHeadlines creates a headline provider over the built-in feed list.
func NewHeadlines() *Headlines {
	return NewHeadlinesWithFeeds(defaultFeeds)
}

// NewHeadlinesWithFeeds creates a provider over a custom feed list (for testing).
func NewHeadlinesWithFeeds(feeds []Feed) *Headlines {
	return &Headlines{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		logger: slog.Default(),
	}
}

// FetchHeadline returns a headline from one randomly chosen feed, or a
// fixed fallback headline when the feed cannot be fetched or is empty.
func (h *Headlines) FetchHeadline(ctx context.Context) Headline {
	feed := h.feeds[rand.Intn(len(h.feeds))]
	headline, err := h.fetch(ctx, feed)
	if err != nil {
		h.logger.Warn("headline fetch failed, using default", "source", feed.Source, "error", err)
		return defaultHeadline()
	}
	return headline
}

func (h *Headlines) fetch(ctx context.Context, feed Feed) (Headline, error) {
	parsed, err := h.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return Headline{}, fmt.Errorf("parsing feed %s: %w", feed.Source, err)
	}

	var items []*gofeed.Item
	for _, item := range parsed.Items {
		if item.Title != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return Headline{}, fmt.Errorf("feed %s has no titled items", feed.Source)
	}

	// Pick among the freshest few items rather than the whole backlog.
	limit := len(items)
	if limit > 10 {
		limit = 10
	}
	item := items[rand.Intn(limit)]

	return Headline{
		Title:  item.Title,
		Link:   item.Link,
		Source: feed.Source,
	}, nil
}

func defaultHeadline() Headline {
	return Headline{
		Title:  defaultHeadlines[rand.Intn(len(defaultHeadlines))],
		Source: "Default",
	}
}

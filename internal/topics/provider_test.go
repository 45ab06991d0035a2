package topics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchTopic_DecodesEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":0,"results":[{"category":"Geography","question":"Which city is known as &quot;La Ciudad de M&eacute;xico&quot;?"}]}`))
	}))
	defer srv.Close()

	p := NewProviderWithBaseURL(srv.URL)
	topic := p.FetchTopic(context.Background())

	if topic.Text != `Which city is known as "La Ciudad de México"?` {
		t.Errorf("Text = %q, entities not decoded", topic.Text)
	}
	if topic.Category != "Geography" {
		t.Errorf("Category = %q", topic.Category)
	}
}

func TestFetchTopic_FallsBackOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProviderWithBaseURL(srv.URL)
	topic := p.FetchTopic(context.Background())

	if topic.Text == "" || topic.Category == "" {
		t.Errorf("fallback topic = %+v, want a default entry", topic)
	}
	assertIsDefaultTopic(t, topic)
}

func TestFetchTopic_FallsBackOnEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":1,"results":[]}`))
	}))
	defer srv.Close()

	p := NewProviderWithBaseURL(srv.URL)
	assertIsDefaultTopic(t, p.FetchTopic(context.Background()))
}

func assertIsDefaultTopic(t *testing.T, topic Topic) {
	t.Helper()
	for _, d := range defaultTopics {
		if d == topic {
			return
		}
	}
	t.Errorf("topic %+v is not from the default list", topic)
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item><title>First headline</title><link>https://example.com/1</link></item>
    <item><title>Second headline</title><link>https://example.com/2</link></item>
  </channel>
</rss>`

func TestFetchHeadline_ReturnsFeedItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	h := NewHeadlinesWithFeeds([]Feed{{URL: srv.URL, Source: "Test Feed"}})
	headline := h.FetchHeadline(context.Background())

	if headline.Source != "Test Feed" {
		t.Errorf("Source = %q", headline.Source)
	}
	if headline.Title != "First headline" && headline.Title != "Second headline" {
		t.Errorf("Title = %q, want an item from the feed", headline.Title)
	}
}

func TestFetchHeadline_FallsBackOnUnreachableFeed(t *testing.T) {
	h := NewHeadlinesWithFeeds([]Feed{{URL: "http://127.0.0.1:1/rss", Source: "Down"}})
	headline := h.FetchHeadline(context.Background())

	if headline.Source != "Default" {
		t.Errorf("Source = %q, want Default fallback", headline.Source)
	}
	if headline.Title == "" {
		t.Error("fallback headline has empty title")
	}
}

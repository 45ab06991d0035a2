// Package topics supplies conversation material for prompt generation:
// trivia questions and news headlines, each with a local fallback list so
// provider outages never block a delivery.
package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

const defaultTriviaBaseURL = "https://opentdb.com"

// Interesting categories from Open Trivia DB.
var triviaCategories = []int{
	9,  // General Knowledge
	17, // Science & Nature
	22, // Geography
	23, // History
	25, // Art
	26, // Celebrities
	27, // Animals
	28, // Vehicles
	21, // Sports
	11, // Film
	12, // Music
	14, // Television
}

var defaultTopics = []Topic{
	{Text: "What's your favorite way to spend a weekend?", Category: "Lifestyle"},
	{Text: "Describe your dream vacation destination", Category: "Travel"},
	{Text: "What hobby would you like to learn?", Category: "Hobbies"},
	{Text: "Tell me about a memorable meal you've had", Category: "Food"},
	{Text: "What's your favorite season and why?", Category: "Nature"},
	{Text: "Describe your morning routine", Category: "Daily Life"},
	{Text: "What movie have you watched recently?", Category: "Entertainment"},
	{Text: "Tell me about your hometown", Category: "Places"},
	{Text: "What's the best gift you've ever received?", Category: "Personal"},
	{Text: "Describe your ideal day off", Category: "Lifestyle"},
}

// Topic is one piece of conversation material.
type Topic struct {
	Text     string
	Category string
}

// Provider fetches trivia questions from Open Trivia DB.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProvider creates a trivia topic provider.
func NewProvider() *Provider {
	return &Provider{
		baseURL: defaultTriviaBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}
}

// NewProviderWithBaseURL creates a provider pointing at a custom API (for testing).
func NewProviderWithBaseURL(baseURL string) *Provider {
	p := NewProvider()
	p.baseURL = baseURL
	return p
}

type triviaResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Category string `json:"category"`
		Question string `json:"question"`
	} `json:"results"`
}

// FetchTopic returns one trivia question from a randomly chosen category,
// or a topic from the local fallback list when the API is unavailable.
func (p *Provider) FetchTopic(ctx context.Context) Topic {
	category := triviaCategories[rand.Intn(len(triviaCategories))]
	topic, err := p.fetchTrivia(ctx, category)
	if err != nil {
		p.logger.Warn("trivia fetch failed, using default topic", "error", err)
		return DefaultTopic()
	}
	p.logger.Debug("trivia selected", "category", topic.Category, "text", topic.Text)
	return topic
}

func (p *Provider) fetchTrivia(ctx context.Context, category int) (Topic, error) {
	url := fmt.Sprintf("%s/api.php?amount=1&category=%d&type=multiple", p.baseURL, category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Topic{}, fmt.Errorf("creating trivia request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Topic{}, fmt.Errorf("requesting trivia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Topic{}, fmt.Errorf("trivia API returned status %d", resp.StatusCode)
	}

	var data triviaResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Topic{}, fmt.Errorf("decoding trivia response: %w", err)
	}
	if data.ResponseCode != 0 || len(data.Results) == 0 {
		return Topic{}, fmt.Errorf("trivia API returned no results (code %d)", data.ResponseCode)
	}

	q := data.Results[0]
	return Topic{
		Text:     html.UnescapeString(q.Question),
		Category: q.Category,
	}, nil
}

// DefaultTopic picks a topic from the built-in fallback list.
func DefaultTopic() Topic {
	return defaultTopics[rand.Intn(len(defaultTopics))]
}

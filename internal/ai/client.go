// Package ai wraps the OpenAI API for voice transcription, response
// analysis, and practice-prompt generation.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/avetisov/charla/internal/storage"
)

// Analysis is the structured feedback for one spoken response. All five
// fields are required in the provider output; Mistakes may be empty when
// the response was clean.
type Analysis struct {
	Transcription string   `json:"transcription"`
	Mistakes      []string `json:"mistakes"`
	Corrections   string   `json:"corrections"`
	IdealResponse string   `json:"idealResponse"`
	Tips          []string `json:"tips"`
}

// Client calls OpenAI for the three provider roles the engine consumes.
type Client struct {
	api             *openai.Client
	chatModel       string
	transcribeModel string
}

// NewClient creates a Client using the given API key and models.
func NewClient(apiKey, chatModel, transcribeModel string) *Client {
	return &Client{
		api:             openai.NewClient(apiKey),
		chatModel:       chatModel,
		transcribeModel: transcribeModel,
	}
}

// NewClientWithBaseURL creates a client pointing at a custom API base URL (for testing).
func NewClientWithBaseURL(apiKey, chatModel, transcribeModel, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		api:             openai.NewClientWithConfig(cfg),
		chatModel:       chatModel,
		transcribeModel: transcribeModel,
	}
}

// Transcribe converts the audio file at path to Spanish text. Silence
// comes back as an empty string, not an error.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: path,
		Language: "es",
	})
	if err != nil {
		return "", fmt.Errorf("transcribing %s: %w", path, err)
	}
	return resp.Text, nil
}

// Analyze sends the original prompt and the student's transcribed response
// to the tutor model and returns the parsed feedback. A response missing
// any required field is an error.
func (c *Client) Analyze(ctx context.Context, prompt, transcript string, level storage.Difficulty) (*Analysis, error) {
	userContent := fmt.Sprintf(`Original English prompt: %q

Student's Spanish response (transcribed): %q

Please analyze this response and provide feedback.`, prompt, transcript)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: tutorSystemPrompt(level)},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("requesting analysis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("analysis returned no choices")
	}

	return ParseAnalysis(resp.Choices[0].Message.Content)
}

// ParseAnalysis decodes and validates a raw analysis payload. Markdown
// code fences around the JSON are tolerated.
func ParseAnalysis(content string) (*Analysis, error) {
	// Pointer fields distinguish a missing key from a legitimately empty value.
	var raw struct {
		Transcription *string   `json:"transcription"`
		Mistakes      *[]string `json:"mistakes"`
		Corrections   *string   `json:"corrections"`
		IdealResponse *string   `json:"idealResponse"`
		Tips          *[]string `json:"tips"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil {
		return nil, fmt.Errorf("parsing analysis JSON: %w", err)
	}

	var missing []string
	if raw.Transcription == nil {
		missing = append(missing, "transcription")
	}
	if raw.Mistakes == nil {
		missing = append(missing, "mistakes")
	}
	if raw.Corrections == nil {
		missing = append(missing, "corrections")
	}
	if raw.IdealResponse == nil {
		missing = append(missing, "idealResponse")
	}
	if raw.Tips == nil {
		missing = append(missing, "tips")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("analysis missing required fields: %s", strings.Join(missing, ", "))
	}

	return &Analysis{
		Transcription: *raw.Transcription,
		Mistakes:      *raw.Mistakes,
		Corrections:   *raw.Corrections,
		IdealResponse: *raw.IdealResponse,
		Tips:          *raw.Tips,
	}, nil
}

// GeneratePrompt asks the generator model for a practice scenario built
// around topic at the given level.
func (c *Client) GeneratePrompt(ctx context.Context, topic string, level storage.Difficulty) (string, error) {
	userContent := fmt.Sprintf(`Topic for inspiration: %q

Generate a practice prompt in English that the student should respond to in Spanish.`, topic)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatorSystemPrompt(level)},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generating prompt: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("prompt generation returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("prompt generation returned empty content")
	}
	return text, nil
}

// stripCodeFence removes a surrounding markdown code block, which some
// models emit despite JSON response mode.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

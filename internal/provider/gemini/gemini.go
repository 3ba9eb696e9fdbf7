// Package gemini implements the provider interface on top of the Google
// Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/questor-cli/questor/internal/provider"
)

// Client is the slice of the genai SDK the provider uses, extracted for
// testability.
type Client interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type genaiClient struct {
	client *genai.Client
}

func (c *genaiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, model, contents, config)
}

// Provider calls Gemini and returns the full response text.
type Provider struct {
	client      Client
	model       string
	temperature float32
	maxTokens   int32
}

// New creates a Gemini-backed provider.
func New(ctx context.Context, apiKey, model string, temperature float64, maxTokens int) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return NewWithClient(&genaiClient{client: client}, model, temperature, maxTokens), nil
}

// NewWithClient creates a provider over an injected client, for tests.
func NewWithClient(client Client, model string, temperature float64, maxTokens int) *Provider {
	return &Provider{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}
}

// Generate implements provider.Provider.
func (p *Provider) Generate(ctx context.Context, messages []provider.Message) (string, error) {
	contents, config := toGenai(messages)
	config.Temperature = &p.temperature
	if p.maxTokens > 0 {
		config.MaxOutputTokens = p.maxTokens
	}

	resp, err := p.client.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp)
}

// toGenai converts runtime messages to genai contents. System messages
// become the system instruction; assistant turns map to the model role.
func toGenai(messages []provider.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			}
		case "assistant", "model":
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		}
	}
	return contents, config
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("gemini blocked the response for safety")
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("gemini returned an empty candidate")
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/questor-cli/questor/internal/provider"
)

// mockClient captures the request and replays a canned response.
type mockClient struct {
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (m *mockClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.contents = contents
	m.config = config
	return m.resp, m.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(text)},
			},
		}},
	}
}

func TestGenerateRoleMapping(t *testing.T) {
	client := &mockClient{resp: textResponse("ok")}
	p := NewWithClient(client, "gemini-2.5-flash", 0.7, 1024)

	out, err := p.Generate(context.Background(), []provider.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	require.NotNil(t, client.config.SystemInstruction)
	require.Len(t, client.contents, 2)
	assert.Equal(t, "user", client.contents[0].Role)
	assert.Equal(t, "model", client.contents[1].Role)
	assert.Equal(t, int32(1024), client.config.MaxOutputTokens)
	require.NotNil(t, client.config.Temperature)
	assert.InDelta(t, 0.7, float64(*client.config.Temperature), 0.001)
}

func TestGenerateConcatenatesParts(t *testing.T) {
	client := &mockClient{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					genai.NewPartFromText("first "),
					genai.NewPartFromText("second"),
				},
			},
		}},
	}}
	p := NewWithClient(client, "gemini-2.5-flash", 0, 0)

	out, err := p.Generate(context.Background(), []provider.Message{{Role: "user", Content: "x"}})

	require.NoError(t, err)
	assert.Equal(t, "first second", out)
}

func TestGenerateNoCandidates(t *testing.T) {
	client := &mockClient{resp: &genai.GenerateContentResponse{}}
	p := NewWithClient(client, "gemini-2.5-flash", 0, 0)

	_, err := p.Generate(context.Background(), []provider.Message{{Role: "user", Content: "x"}})
	assert.ErrorContains(t, err, "no candidates")
}

func TestGenerateClientError(t *testing.T) {
	client := &mockClient{err: errors.New("quota exceeded")}
	p := NewWithClient(client, "gemini-2.5-flash", 0, 0)

	_, err := p.Generate(context.Background(), []provider.Message{{Role: "user", Content: "x"}})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "", "gemini-2.5-flash", 0.7, 1024)
	assert.ErrorContains(t, err, "api key")
}

package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/lectern/generate"
	"github.com/stretchr/testify/assert"
)

func TestNewBackend_RequiresKey(t *testing.T) {
	_, err := NewBackend(context.Background(), generate.NewConfig(generate.WithProvider(generate.ProviderGemini)))
	assert.Error(t, err)
}

func TestNewBackend_RequiresGeminiProvider(t *testing.T) {
	_, err := NewBackend(context.Background(), generate.NewConfig(generate.WithAPIKey("key")))
	assert.ErrorContains(t, err, "provider")
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"concepts": `),
				genai.Blob{MIMEType: "image/png"},
				genai.Text(`["osmosis"]}`),
			}},
		}},
	}
	assert.Equal(t, `{"concepts": ["osmosis"]}`, responseText(resp))
}

package generate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/lectern/generate"
	"github.com/poiesic/lectern/generate/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = "Photosynthesis converts light energy into chemical energy stored in glucose."

func newClient(t *testing.T, backend generate.Backend, opts ...generate.Option) *generate.Client {
	t.Helper()
	c, err := generate.NewClient(backend, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresBackend(t *testing.T) {
	_, err := generate.NewClient(nil)
	assert.ErrorIs(t, err, generate.ErrBackendRequired)
}

func TestFlashcards(t *testing.T) {
	backend := mock.NewMockBackend("```json\n" + `{"flashcards": [
		{"question": "What does photosynthesis produce?", "answer": "Glucose."},
		{"question": "What energy does it use?", "answer": "Light."}
	]}` + "\n```")
	client := newClient(t, backend)

	cards, err := client.Flashcards(context.Background(), source, 2)
	require.NoError(t, err)
	assert.Equal(t, []generate.Flashcard{
		{Question: "What does photosynthesis produce?", Answer: "Glucose."},
		{Question: "What energy does it use?", Answer: "Light."},
	}, cards)

	prompts := backend.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, source)
	assert.Contains(t, prompts[0].Text, "exactly 2 flashcards")
	assert.InDelta(t, 0.3, prompts[0].Temperature, 1e-9)
	assert.Equal(t, 2048, prompts[0].MaxTokens)
}

func TestFlashcards_DefaultCount(t *testing.T) {
	backend := mock.NewMockBackend(`{"flashcards": []}`)
	client := newClient(t, backend)

	cards, err := client.Flashcards(context.Background(), source, 0)
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.Contains(t, backend.Prompts()[0].Text, "exactly 10 flashcards")
}

func TestQuiz(t *testing.T) {
	backend := mock.NewMockBackend(`Here is your quiz: {"questions": [{
		"question": "Where is glucose made?",
		"options": ["Roots", "Chloroplasts", "Stem", "Flowers"],
		"correctAnswer": 1,
		"explanation": "Photosynthesis happens in chloroplasts."
	}]}`)
	client := newClient(t, backend)

	questions, err := client.Quiz(context.Background(), source, 0)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, 1, questions[0].CorrectIndex)
	assert.Len(t, questions[0].Options, 4)

	prompt := backend.Prompts()[0]
	assert.Contains(t, prompt.Text, "exactly 5 questions")
	assert.InDelta(t, 0.4, prompt.Temperature, 1e-9)
}

func TestSummarize(t *testing.T) {
	backend := mock.NewMockBackend(`{"summary": "Plants turn light into sugar."}`, `{"summary": "Longer."}`)
	client := newClient(t, backend)
	ctx := context.Background()

	summary, err := client.Summarize(ctx, source, "")
	require.NoError(t, err)
	assert.Equal(t, generate.Summary{Text: "Plants turn light into sugar.", Kind: generate.SummaryShort}, summary)

	summary, err = client.Summarize(ctx, source, generate.SummaryDetailed)
	require.NoError(t, err)
	assert.Equal(t, generate.SummaryDetailed, summary.Kind)

	prompts := backend.Prompts()
	assert.Contains(t, prompts[0].Text, "at most 100 words")
	assert.Contains(t, prompts[1].Text, "at most 300 words")
	assert.InDelta(t, 0.5, prompts[1].Temperature, 1e-9)
}

func TestConcepts(t *testing.T) {
	backend := mock.NewMockBackend(`{"concepts": ["photosynthesis", "glucose", "chlorophyll"]}`)
	client := newClient(t, backend)

	concepts, err := client.Concepts(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, []string{"photosynthesis", "glucose", "chlorophyll"}, concepts)
}

func TestGenerate_ReturnsArtifactUnion(t *testing.T) {
	backend := mock.NewMockBackend(`{"concepts": ["osmosis"]}`)
	client := newClient(t, backend)

	artifacts, err := client.Generate(context.Background(), source, generate.Request{Task: generate.TaskConcepts})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, generate.TaskConcepts, artifacts[0].Task())

	list, ok := artifacts[0].(generate.ConceptList)
	require.True(t, ok)
	assert.Equal(t, []string{"osmosis"}, list.Concepts)
}

func TestGenerate_ParseFailureCarriesRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "I'm sorry, I can't produce flashcards for that."},
		{"unbalanced", `{"flashcards": [{"question": "q", "answer": "a"}`},
		{"wrong shape", `{"cards": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := mock.NewMockBackend(tt.raw)
			client := newClient(t, backend)

			cards, err := client.Flashcards(context.Background(), source, 3)
			assert.Nil(t, cards, "no partial data on parse failure")
			require.ErrorIs(t, err, generate.ErrParseFailure)

			var genErr *generate.GenerationError
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, tt.raw, genErr.Raw)
			assert.Equal(t, generate.TaskFlashcards, genErr.Task)
			assert.Equal(t, 1, backend.CallCount(), "parse failures are not retried")
		})
	}
}

func TestGenerate_BackendFailureIsNotRetried(t *testing.T) {
	cause := errors.New("503 service unavailable")
	backend := mock.NewMockBackend().WithCompleteFunc(func(ctx context.Context, p generate.Prompt) (string, error) {
		return "", cause
	})
	client := newClient(t, backend)

	_, err := client.Quiz(context.Background(), source, 3)
	assert.ErrorIs(t, err, generate.ErrBackendFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, backend.CallCount())
}

func TestGenerate_InvalidRequests(t *testing.T) {
	backend := mock.NewMockBackend()
	client := newClient(t, backend)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		req  generate.Request
	}{
		{"empty text", "  ", generate.Request{Task: generate.TaskConcepts}},
		{"unknown task", source, generate.Request{Task: "mindmap"}},
		{"too many flashcards", source, generate.Request{Task: generate.TaskFlashcards, Count: 21}},
		{"negative quiz count", source, generate.Request{Task: generate.TaskQuiz, Count: -1}},
		{"too many questions", source, generate.Request{Task: generate.TaskQuiz, Count: 11}},
		{"unknown summary kind", source, generate.Request{Task: generate.TaskSummary, SummaryKind: "epic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Generate(ctx, tt.text, tt.req)
			assert.ErrorIs(t, err, generate.ErrInvalidRequest)
		})
	}
	assert.Zero(t, backend.CallCount())
}

func TestClientOptions(t *testing.T) {
	backend := mock.NewMockBackend(`{"concepts": ["x"]}`)
	_, err := generate.NewClient(backend, generate.WithOutputTokenLimit(0))
	assert.Error(t, err)
	_, err = generate.NewClient(backend, generate.WithInputTokenLimit(-1))
	assert.Error(t, err)

	client := newClient(t, backend, generate.WithOutputTokenLimit(512), generate.WithLogger(nil))
	_, err = client.Concepts(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, 512, backend.Prompts()[0].MaxTokens)
}

func TestParseTask(t *testing.T) {
	task, err := generate.ParseTask(" Quiz ")
	require.NoError(t, err)
	assert.Equal(t, generate.TaskQuiz, task)

	_, err = generate.ParseTask("essay")
	assert.ErrorIs(t, err, generate.ErrInvalidRequest)
}

func TestClientLimitsFromConfig(t *testing.T) {
	cfg := generate.NewConfig(generate.WithMaxOutputTokens(256))
	require.NoError(t, cfg.Validate())

	backend := mock.NewMockBackend(`{"concepts": ["mitosis"]}`)
	client := newClient(t, backend,
		generate.WithOutputTokenLimit(cfg.MaxOutputTokens),
		generate.WithInputTokenLimit(cfg.MaxInputTokens), // zero: no truncation
	)

	concepts, err := client.Concepts(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, []string{"mitosis"}, concepts)
	assert.Equal(t, 256, backend.Prompts()[0].MaxTokens)
}

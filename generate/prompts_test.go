package generate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompts_Embedded(t *testing.T) {
	prompts, err := loadPrompts(promptFiles)
	require.NoError(t, err)

	temperatures := map[Task]float64{
		TaskFlashcards: 0.3,
		TaskQuiz:       0.4,
		TaskSummary:    0.5,
		TaskConcepts:   0.3,
	}
	for task, want := range temperatures {
		p, ok := prompts[task]
		require.True(t, ok, "prompt for %s", task)
		assert.InDelta(t, want, p.Config.Temperature, 1e-9, "temperature for %s", task)
	}
}

func TestPromptTemplate_Execute(t *testing.T) {
	prompts, err := loadPrompts(promptFiles)
	require.NoError(t, err)

	out, err := prompts[TaskFlashcards].Execute(promptData{Content: "Mitochondria make ATP.", Count: 7})
	require.NoError(t, err)
	assert.Contains(t, out, "exactly 7 flashcards")
	assert.Contains(t, out, "Mitochondria make ATP.")
	assert.Contains(t, out, `"flashcards"`)
	assert.NotContains(t, out, "temperature:")

	out, err = prompts[TaskSummary].Execute(promptData{Content: "x", Words: SummaryDetailed.words()})
	require.NoError(t, err)
	assert.Contains(t, out, "at most 300 words")
}

func TestPromptTemplate_ContentIsNotTemplated(t *testing.T) {
	prompts, err := loadPrompts(promptFiles)
	require.NoError(t, err)

	out, err := prompts[TaskConcepts].Execute(promptData{Content: "{{.Count}} braces stay literal"})
	require.NoError(t, err)
	assert.Contains(t, out, "{{.Count}} braces stay literal")
}

func TestLoadPrompts_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"no front matter", "just a body"},
		{"bad yaml", "---\ntask: [\n---\nbody"},
		{"no task", "---\ntemperature: 0.2\n---\nbody"},
		{"bad template", "---\ntask: flashcards\n---\n{{.Content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"prompts/flashcards.prompt": {Data: []byte(tt.file)}}
			_, err := loadPrompts(fsys)
			assert.Error(t, err)
		})
	}

	t.Run("missing task", func(t *testing.T) {
		fsys := fstest.MapFS{"prompts/flashcards.prompt": {Data: []byte("---\ntask: flashcards\n---\nbody")}}
		_, err := loadPrompts(fsys)
		assert.ErrorContains(t, err, "no prompt for task")
	})
}

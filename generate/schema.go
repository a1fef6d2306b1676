package generate

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Response shapes, one per task. Keys match what the prompts ask for.
var schemaSources = map[Task]string{
	TaskFlashcards: `{
  "type": "object",
  "required": ["flashcards"],
  "properties": {
    "flashcards": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "answer"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "answer": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`,
	TaskQuiz: `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "options", "correctAnswer", "explanation"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 4,
            "maxItems": 4,
            "items": {"type": "string"}
          },
          "correctAnswer": {"type": "integer", "minimum": 0, "maximum": 3},
          "explanation": {"type": "string"}
        }
      }
    }
  }
}`,
	TaskSummary: `{
  "type": "object",
  "required": ["summary"],
  "properties": {
    "summary": {"type": "string", "minLength": 1}
  }
}`,
	TaskConcepts: `{
  "type": "object",
  "required": ["concepts"],
  "properties": {
    "concepts": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  }
}`,
}

var schemas = mustCompileSchemas()

func mustCompileSchemas() map[Task]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	out := make(map[Task]*jsonschema.Schema, len(schemaSources))
	for task, src := range schemaSources {
		url := string(task) + ".json"
		if err := compiler.AddResource(url, strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("add %s schema: %v", task, err))
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("compile %s schema: %v", task, err))
		}
		out[task] = schema
	}
	return out
}

// validateShape checks a decoded JSON document against the task schema.
func validateShape(task Task, doc any) error {
	schema, ok := schemas[task]
	if !ok {
		return fmt.Errorf("%w: unknown task %q", ErrInvalidRequest, task)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

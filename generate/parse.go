package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errNoJSON         = errors.New("no JSON object or array found")
	errUnbalancedJSON = errors.New("unbalanced JSON")
	errInvalidJSON    = errors.New("invalid JSON")
)

const fence = "```"

// ExtractJSON finds the JSON payload in a model reply. It drops a markdown code
// fence when present, then returns the first balanced top-level object or array
// that parses as JSON. Bracketed prose such as "[as requested]" before the payload is
// skipped. Brackets inside string literals do not count towards the balance.
func ExtractJSON(raw string) (string, error) {
	s := stripFence(raw)

	var firstErr error
	for start := strings.IndexAny(s, "{["); start >= 0; {
		region, err := balancedRegion(s, start)
		if err == nil && json.Valid([]byte(region)) {
			return region, nil
		}
		if firstErr == nil {
			if err == nil {
				err = fmt.Errorf("%w at offset %d", errInvalidJSON, start)
			}
			firstErr = err
		}

		next := strings.IndexAny(s[start+1:], "{[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	if firstErr == nil {
		return "", errNoJSON
	}
	return "", firstErr
}

// balancedRegion scans s from start, which holds '{' or '[', to the matching
// closing bracket.
func balancedRegion(s string, start int) (string, error) {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", fmt.Errorf("%w: unexpected %q at offset %d", errUnbalancedJSON, c, i)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: %d unclosed", errUnbalancedJSON, len(stack))
}

// stripFence returns the body of the first fenced code block, or s unchanged
// when it has no fence. An unterminated fence keeps everything after it.
func stripFence(s string) string {
	open := strings.Index(s, fence)
	if open < 0 {
		return s
	}
	body := s[open+len(fence):]

	// Skip a language tag such as ```json
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isInfoString(body[:nl]) {
		body = body[nl+1:]
	}
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	return body
}

func isInfoString(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// decode parses a model reply for task and checks it against the task schema.
func decode(task Task, raw string) (any, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, err
	}
	if err := validateShape(task, doc); err != nil {
		return nil, err
	}

	switch task {
	case TaskFlashcards:
		var out struct {
			Flashcards []Flashcard `json:"flashcards"`
		}
		err = json.Unmarshal([]byte(payload), &out)
		return out.Flashcards, err
	case TaskQuiz:
		var out struct {
			Questions []QuizQuestion `json:"questions"`
		}
		err = json.Unmarshal([]byte(payload), &out)
		return out.Questions, err
	case TaskSummary:
		var out Summary
		err = json.Unmarshal([]byte(payload), &out)
		return out, err
	case TaskConcepts:
		var out ConceptList
		err = json.Unmarshal([]byte(payload), &out)
		return out, err
	}
	return nil, fmt.Errorf("%w: unknown task %q", ErrInvalidRequest, task)
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package generate

import (
	"fmt"
	"strings"
)

// Task names a kind of study artifact.
type Task string

const (
	TaskFlashcards Task = "flashcards"
	TaskQuiz       Task = "quiz"
	TaskSummary    Task = "summary"
	TaskConcepts   Task = "concepts"
)

// Tasks lists every supported task.
var Tasks = []Task{TaskFlashcards, TaskQuiz, TaskSummary, TaskConcepts}

// ParseTask converts a task name, ignoring case and surrounding spaces.
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tasks {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown task %q", ErrInvalidRequest, s)
}

// SummaryKind selects the length of a summary.
type SummaryKind string

const (
	SummaryShort    SummaryKind = "short"
	SummaryDetailed SummaryKind = "detailed"
)

// words returns the target length used in the prompt.
func (k SummaryKind) words() int {
	if k == SummaryDetailed {
		return 300
	}
	return 100
}

// Artifact is one generated study item. The set of implementations is closed:
// Flashcard, QuizQuestion, Summary and ConceptList.
type Artifact interface {
	Task() Task
	artifact()
}

// Flashcard is a question with its answer.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizQuestion is a multiple choice question with exactly four options.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswer"`
	Explanation  string   `json:"explanation"`
}

// Summary is a prose summary of the source text.
type Summary struct {
	Text string      `json:"summary"`
	Kind SummaryKind `json:"-"`
}

// ConceptList holds the key terms found in the source text.
type ConceptList struct {
	Concepts []string `json:"concepts"`
}

func (Flashcard) Task() Task    { return TaskFlashcards }
func (QuizQuestion) Task() Task { return TaskQuiz }
func (Summary) Task() Task      { return TaskSummary }
func (ConceptList) Task() Task  { return TaskConcepts }

func (Flashcard) artifact()    {}
func (QuizQuestion) artifact() {}
func (Summary) artifact()      {}
func (ConceptList) artifact()  {}

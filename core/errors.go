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


package core

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// ErrValidation indicates malformed request data.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the content is missing or not owned by the caller.
	ErrNotFound = errors.New("content not found")

	// ErrUnsupportedSourceType indicates no adapter handles the declared source type.
	ErrUnsupportedSourceType = errors.New("unsupported source type")

	// ErrInvalidTransition indicates a status change the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStaleJob indicates a job belongs to an older generation than the content record,
	// or that its generation has already reached a terminal state.
	ErrStaleJob = errors.New("stale job")

	// ErrStillProcessing indicates generation was requested for content that is not completed.
	ErrStillProcessing = errors.New("content is still processing")

	// ErrQueueExhausted indicates all retry attempts were consumed.
	ErrQueueExhausted = errors.New("queue attempts exhausted")
)

// Extraction error kinds. Match them with errors.Is.
var (
	ErrCorruptFile           = errors.New("corrupt file")
	ErrProtectedContent      = errors.New("protected content")
	ErrNoExtractableText     = errors.New("no extractable text")
	ErrFetchTimeout          = errors.New("fetch timeout")
	ErrFetchError            = errors.New("fetch error")
	ErrInvalidVideoURL       = errors.New("invalid video url")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
)

// ExtractionError is returned by source adapters. Kind is one of the extraction
// error kinds above and Err, when set, is the underlying cause.
type ExtractionError struct {
	Kind   error
	Source SourceType
	Detail string
	Err    error
}

// NewExtractionError builds an ExtractionError.
func NewExtractionError(kind error, source SourceType, detail string, cause error) *ExtractionError {
	return &ExtractionError{Kind: kind, Source: source, Detail: detail, Err: cause}
}

func (e *ExtractionError) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

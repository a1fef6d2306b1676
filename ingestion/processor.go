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


package ingestion

import (
	"context"

	"github.com/poiesic/lectern/core"
)

// ContentStore applies the worker's status transitions to content records.
// Each method takes the generation of the job doing the work and fails with
// core.ErrStaleJob when that generation is no longer current.
type ContentStore interface {
	// MarkProcessing records the start of an attempt.
	MarkProcessing(ctx context.Context, id string, generation uint64) (*core.Content, error)

	// Complete stores the extracted text and marks the content completed.
	Complete(ctx context.Context, id string, generation uint64, text string) (*core.Content, error)

	// Fail marks the content failed with the last error message.
	Fail(ctx context.Context, id string, generation uint64, errMsg string) (*core.Content, error)
}

// Extractor turns a source into plain text.
type Extractor interface {
	Extract(ctx context.Context, src core.Source) (string, error)
}

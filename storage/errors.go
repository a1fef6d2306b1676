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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a duplicate key violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConflict indicates a write kept conflicting with concurrent writers.
	ErrConflict = errors.New("write conflict")

	// ErrLeaseLost indicates a job lease expired and the job was leased again.
	ErrLeaseLost = errors.New("job lease lost")

	// ErrInvalidJob indicates a job without a content ID or attempt budget.
	ErrInvalidJob = errors.New("invalid job")

	// ErrCheckpointBehind indicates a checkpoint save whose cursor is behind the stored one.
	ErrCheckpointBehind = errors.New("checkpoint cursor behind stored cursor")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)

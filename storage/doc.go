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


// Package storage provides the storage abstraction layer for lectern.
//
// This package defines repository interfaces that decouple storage implementation
// from the ingestion pipeline. The BadgerDB implementation lives in storage/badger.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - ContentRepository: Content records with owner and status indices
//   - JobQueue: Durable lease-based job queue
//   - CheckpointRepository: Progress markers for resumable batch sweeps
//
// # Concurrency
//
// ContentRepository.UpdateContent is the only way to modify a stored record.
// It runs the caller's mutation inside a transaction that is replayed when a
// concurrent writer commits first, so read-modify-write cycles on the same
// record never lose updates.
//
// JobQueue delivers at least once. A job leased by a consumer that dies is
// leased again once the lease expires; acknowledgements from the earlier
// holder then fail with ErrLeaseLost.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// # Context Support
//
// All repository methods accept context.Context for cancellation.
package storage

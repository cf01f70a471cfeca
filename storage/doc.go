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


// Package storage provides the storage abstraction layer for sessionrag.
//
// This package defines repository interfaces that decouple storage implementation
// from retrieval logic. Documents are partitioned by session and every vector
// query carries a Filter naming the one session it may see.
//
// # Architecture
//
//   - Repository: Transaction support and lifecycle shared by all repositories
//   - SessionRepository: Operations for sessions
//   - DocumentRepository: Operations for conversation documents
//   - VectorIndex: Filtered nearest-neighbor queries over document vectors
//   - CheckpointRepository: Progress tracking for resumable batch jobs
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	documents, err := badger.NewDocumentRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer documents.Close()
//
// Use in tests with in-memory storage:
//
//	sessions, documents, backend, err := badger.NewMemoryRepositories()
//
// # Serialization
//
// Records are stored in MUS binary format using the serializers generated
// into core by cmd/musgen (see serialization.go).
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage

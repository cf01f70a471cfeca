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


package retrieval

import "errors"

var (
	// ErrRetrievalUnavailable is returned when the embedding provider or the
	// vector index fails. The failing cause is wrapped alongside it.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrInvalidPoolSize is returned when a fetch asks for fewer than one candidate.
	ErrInvalidPoolSize = errors.New("pool size must be at least 1")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidWeights is returned for negative fusion weights.
	ErrInvalidWeights = errors.New("fusion weights must be non-negative")

	// ErrInvalidTopK is returned for a non-positive default topK.
	ErrInvalidTopK = errors.New("topK must be at least 1")

	// ErrInvalidPoolFactor is returned for a pool factor below 1.
	ErrInvalidPoolFactor = errors.New("pool factor must be at least 1")
)

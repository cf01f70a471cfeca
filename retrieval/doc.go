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


// Package retrieval implements session-scoped hybrid retrieval.
//
// A query runs as one sequential pipeline:
//
//	fetch -> lexical score -> normalize -> fuse
//
// The Fetcher embeds the query and asks the vector index for the nearest
// 2×topK documents of one session. ScoreBM25 scores that candidate pool
// lexically, treating the pool itself as the corpus. Normalize rescales the
// dense similarities and the BM25 scores into [0,1] independently, and Fuse
// ranks candidates by a weighted sum and keeps the best topK.
//
// Only the fetch stage performs I/O and only it can fail. The remaining
// stages are pure functions over per-call slices, so one Engine may serve
// any number of concurrent callers.
package retrieval

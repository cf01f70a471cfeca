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

import (
	"math"
	"strings"
)

// Okapi BM25 parameters.
const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

// BM25 scores documents against a query with Okapi BM25, using the documents
// themselves as the corpus for document frequencies and average length.
type BM25 struct {
	// K1 controls term frequency saturation.
	K1 float64
	// B controls document length normalization, 0 disables it.
	B float64
	// Epsilon scales the average IDF used as a floor for terms whose IDF
	// would otherwise be negative (terms present in more than half the corpus).
	Epsilon float64
}

// NewBM25 returns a scorer with the standard parameters.
func NewBM25() BM25 {
	return BM25{K1: DefaultK1, B: DefaultB, Epsilon: DefaultEpsilon}
}

// ScoreBM25 scores documents against query with the standard parameters.
func ScoreBM25(query string, documents []string) []float64 {
	return NewBM25().Score(query, documents)
}

// Tokenize splits text on whitespace. Case and punctuation are preserved.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Score returns one score per document, positionally aligned with documents.
// Repeated query tokens contribute once per occurrence.
func (p BM25) Score(query string, documents []string) []float64 {
	scores := make([]float64, len(documents))
	if len(documents) == 0 {
		return scores
	}

	corpus := make([]map[string]int, len(documents))
	lengths := make([]int, len(documents))
	df := make(map[string]int)
	total := 0
	for i, doc := range documents {
		tokens := Tokenize(doc)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for tok := range freqs {
			df[tok]++
		}
		corpus[i] = freqs
		lengths[i] = len(tokens)
		total += len(tokens)
	}

	// Nothing to match against
	if total == 0 {
		return scores
	}

	n := float64(len(documents))
	avgdl := float64(total) / n
	idf := make(map[string]float64, len(df))
	var idfSum float64
	var negative []string
	for tok, freq := range df {
		v := math.Log(n-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		idf[tok] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, tok)
		}
	}
	floor := p.Epsilon * idfSum / float64(len(idf))
	for _, tok := range negative {
		idf[tok] = floor
	}

	for _, q := range Tokenize(query) {
		w, ok := idf[q]
		if !ok {
			continue
		}
		for i, freqs := range corpus {
			f := float64(freqs[q])
			if f == 0 {
				continue
			}
			norm := 1 - p.B + p.B*float64(lengths[i])/avgdl
			scores[i] += w * (f * (p.K1 + 1)) / (f + p.K1*norm)
		}
	}

	return scores
}

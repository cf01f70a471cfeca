package retrieval

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/poiesic/sessionrag/core"
)

// Weights are the fusion coefficients. They need not sum to 1.
type Weights struct {
	Dense  float64
	Sparse float64
}

// DefaultWeights favors semantic similarity over lexical overlap.
var DefaultWeights = Weights{Dense: 0.7, Sparse: 0.3}

// Validate reports ErrInvalidWeights for negative coefficients.
func (w Weights) Validate() error {
	if w.Dense < 0 || w.Sparse < 0 {
		return fmt.Errorf("%w: dense=%g sparse=%g", ErrInvalidWeights, w.Dense, w.Sparse)
	}
	return nil
}

// Fuse ranks candidates by Dense*dense[i] + Sparse*sparse[i] and returns at
// most topK of them, highest score first. Equal scores keep candidate order.
// dense and sparse must be aligned with candidates; a length mismatch is a
// programming error and panics.
func Fuse(candidates []core.Candidate, dense, sparse []float64, w Weights, topK int) []core.ScoredDocument {
	if len(dense) != len(candidates) || len(sparse) != len(candidates) {
		panic(fmt.Sprintf("retrieval: score length mismatch: candidates=%d dense=%d sparse=%d",
			len(candidates), len(dense), len(sparse)))
	}
	if topK <= 0 {
		return []core.ScoredDocument{}
	}

	results := make([]core.ScoredDocument, len(candidates))
	for i, c := range candidates {
		results[i] = core.ScoredDocument{
			Document: c.Document,
			Dense:    dense[i],
			Sparse:   sparse[i],
			Score:    w.Dense*dense[i] + w.Sparse*sparse[i],
		}
	}

	slices.SortStableFunc(results, func(a, b core.ScoredDocument) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

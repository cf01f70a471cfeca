package retrieval

// Fill values used when every score in a vector is identical.
const (
	// DenseFill treats uniformly similar candidates as fully relevant.
	DenseFill = 1.0
	// SparseFill treats a uniform lexical signal as no signal.
	SparseFill = 0.0
)

// Normalize min-max scales scores into [0,1]. When max == min, which
// includes single-element input, every output is fill. The input is not
// modified and the output always has the same length.
func Normalize(scores []float64, fill float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = min(lo, s)
		hi = max(hi, s)
	}

	if hi == lo {
		for i := range out {
			out[i] = fill
		}
		return out
	}

	span := hi - lo
	for i, s := range scores {
		out[i] = (s - lo) / span
	}
	return out
}

// NormalizeDense normalizes cosine similarities.
func NormalizeDense(scores []float64) []float64 {
	return Normalize(scores, DenseFill)
}

// NormalizeSparse normalizes lexical scores.
func NormalizeSparse(scores []float64) []float64 {
	return Normalize(scores, SparseFill)
}

package retrieval

import "github.com/poiesic/sessionrag/core"

// Monitor provides hooks to observe the retrieval pipeline.
// Hooks run synchronously on the calling goroutine.
type Monitor interface {
	Start(query string, sessionID core.SessionID, topK int)
	AfterFetch(candidates []core.Candidate)
	AfterLexical(sparse []float64)
	AfterNormalize(dense, sparse []float64)
	Finish(results []core.ScoredDocument)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.SessionID, _ int) {}
func (n *noopMonitor) AfterFetch(_ []core.Candidate) {}
func (n *noopMonitor) AfterLexical(_ []float64) {}
func (n *noopMonitor) AfterNormalize(_, _ []float64) {}
func (n *noopMonitor) Finish(_ []core.ScoredDocument) {}

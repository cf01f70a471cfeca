package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/sessionrag/ai"
)

// DefaultResponse is streamed by MockGenerator when no hook is set.
const DefaultResponse = "This is a mock answer."

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateStreamFunc is called by GenerateStream if set.
	// If nil, DefaultResponse is streamed word by word.
	GenerateStreamFunc func(ctx context.Context, prompt string, onChunk func(string) error) error

	mu         sync.Mutex
	callCount  int
	lastPrompt string
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// GenerateStream records the prompt and streams a canned response.
func (m *MockGenerator) GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) error {
	m.mu.Lock()
	m.callCount++
	m.lastPrompt = prompt
	m.mu.Unlock()

	if m.GenerateStreamFunc != nil {
		return m.GenerateStreamFunc(ctx, prompt, onChunk)
	}

	words := strings.Fields(DefaultResponse)
	for i, word := range words {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i < len(words)-1 {
			word += " "
		}
		if err := onChunk(word); err != nil {
			return err
		}
	}
	return nil
}

// CallCount returns the number of times GenerateStream was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the prompt of the most recent call.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Reset clears the call count, recorded prompt and custom function.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastPrompt = ""
	m.GenerateStreamFunc = nil
}

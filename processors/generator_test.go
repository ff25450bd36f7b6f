package processors

import (
	"context"
	"sync"
)

// fakeGenerator scripts the text-generation service for tests. The callback
// receives the zero-based call number and full call arguments.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []fakeCall
	fn    func(call int, systemPrompt, content string, opts GenerateOptions) (*GenerateResult, error)
}

type fakeCall struct {
	SystemPrompt string
	Content      string
	Opts         GenerateOptions
}

func (g *fakeGenerator) Generate(ctx context.Context, systemPrompt, content string, opts GenerateOptions) (*GenerateResult, error) {
	g.mu.Lock()
	call := len(g.calls)
	g.calls = append(g.calls, fakeCall{SystemPrompt: systemPrompt, Content: content, Opts: opts})
	g.mu.Unlock()
	return g.fn(call, systemPrompt, content, opts)
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

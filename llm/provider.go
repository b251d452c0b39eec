// LLM Provider interface - the abstract interface for LLM providers.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
	"sync"
)

// Provider defines the abstract interface for LLM providers. The agent
// loop requires both the blocking and the streaming call variants.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Send performs a blocking model call and returns the full response.
	Send(ctx context.Context, req MessageRequest) (*MessageResponse, error)

	// Stream performs a streaming model call. The returned channel is
	// closed after the final event; transport failures surface as an
	// error event before close.
	Stream(ctx context.Context, req MessageRequest) (<-chan StreamEvent, error)
}

// Swappable wraps a Provider behind a lock so the active provider can be
// replaced at runtime without restarting agents that hold a reference.
type Swappable struct {
	mu       sync.RWMutex
	provider Provider
}

// NewSwappable creates a swappable provider with an initial backend.
func NewSwappable(provider Provider) *Swappable {
	return &Swappable{provider: provider}
}

// Swap replaces the active provider and returns the previous one.
func (s *Swappable) Swap(provider Provider) Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.provider
	s.provider = provider
	return old
}

// Current returns the active provider.
func (s *Swappable) Current() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

func (s *Swappable) Name() string  { return s.Current().Name() }
func (s *Swappable) Model() string { return s.Current().Model() }

func (s *Swappable) Send(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	return s.Current().Send(ctx, req)
}

func (s *Swappable) Stream(ctx context.Context, req MessageRequest) (<-chan StreamEvent, error) {
	return s.Current().Stream(ctx, req)
}

var _ Provider = (*Swappable)(nil)

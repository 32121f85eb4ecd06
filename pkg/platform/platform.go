// Package platform defines the runner abstraction over the AI answer
// services an audit queries, plus a registry keyed by platform identifier.
package platform

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/model"
)

// Prompt is a single question posed to an AI answer service.
type Prompt struct {
	Text string
	// Search requests web-search augmentation where the vendor supports it.
	Search bool
}

// Answer is the normalized result of running a prompt. Citations carry
// whatever source attribution the vendor returned, already mapped to the
// stored wire form.
type Answer struct {
	Text         string
	Citations    []model.Citation
	Model        string
	InputTokens  int
	OutputTokens int
}

// Runner executes prompts against one AI answer service.
type Runner interface {
	// Platform returns the base platform identifier (one of model.BasePlatforms).
	Platform() string
	// Run executes the prompt and returns the normalized answer.
	Run(ctx context.Context, prompt Prompt) (*Answer, error)
}

// Registry manages the available platform runners.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

// NewRegistry creates an empty runner registry.
func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]Runner),
	}
}

// Register adds a runner to the registry, replacing any runner already
// registered for the same platform.
func (r *Registry) Register(runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[runner.Platform()] = runner
}

// Get returns the runner for a base platform identifier, or nil if not registered.
func (r *Registry) Get(platform string) Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runners[platform]
}

// Resolve returns the runner serving the given platform identifier. It
// accepts both base identifiers and search variants; "chatgpt-search"
// resolves to the chatgpt runner.
func (r *Registry) Resolve(platform string) (Runner, error) {
	runner := r.Get(model.BasePlatform(platform))
	if runner == nil {
		return nil, eris.Errorf("platform: no runner registered for %q", platform)
	}
	return runner, nil
}

// List returns all registered platform identifiers in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

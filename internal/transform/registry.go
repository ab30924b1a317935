package transform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gyaneshwarpardhi/logbridge/internal/config"
)

// Registry maps transform names to their implementations.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu           sync.RWMutex
	transformers map[string]Transformer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{transformers: make(map[string]Transformer)}
}

// NewDefaultRegistry returns a registry holding the built-in transforms.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Newline())
	r.Register(JSONLines())
	return r
}

// Register adds a transformer. Panics on duplicate name to surface misconfiguration early.
func (r *Registry) Register(t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transformers[t.Name()]; exists {
		panic(fmt.Sprintf("transform registry: duplicate name %q", t.Name()))
	}
	r.transformers[t.Name()] = t
}

// Get returns the transformer registered under name.
func (r *Registry) Get(name string) (Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transformers[name]
	if !ok {
		return nil, fmt.Errorf("no transform registered under %q", name)
	}
	return t, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.transformers))
	for k := range r.transformers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve picks the transformer named by conf. The expression transform is
// compiled on demand since its program comes from configuration.
func (r *Registry) Resolve(conf config.TransformConf) (Transformer, error) {
	if conf.Name == ExpressionName {
		return NewExpression(conf.Expression)
	}
	return r.Get(conf.Name)
}

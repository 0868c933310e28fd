package manifest

import "github.com/vitalvas/pathway/route"

// Registry maps the handler names used in a manifest to functions.
type Registry struct {
	loaders      map[string]route.HandlerFunc
	actions      map[string]route.HandlerFunc
	revalidators map[string]route.ShouldRevalidateFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders:      make(map[string]route.HandlerFunc),
		actions:      make(map[string]route.HandlerFunc),
		revalidators: make(map[string]route.ShouldRevalidateFunc),
	}
}

// Loader registers fn as the loader called name. A later registration
// under the same name replaces the earlier one.
func (r *Registry) Loader(name string, fn route.HandlerFunc) *Registry {
	r.loaders[name] = fn
	return r
}

// Action registers fn as the action called name.
func (r *Registry) Action(name string, fn route.HandlerFunc) *Registry {
	r.actions[name] = fn
	return r
}

// ShouldRevalidate registers fn as the revalidation predicate called
// name.
func (r *Registry) ShouldRevalidate(name string, fn route.ShouldRevalidateFunc) *Registry {
	r.revalidators[name] = fn
	return r
}

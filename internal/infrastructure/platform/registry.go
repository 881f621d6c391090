package platform

import (
	"sort"

	"relayforge/internal/ports"
)

// Registry maps platform names to publishers. Resolution is by the
// publisher's own Name.
type Registry struct {
	publishers map[string]ports.Publisher
}

var _ ports.PublisherRegistry = (*Registry)(nil)

// NewRegistry indexes the given publishers.
func NewRegistry(publishers ...ports.Publisher) *Registry {
	index := make(map[string]ports.Publisher, len(publishers))
	for _, p := range publishers {
		index[p.Name()] = p
	}
	return &Registry{publishers: index}
}

// Resolve returns the publisher for a platform name.
func (r *Registry) Resolve(platform string) (ports.Publisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

// Platforms lists the registered platform names, sorted for stable
// operator output.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

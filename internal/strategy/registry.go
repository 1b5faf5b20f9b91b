package strategy

import (
	"fmt"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

// Extractor is a named page extraction strategy (CSS selectors, readability).
type Extractor interface {
	Name() string
	ports.PageExtractor
}

// Registry keeps a mapping from strategy names to their implementations and
// from site names to the strategy each site uses.
type Registry struct {
	extractors map[string]Extractor
	sites      map[string]string
	fallback   string
}

var _ ports.ExtractorResolver = (*Registry)(nil)

// NewRegistry builds an empty registry; sites without an explicit strategy
// use fallback.
func NewRegistry(fallback string) *Registry {
	return &Registry{
		extractors: map[string]Extractor{},
		sites:      map[string]string{},
		fallback:   fallback,
	}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(extractor Extractor) {
	r.extractors[extractor.Name()] = extractor
}

// Assign binds a site to a strategy name.
func (r *Registry) Assign(site, strategy string) {
	r.sites[site] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Extractor, error) {
	if extractor, ok := r.extractors[name]; ok {
		return extractor, nil
	}
	return nil, fmt.Errorf("extractor %s is not registered", name)
}

// ExtractorFor returns the strategy assigned to site.
func (r *Registry) ExtractorFor(site string) (ports.PageExtractor, error) {
	name := r.sites[site]
	if name == "" {
		name = r.fallback
	}
	extractor, err := r.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site, err)
	}
	return extractor, nil
}

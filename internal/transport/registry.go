package transport

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Factory constructs a transport bound to netloc and root.
type Factory func(ctx context.Context, netloc, root string, mode Mode, opts Options) (Transport, error)

type entry struct {
	plugin  Plugin
	factory Factory
}

// Registry maps locator schemes to transport factories. The composing
// program builds one and hands it to whatever needs to open locators.
type Registry struct {
	schemes map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{schemes: make(map[string]entry)}
}

// Register binds every scheme of p to f. A later registration for the same
// scheme replaces the earlier one.
func (r *Registry) Register(p Plugin, f Factory) {
	for _, s := range p.Schemes {
		r.schemes[strings.ToLower(s)] = entry{plugin: p, factory: f}
	}
}

// Plugins returns the registered plugins, one per name, sorted by name.
func (r *Registry) Plugins() []Plugin {
	seen := make(map[string]bool)
	var out []Plugin
	for _, e := range r.schemes {
		if seen[e.plugin.Name] {
			continue
		}
		seen[e.plugin.Name] = true
		out = append(out, e.plugin)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the plugin registered for scheme.
func (r *Registry) Lookup(scheme string) (Plugin, bool) {
	e, ok := r.schemes[strings.ToLower(scheme)]
	return e.plugin, ok
}

// Open parses locator and constructs the transport registered for its scheme.
// It also returns the parsed locator so callers can address paths under Root.
func (r *Registry) Open(ctx context.Context, locator string, mode Mode, opts Options) (Transport, Locator, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return nil, Locator{}, err
	}
	e, ok := r.schemes[loc.Scheme]
	if !ok {
		return nil, loc, fmt.Errorf("%w: no transport for scheme %q", ErrNotFound, loc.Scheme)
	}
	t, err := e.factory(ctx, loc.Netloc, loc.Root, mode, opts)
	if err != nil {
		return nil, loc, fmt.Errorf("%s transport: %w", e.plugin.Name, err)
	}
	return t, loc, nil
}

package companion

// Store exposes companion lookup to the selector and chat screens.
type Store interface {
	List() []Companion
	FindByID(id string) (Companion, bool)
	Resolve(id string) Companion
}

// Registry is a fixed lookup table of companions.
type Registry struct {
	items []Companion
	byID  map[string]int
}

// NewRegistry returns a Registry holding the supplied companions. The first entry
// is the fallback used by Resolve.
func NewRegistry(items []Companion) *Registry {
	r := &Registry{
		items: append([]Companion(nil), items...),
		byID:  make(map[string]int, len(items)),
	}
	for i, item := range r.items {
		r.byID[item.ID] = i
	}
	return r
}

// Default returns the registry of built-in companions.
func Default() *Registry {
	return NewRegistry(Seed())
}

// List returns the companions in display order.
func (r *Registry) List() []Companion {
	return append([]Companion(nil), r.items...)
}

// FindByID looks up a companion by identifier.
func (r *Registry) FindByID(id string) (Companion, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Companion{}, false
	}
	return r.items[i], true
}

// Resolve is FindByID falling back to the first companion.
func (r *Registry) Resolve(id string) Companion {
	if c, ok := r.FindByID(id); ok {
		return c
	}
	if len(r.items) == 0 {
		return Companion{}
	}
	return r.items[0]
}

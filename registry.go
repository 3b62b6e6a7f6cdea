package autoreg

import (
	"reflect"
	"slices"
	"sync"
)

// ServiceRegistry maps services to their registrations in discovery order.
// Explicit registrations are added during setup; registrations produced by
// registration sources are committed once per service afterwards.
//
// ServiceRegistry is safe for concurrent use.
type ServiceRegistry struct {
	mu sync.RWMutex

	// entries stores registrations by service
	entries map[Service][]*Registration

	// explicit holds every added registration in builder order
	explicit []*Registration

	// synthesized tracks services whose entries came from sources
	synthesized map[Service]struct{}
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		entries:     make(map[Service][]*Registration),
		synthesized: make(map[Service]struct{}),
	}
}

// Add appends reg under every service it exposes. Existing entries are kept;
// a second registration for a service never replaces the first.
func (r *ServiceRegistry) Add(reg *Registration) error {
	if reg == nil {
		return ValidationError{Cause: ErrRegistrationNil}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range reg.services {
		r.entries[s] = append(r.entries[s], reg)
	}
	r.explicit = append(r.explicit, reg)

	return nil
}

// Registrations returns the registrations currently known for service.
// The result is a copy and is empty, never nil-with-error, when nothing is known.
func (r *ServiceRegistry) Registrations(service Service) []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.entries[service])
}

// HasRegistrations reports whether service has at least one entry.
func (r *ServiceRegistry) HasRegistrations(service Service) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries[service]) > 0
}

// commit stores synthesized registrations for service unless something is
// already stored, and returns what is stored afterwards. The first commit
// wins so every caller observes the same registration identities.
//
// When the commit wins, the registrations are also stored under the other
// services they expose, for each one that has no entries yet.
func (r *ServiceRegistry) commit(service Service, regs []*Registration) []*Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.entries[service]; len(existing) > 0 {
		return slices.Clone(existing)
	}

	r.entries[service] = slices.Clone(regs)
	r.synthesized[service] = struct{}{}

	extra := make(map[Service][]*Registration)
	var order []Service
	for _, reg := range regs {
		for _, s := range reg.services {
			if s == service || len(r.entries[s]) > 0 {
				continue
			}
			if _, ok := extra[s]; !ok {
				order = append(order, s)
			}
			extra[s] = append(extra[s], reg)
		}
	}
	for _, s := range order {
		r.entries[s] = extra[s]
		r.synthesized[s] = struct{}{}
	}

	return slices.Clone(regs)
}

// IsSynthesized reports whether the entries for service came from a source.
func (r *ServiceRegistry) IsSynthesized(service Service) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.synthesized[service]
	return ok
}

// synthesizedCount returns the number of services whose entries came from sources.
func (r *ServiceRegistry) synthesizedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.synthesized)
}

// Count returns the number of explicit registrations.
func (r *ServiceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.explicit)
}

// Explicit returns the explicit registrations in the order they were added.
func (r *ServiceRegistry) Explicit() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.explicit)
}

// Services returns every service with at least one entry.
func (r *ServiceRegistry) Services() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]Service, 0, len(r.entries))
	for s, regs := range r.entries {
		if len(regs) > 0 {
			services = append(services, s)
		}
	}
	return services
}

// types returns the distinct service types known, for error suggestions.
func (r *ServiceRegistry) types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[reflect.Type]struct{}, len(r.entries))
	types := make([]reflect.Type, 0, len(r.entries))
	for s := range r.entries {
		if _, ok := seen[s.Type]; ok {
			continue
		}
		seen[s.Type] = struct{}{}
		types = append(types, s.Type)
	}
	return types
}

// clearSynthesized drops every committed synthesis result.
func (r *ServiceRegistry) clearSynthesized() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s := range r.synthesized {
		delete(r.entries, s)
	}
	r.synthesized = make(map[Service]struct{})
}

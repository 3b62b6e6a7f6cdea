package autoreg

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Accessor returns the registrations known for a service. Inside a
// registration source it is bound to the running cascade, so asking for a
// service nothing provides yet may synthesize it through the other sources.
type Accessor func(service Service) ([]*Registration, error)

// RegistrationSource synthesizes registrations on demand for services that
// have no registration yet.
//
// Implementations must return a ValidationError for a nil accessor. An empty
// result is not an error; it means the source does not provide service.
type RegistrationSource interface {
	// RegistrationsFor returns the registrations the source provides for
	// service. Sources that depend on other services query them through
	// accessor.
	RegistrationsFor(service Service, accessor Accessor) ([]*Registration, error)

	// IsAdapterForIndividualComponents reports whether every produced
	// registration wraps exactly one registration returned by accessor.
	IsAdapterForIndividualComponents() bool
}

// sourceEntry is a registered source with its ordering flag.
type sourceEntry struct {
	source           RegistrationSource
	preserveDefaults bool
}

// sourceChain consults registration sources for services the registry does
// not know and memoizes the first non-empty answer into the registry.
type sourceChain struct {
	registry *ServiceRegistry
	sources  []RegistrationSource
	logger   *zap.Logger
}

// newSourceChain orders sources: those registered without preserveDefaults
// come first, then those with it, each group in registration order.
func newSourceChain(registry *ServiceRegistry, entries []sourceEntry, logger *zap.Logger) *sourceChain {
	sources := make([]RegistrationSource, 0, len(entries))
	for _, e := range entries {
		if !e.preserveDefaults {
			sources = append(sources, e.source)
		}
	}
	for _, e := range entries {
		if e.preserveDefaults {
			sources = append(sources, e.source)
		}
	}

	return &sourceChain{
		registry: registry,
		sources:  sources,
		logger:   logger,
	}
}

// lookup returns the registrations for service, synthesizing them when the
// registry has none. Every call starts a new cascade.
func (c *sourceChain) lookup(service Service) ([]*Registration, error) {
	if err := service.validate(); err != nil {
		return nil, err
	}

	cs := &cascade{
		chain:      c,
		inProgress: make(map[Service]struct{}),
	}

	return cs.lookup(service)
}

// cascade is the state of one top-level lookup. It is confined to the
// goroutine that started it, so it needs no locking.
type cascade struct {
	chain      *sourceChain
	inProgress map[Service]struct{}
	path       []Service
}

func (cs *cascade) lookup(service Service) ([]*Registration, error) {
	registry := cs.chain.registry

	if regs := registry.Registrations(service); len(regs) > 0 {
		return regs, nil
	}

	if _, busy := cs.inProgress[service]; busy {
		return nil, CircularDependencyError{Service: service, Path: slices.Clone(cs.path)}
	}

	if len(cs.chain.sources) == 0 {
		return nil, nil
	}

	cs.inProgress[service] = struct{}{}
	cs.path = append(cs.path, service)
	defer func() {
		delete(cs.inProgress, service)
		cs.path = cs.path[:len(cs.path)-1]
	}()

	accessor := func(s Service) ([]*Registration, error) {
		if err := s.validate(); err != nil {
			return nil, err
		}

		// A source asking about the service it is synthesizing sees the
		// registry as it is; that is a guard, not a cycle.
		if s == service {
			return registry.Registrations(s), nil
		}

		return cs.lookup(s)
	}

	for _, source := range cs.chain.sources {
		regs, err := source.RegistrationsFor(service, accessor)
		if err != nil {
			return nil, err
		}

		if len(regs) == 0 {
			continue
		}

		if err := checkProduced(source, service, regs); err != nil {
			return nil, err
		}

		committed := registry.commit(service, regs)

		cs.chain.logger.Debug("synthesized registrations",
			zap.Stringer("service", service),
			zap.String("source", fmt.Sprintf("%T", source)),
			zap.Int("registrations", len(committed)),
		)

		return committed, nil
	}

	return nil, nil
}

// checkProduced enforces the source contract on a non-empty result.
func checkProduced(source RegistrationSource, service Service, regs []*Registration) error {
	for _, reg := range regs {
		if reg == nil {
			return RegistrationError{
				ServiceType: service.Type,
				Operation:   "synthesize",
				Cause:       fmt.Errorf("%T returned a nil registration: %w", source, ErrRegistrationNil),
			}
		}

		if source.IsAdapterForIndividualComponents() && reg.Target() == nil {
			return RegistrationError{
				ServiceType: service.Type,
				Operation:   "synthesize",
				Cause:       fmt.Errorf("adapter %T returned a registration without a target", source),
			}
		}

		if !reg.Provides(service) {
			return RegistrationError{
				ServiceType: service.Type,
				Operation:   "synthesize",
				Cause:       fmt.Errorf("%T returned %v: %w", source, reg, ErrNotProvided),
			}
		}
	}

	return nil
}

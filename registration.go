package autoreg

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Activator produces instances for a registration.
type Activator interface {
	// LimitType is the most specific type the activator can produce.
	// Every service a registration exposes must be assignable from it.
	LimitType() reflect.Type

	// Activate creates an instance. Dependencies are resolved through ctx.
	Activate(ctx ActivationContext) (any, error)
}

// ActivationContext is handed to activators while a resolve is in progress.
// It resolves dependencies against the same container and tracks the
// activation stack so cycles are reported instead of recursing forever.
type ActivationContext interface {
	// Resolve resolves the default registration for service.
	Resolve(service Service) (any, error)

	// ResolveAll resolves every registration for service in discovery order.
	ResolveAll(service Service) ([]any, error)

	// IsRegistered reports whether anything, explicit or synthesized, provides service.
	IsRegistered(service Service) (bool, error)

	// ResolveRegistration activates a specific registration honoring its lifetime.
	ResolveRegistration(reg *Registration) (any, error)

	// Detach returns a context with an empty activation stack. Adapters use
	// it for values produced after the current resolve returns.
	Detach() ActivationContext
}

// Registration describes how to produce instances for one or more services.
// It is immutable once built; use NewRegistration to create one.
type Registration struct {
	id        uuid.UUID
	services  []Service
	activator Activator
	lifetime  Lifetime
	target    *Registration
	metadata  map[string]any
}

// ID returns the registration's identity. Synthesized registrations keep
// the same ID for the lifetime of the container.
func (r *Registration) ID() uuid.UUID {
	return r.id
}

// Services returns the services this registration satisfies.
func (r *Registration) Services() []Service {
	return slices.Clone(r.services)
}

// Activator returns the activation strategy.
func (r *Registration) Activator() Activator {
	return r.activator
}

// Lifetime returns the instance sharing policy.
func (r *Registration) Lifetime() Lifetime {
	return r.lifetime
}

// Target returns the inner registration an adapter registration wraps,
// or nil for primary components.
func (r *Registration) Target() *Registration {
	return r.target
}

// Metadata returns a copy of the registration's metadata.
func (r *Registration) Metadata() map[string]any {
	return maps.Clone(r.metadata)
}

// Provides reports whether the registration exposes service.
func (r *Registration) Provides(service Service) bool {
	return slices.Contains(r.services, service)
}

func (r *Registration) String() string {
	names := make([]string, len(r.services))
	for i, s := range r.services {
		names[i] = s.String()
	}

	return fmt.Sprintf("Registration(%s: %s, %s, %s)",
		r.id, strings.Join(names, ", "), formatType(r.activator.LimitType()), r.lifetime)
}

// RegistrationBuilder assembles a Registration. It is the value handed to
// registration configuration hooks, which may change lifetime, services and
// metadata but never the registration's identity.
type RegistrationBuilder struct {
	activator Activator
	services  []Service
	lifetime  Lifetime
	target    *Registration
	metadata  map[string]any
}

// NewRegistration starts a registration for activator. The registration has
// Transient lifetime and no services until configured.
func NewRegistration(activator Activator) *RegistrationBuilder {
	return &RegistrationBuilder{
		activator: activator,
		lifetime:  Transient,
	}
}

// As adds services the registration satisfies.
func (b *RegistrationBuilder) As(services ...Service) *RegistrationBuilder {
	for _, s := range services {
		if !slices.Contains(b.services, s) {
			b.services = append(b.services, s)
		}
	}
	return b
}

// AsSelf exposes the activator's limit type as an unkeyed service.
func (b *RegistrationBuilder) AsSelf() *RegistrationBuilder {
	if b.activator == nil {
		return b
	}
	return b.As(TypedService(b.activator.LimitType()))
}

// ClearServices removes every service added so far.
func (b *RegistrationBuilder) ClearServices() *RegistrationBuilder {
	b.services = nil
	return b
}

// WithLifetime sets the lifetime.
func (b *RegistrationBuilder) WithLifetime(lifetime Lifetime) *RegistrationBuilder {
	b.lifetime = lifetime
	return b
}

// WithMetadata attaches a metadata value.
func (b *RegistrationBuilder) WithMetadata(key string, value any) *RegistrationBuilder {
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
	b.metadata[key] = value
	return b
}

// Targeting marks the registration as an adapter over target.
func (b *RegistrationBuilder) Targeting(target *Registration) *RegistrationBuilder {
	b.target = target
	return b
}

// Services returns the services configured so far.
func (b *RegistrationBuilder) Services() []Service {
	return slices.Clone(b.services)
}

// Lifetime returns the configured lifetime.
func (b *RegistrationBuilder) Lifetime() Lifetime {
	return b.lifetime
}

// LimitType returns the activator's limit type, or nil without an activator.
func (b *RegistrationBuilder) LimitType() reflect.Type {
	if b.activator == nil {
		return nil
	}
	return b.activator.LimitType()
}

// Build validates the configuration and returns an immutable Registration
// with a fresh ID.
func (b *RegistrationBuilder) Build() (*Registration, error) {
	if b.activator == nil {
		return nil, ValidationError{Cause: ErrActivatorNil}
	}

	limit := b.activator.LimitType()

	if len(b.services) == 0 {
		return nil, RegistrationError{ServiceType: limit, Operation: "build registration for", Cause: ErrNoServices}
	}

	if !b.lifetime.IsValid() {
		return nil, RegistrationError{ServiceType: limit, Operation: "build registration for", Cause: LifetimeError{Value: b.lifetime}}
	}

	for _, s := range b.services {
		if err := s.validate(); err != nil {
			return nil, err
		}

		if limit != nil && !limit.AssignableTo(s.Type) {
			return nil, TypeMismatchError{
				Expected: s.Type,
				Actual:   limit,
				Context:  "registration does not satisfy service",
			}
		}
	}

	return &Registration{
		id:        uuid.New(),
		services:  slices.Clone(b.services),
		activator: b.activator,
		lifetime:  b.lifetime,
		target:    b.target,
		metadata:  maps.Clone(b.metadata),
	}, nil
}

package autoreg

import (
	"fmt"
	"reflect"
)

// AnyConcreteTypeSource synthesizes a registration for any concrete struct
// pointer type nothing else provides. Instances are built by the reflection
// activator, which injects tagged fields.
//
// A type is eligible when, in order:
//   - the service is unkeyed and is not string
//   - the type is a pointer to a struct
//   - the type is not a func
//   - the type is not abstract
//   - the type is not an unbound generic definition
//   - the predicate accepts it
//   - the accessor reports no registration for it
//   - a generic type's definition is not excluded
type AnyConcreteTypeSource struct {
	predicate func(reflect.Type) bool
	configure func(*RegistrationBuilder)
	excluded  map[GenericDefinition]struct{}
	lifetime  Lifetime
}

var _ RegistrationSource = (*AnyConcreteTypeSource)(nil)

// ConcreteTypeOption configures an AnyConcreteTypeSource.
type ConcreteTypeOption interface {
	applyConcreteTypeOption(*concreteTypeOptions)
}

type concreteTypeOptions struct {
	predicate    func(reflect.Type) bool
	predicateSet bool
	configure    func(*RegistrationBuilder)
	excluded     []GenericDefinition
	lifetime     Lifetime
}

func (o *concreteTypeOptions) Validate() error {
	if o.predicateSet && o.predicate == nil {
		return ValidationError{Cause: ErrPredicateNil}
	}

	if !o.lifetime.IsValid() {
		return ValidationError{Cause: LifetimeError{Value: o.lifetime}}
	}

	for _, def := range o.excluded {
		if def.IsZero() {
			return ValidationError{Cause: fmt.Errorf("invalid autoreg.WithExcludedGenerics: %q is not a generic definition", def.String())}
		}
	}

	return nil
}

type concreteTypeOptionFunc func(*concreteTypeOptions)

func (f concreteTypeOptionFunc) applyConcreteTypeOption(o *concreteTypeOptions) {
	f(o)
}

// Where restricts synthesis to types the predicate accepts. The predicate
// receives the service type, for example *FooWidget. Passing nil makes
// NewAnyConcreteTypeSource fail.
func Where(predicate func(reflect.Type) bool) ConcreteTypeOption {
	return concreteTypeOptionFunc(func(o *concreteTypeOptions) {
		o.predicate = predicate
		o.predicateSet = true
	})
}

// WithRegistrationConfiguration installs a hook called once for every
// synthesized registration before it is built. The hook may change the
// lifetime and metadata and may add services; services it adds are visible
// unless they already have registrations. Removing the requested service makes
// the lookup fail with ErrNotProvided.
func WithRegistrationConfiguration(configure func(*RegistrationBuilder)) ConcreteTypeOption {
	return concreteTypeOptionFunc(func(o *concreteTypeOptions) {
		o.configure = configure
	})
}

// WithExcludedGenerics adds generic definitions that are never synthesized,
// on top of DefaultExcludedGenerics.
func WithExcludedGenerics(defs ...GenericDefinition) ConcreteTypeOption {
	return concreteTypeOptionFunc(func(o *concreteTypeOptions) {
		o.excluded = append(o.excluded, defs...)
	})
}

// WithLifetime sets the lifetime of synthesized registrations. The default is Transient.
func WithLifetime(lifetime Lifetime) ConcreteTypeOption {
	return concreteTypeOptionFunc(func(o *concreteTypeOptions) {
		o.lifetime = lifetime
	})
}

// NewAnyConcreteTypeSource creates the fallback source. Without Where every
// eligible type is accepted.
//
// Example:
//
//	source, err := autoreg.NewAnyConcreteTypeSource(
//	    autoreg.Where(func(t reflect.Type) bool {
//	        return strings.HasPrefix(t.Elem().Name(), "Foo")
//	    }),
//	)
func NewAnyConcreteTypeSource(opts ...ConcreteTypeOption) (*AnyConcreteTypeSource, error) {
	options := &concreteTypeOptions{lifetime: Transient}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyConcreteTypeOption(options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	predicate := options.predicate
	if predicate == nil {
		predicate = func(reflect.Type) bool { return true }
	}

	excluded := make(map[GenericDefinition]struct{})
	for _, def := range DefaultExcludedGenerics() {
		excluded[def] = struct{}{}
	}
	for _, def := range options.excluded {
		excluded[def] = struct{}{}
	}

	return &AnyConcreteTypeSource{
		predicate: predicate,
		configure: options.configure,
		excluded:  excluded,
		lifetime:  options.lifetime,
	}, nil
}

// RegistrationsFor implements RegistrationSource.
func (s *AnyConcreteTypeSource) RegistrationsFor(service Service, accessor Accessor) ([]*Registration, error) {
	if accessor == nil {
		return nil, ValidationError{ServiceType: service.Type, Cause: ErrAccessorNil}
	}

	if err := service.validate(); err != nil {
		return nil, err
	}

	ok, err := s.eligible(service, accessor)
	if err != nil || !ok {
		return nil, err
	}

	activator, err := newReflectionActivator(service.Type)
	if err != nil {
		return nil, err
	}

	builder := NewRegistration(activator).
		As(service).
		WithLifetime(s.lifetime)

	if s.configure != nil {
		s.configure(builder)
	}

	reg, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return []*Registration{reg}, nil
}

// eligible evaluates the eligibility chain, stopping at the first failure.
func (s *AnyConcreteTypeSource) eligible(service Service, accessor Accessor) (bool, error) {
	d := DescribeType(service.Type)

	switch {
	case service.IsKeyed() || d.IsString:
		return false, nil
	case !d.IsClass:
		return false, nil
	case d.IsDelegateLike:
		return false, nil
	case d.IsAbstract:
		return false, nil
	case d.IsGenericDefinition:
		return false, nil
	case !s.predicate(service.Type):
		return false, nil
	}

	existing, err := accessor(service)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	if d.IsClosedGeneric {
		if _, excluded := s.excluded[d.GenericDefinition]; excluded {
			return false, nil
		}
	}

	return true, nil
}

// IsAdapterForIndividualComponents implements RegistrationSource. Synthesized
// registrations are primary components.
func (s *AnyConcreteTypeSource) IsAdapterForIndividualComponents() bool {
	return false
}

// IsExcluded reports whether def is never synthesized by this source.
func (s *AnyConcreteTypeSource) IsExcluded(def GenericDefinition) bool {
	_, ok := s.excluded[def]
	return ok
}

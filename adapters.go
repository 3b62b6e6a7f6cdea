package autoreg

import (
	"context"
	"fmt"
	"reflect"

	"github.com/junioryono/autoreg/internal/lifetime"
)

var (
	errorType       = reflect.TypeFor[error]()
	lazyDefinition  = GenericDefinitionOf[Lazy[Unbound]]()
	ownedDefinition = GenericDefinitionOf[Owned[Unbound]]()
)

// FuncSource provides func() T and func() (T, error) for every registration
// of T. Each call of the function resolves T again, honoring T's lifetime.
// A func() T that fails to resolve panics with the resolution error.
type FuncSource struct{}

// LazySource provides *Lazy[T] for every registration of T.
type LazySource struct{}

// OwnedSource provides *Owned[T] for every registration of T.
type OwnedSource struct{}

var (
	_ RegistrationSource = (*FuncSource)(nil)
	_ RegistrationSource = (*LazySource)(nil)
	_ RegistrationSource = (*OwnedSource)(nil)
)

// NewFuncSource creates a FuncSource.
func NewFuncSource() *FuncSource { return &FuncSource{} }

// NewLazySource creates a LazySource.
func NewLazySource() *LazySource { return &LazySource{} }

// NewOwnedSource creates an OwnedSource.
func NewOwnedSource() *OwnedSource { return &OwnedSource{} }

// RegistrationsFor implements RegistrationSource.
func (s *FuncSource) RegistrationsFor(service Service, accessor Accessor) ([]*Registration, error) {
	if err := checkSourceArgs(service, accessor); err != nil {
		return nil, err
	}

	t := service.Type
	if t.Kind() != reflect.Func || t.NumIn() != 0 || t.IsVariadic() {
		return nil, nil
	}

	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return nil, nil
		}
	default:
		return nil, nil
	}

	elem := t.Out(0)
	if elem == errorType {
		return nil, nil
	}

	return adaptEach(service, elem, accessor, func(inner *Registration) ActivateFunc {
		return func(ctx ActivationContext) (any, error) {
			detached := ctx.Detach()
			withError := t.NumOut() == 2

			fn := reflect.MakeFunc(t, func([]reflect.Value) []reflect.Value {
				out, err := resolveValue(detached, inner, elem)
				if !withError {
					if err != nil {
						panic(err)
					}
					return []reflect.Value{out}
				}

				errValue := reflect.Zero(errorType)
				if err != nil {
					errValue = reflect.ValueOf(&err).Elem()
				}
				return []reflect.Value{out, errValue}
			})

			return fn.Interface(), nil
		}
	})
}

// IsAdapterForIndividualComponents implements RegistrationSource.
func (s *FuncSource) IsAdapterForIndividualComponents() bool { return true }

// RegistrationsFor implements RegistrationSource.
func (s *LazySource) RegistrationsFor(service Service, accessor Accessor) ([]*Registration, error) {
	if err := checkSourceArgs(service, accessor); err != nil {
		return nil, err
	}

	sample, ok := newWrapper(service.Type, lazyDefinition).(lazyBinder)
	if !ok {
		return nil, nil
	}

	return adaptEach(service, sample.lazyElem(), accessor, func(inner *Registration) ActivateFunc {
		return func(ctx ActivationContext) (any, error) {
			detached := ctx.Detach()

			lazy := newWrapper(service.Type, lazyDefinition).(lazyBinder)
			lazy.bindLazy(func() (any, error) {
				return detached.ResolveRegistration(inner)
			})

			return lazy, nil
		}
	})
}

// IsAdapterForIndividualComponents implements RegistrationSource.
func (s *LazySource) IsAdapterForIndividualComponents() bool { return true }

// RegistrationsFor implements RegistrationSource.
func (s *OwnedSource) RegistrationsFor(service Service, accessor Accessor) ([]*Registration, error) {
	if err := checkSourceArgs(service, accessor); err != nil {
		return nil, err
	}

	sample, ok := newWrapper(service.Type, ownedDefinition).(ownedBinder)
	if !ok {
		return nil, nil
	}

	return adaptEach(service, sample.ownedElem(), accessor, func(inner *Registration) ActivateFunc {
		return func(ctx ActivationContext) (any, error) {
			value, err := ctx.ResolveRegistration(inner)
			if err != nil {
				return nil, err
			}

			var dispose func() error
			if inner.Lifetime() == Transient {
				dispose = func() error {
					return lifetime.DisposeValue(context.Background(), value)
				}
			}

			owned := newWrapper(service.Type, ownedDefinition).(ownedBinder)
			if err := owned.bindOwned(value, dispose); err != nil {
				return nil, err
			}

			return owned, nil
		}
	})
}

// IsAdapterForIndividualComponents implements RegistrationSource.
func (s *OwnedSource) IsAdapterForIndividualComponents() bool { return true }

// checkSourceArgs validates the arguments every source receives.
func checkSourceArgs(service Service, accessor Accessor) error {
	if accessor == nil {
		return ValidationError{ServiceType: service.Type, Cause: ErrAccessorNil}
	}
	return service.validate()
}

// newWrapper allocates the wrapper struct t points to when t is a pointer to
// an instantiation of def. It returns nil otherwise.
func newWrapper(t reflect.Type, def GenericDefinition) any {
	d := DescribeType(t)
	if !d.IsClass || !d.IsClosedGeneric || d.GenericDefinition != def {
		return nil
	}
	return reflect.New(t.Elem()).Interface()
}

// adaptEach queries the inner service and emits one registration of service
// per inner registration, each targeting its inner registration.
func adaptEach(
	service Service,
	elem reflect.Type,
	accessor Accessor,
	activate func(inner *Registration) ActivateFunc,
) ([]*Registration, error) {
	inner, err := accessor(service.WithType(elem))
	if err != nil {
		return nil, err
	}

	regs := make([]*Registration, 0, len(inner))
	for _, innerReg := range inner {
		activator, err := NewDelegateActivator(service.Type, activate(innerReg))
		if err != nil {
			return nil, err
		}

		reg, err := NewRegistration(activator).
			As(service).
			Targeting(innerReg).
			Build()
		if err != nil {
			return nil, err
		}

		regs = append(regs, reg)
	}

	return regs, nil
}

// resolveValue activates reg and converts the instance to a value of exactly
// type t, as reflect.MakeFunc and reflect.Append require.
func resolveValue(ctx ActivationContext, reg *Registration, t reflect.Type) (reflect.Value, error) {
	instance, err := ctx.ResolveRegistration(reg)
	if err != nil {
		return reflect.Zero(t), err
	}
	return valueOf(instance, t)
}

func valueOf(instance any, t reflect.Type) (reflect.Value, error) {
	if instance == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(instance)
	if rv.Type() == t {
		return rv, nil
	}

	if !rv.Type().AssignableTo(t) {
		return reflect.Zero(t), TypeMismatchError{
			Expected: t,
			Actual:   rv.Type(),
			Context:  fmt.Sprintf("adapting %s", formatType(t)),
		}
	}

	out := reflect.New(t).Elem()
	out.Set(rv)
	return out, nil
}

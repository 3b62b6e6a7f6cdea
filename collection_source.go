package autoreg

import (
	"reflect"
)

// CollectionSource provides []T as every registration of T, in discovery
// order. A slice service always resolves, to an empty slice when nothing
// provides T.
//
// Only slices of pointers, interfaces, funcs and structs are provided, so
// []byte and other slices of basic values are left alone.
type CollectionSource struct{}

var _ RegistrationSource = (*CollectionSource)(nil)

// NewCollectionSource creates a CollectionSource.
func NewCollectionSource() *CollectionSource { return &CollectionSource{} }

// RegistrationsFor implements RegistrationSource.
func (s *CollectionSource) RegistrationsFor(service Service, accessor Accessor) ([]*Registration, error) {
	if err := checkSourceArgs(service, accessor); err != nil {
		return nil, err
	}

	t := service.Type
	if t.Kind() != reflect.Slice {
		return nil, nil
	}

	elem := t.Elem()
	switch elem.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Struct:
	default:
		return nil, nil
	}

	elements, err := accessor(service.WithType(elem))
	if err != nil {
		return nil, err
	}

	activator, err := NewDelegateActivator(t, func(ctx ActivationContext) (any, error) {
		slice := reflect.MakeSlice(t, 0, len(elements))
		for _, reg := range elements {
			v, err := resolveValue(ctx, reg, elem)
			if err != nil {
				return nil, err
			}
			slice = reflect.Append(slice, v)
		}
		return slice.Interface(), nil
	})
	if err != nil {
		return nil, err
	}

	reg, err := NewRegistration(activator).
		As(service).
		WithMetadata("elements", len(elements)).
		Build()
	if err != nil {
		return nil, err
	}

	return []*Registration{reg}, nil
}

// IsAdapterForIndividualComponents implements RegistrationSource. A
// collection aggregates every element registration.
func (s *CollectionSource) IsAdapterForIndividualComponents() bool { return false }

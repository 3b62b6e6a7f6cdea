package autoreg

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"
)

var digInType = reflect.TypeFor[dig.In]()

// DigSource provides services from an existing go.uber.org/dig container.
// Unkeyed services map to plain dig types; string keys map to dig names.
// dig shares every value it constructs, so registrations are Singleton.
//
// A dig constructor that yields the zero value is treated as providing nothing.
//
// Example:
//
//	dc := dig.New()
//	_ = dc.Provide(NewLegacyMailer)
//
//	source, _ := autoreg.NewDigSource(dc)
//	_ = builder.RegisterSource(source, true)
type DigSource struct {
	container *dig.Container
}

var _ RegistrationSource = (*DigSource)(nil)

// NewDigSource bridges c into a registration source.
func NewDigSource(c *dig.Container) (*DigSource, error) {
	if c == nil {
		return nil, ValidationError{Cause: ErrContainerNil}
	}
	return &DigSource{container: c}, nil
}

// RegistrationsFor implements RegistrationSource.
func (s *DigSource) RegistrationsFor(service Service, accessor Accessor) ([]*Registration, error) {
	if err := checkSourceArgs(service, accessor); err != nil {
		return nil, err
	}

	name, ok := digName(service)
	if !ok || dig.IsIn(service.Type) || dig.IsOut(service.Type) {
		return nil, nil
	}

	value, err := s.extract(service.Type, name)
	if err != nil {
		return nil, RegistrationError{ServiceType: service.Type, Operation: "query dig container for", Cause: err}
	}

	if value == nil {
		return nil, nil
	}

	activator, err := NewDelegateActivator(service.Type, func(ActivationContext) (any, error) {
		v, err := s.extract(service.Type, name)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, ResolutionError{Service: service, Cause: ErrServiceNotFound}
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	reg, err := NewRegistration(activator).
		As(service).
		WithLifetime(Singleton).
		WithMetadata("source", "dig").
		Build()
	if err != nil {
		return nil, err
	}

	return []*Registration{reg}, nil
}

// IsAdapterForIndividualComponents implements RegistrationSource.
func (s *DigSource) IsAdapterForIndividualComponents() bool { return false }

// extract invokes the dig container with an optional parameter object for t
// and returns the value, or nil when dig has nothing for it.
func (s *DigSource) extract(t reflect.Type, name string) (any, error) {
	tag := `optional:"true"`
	if name != "" {
		tag += fmt.Sprintf(` name:%q`, name)
	}

	paramType := reflect.StructOf([]reflect.StructField{
		{Name: "In", Type: digInType, Anonymous: true},
		{Name: "Value", Type: t, Tag: reflect.StructTag(tag)},
	})

	var found any
	fn := reflect.MakeFunc(
		reflect.FuncOf([]reflect.Type{paramType}, nil, false),
		func(args []reflect.Value) []reflect.Value {
			if v := args[0].Field(1); !v.IsZero() {
				found = v.Interface()
			}
			return nil
		},
	)

	if err := s.container.Invoke(fn.Interface()); err != nil {
		return nil, err
	}

	return found, nil
}

// digName maps a service key to a dig name. Only string keys have one.
func digName(service Service) (string, bool) {
	if !service.IsKeyed() {
		return "", true
	}

	name, ok := service.Key.(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

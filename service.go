package autoreg

import (
	"fmt"
	"reflect"
)

// Service identifies what a consumer resolves: a type plus an optional key.
// Two services are equal when both the type and the key are equal, so Service
// can be used directly as a map key.
type Service struct {
	// Type is the requested service type.
	Type reflect.Type

	// Key is optional - nil for plain typed services.
	// When set it must be comparable.
	Key any
}

// TypedService returns the unkeyed service for t.
func TypedService(t reflect.Type) Service {
	return Service{Type: t}
}

// KeyedService returns the service for t qualified by key.
func KeyedService(t reflect.Type, key any) Service {
	return Service{Type: t, Key: key}
}

// ServiceOf returns the unkeyed service for T.
//
// Example:
//
//	ok, err := container.IsRegistered(autoreg.ServiceOf[*UserService]())
func ServiceOf[T any]() Service {
	return Service{Type: reflect.TypeFor[T]()}
}

// KeyedServiceOf returns the service for T qualified by key.
func KeyedServiceOf[T any](key any) Service {
	return Service{Type: reflect.TypeFor[T](), Key: key}
}

// IsKeyed reports whether the service carries a key.
func (s Service) IsKeyed() bool {
	return s.Key != nil
}

// WithType returns a service with the same key and a different type.
// Adapter sources use it to map a wrapper service to its inner service.
func (s Service) WithType(t reflect.Type) Service {
	return Service{Type: t, Key: s.Key}
}

func (s Service) String() string {
	if s.Key != nil {
		return fmt.Sprintf("%s[key=%v]", formatType(s.Type), s.Key)
	}
	return formatType(s.Type)
}

// validate rejects services that cannot be looked up.
func (s Service) validate() error {
	if s.Type == nil {
		return ValidationError{Cause: ErrServiceTypeNil}
	}

	if s.Key != nil && !reflect.TypeOf(s.Key).Comparable() {
		return ValidationError{
			ServiceType: s.Type,
			Cause:       fmt.Errorf("%w: key of type %T", ErrKeyNotComparable, s.Key),
		}
	}

	return nil
}

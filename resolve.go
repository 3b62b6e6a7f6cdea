package autoreg

// Resolve resolves the default registration of T.
//
// Example:
//
//	service, err := autoreg.Resolve[*UserService](container)
func Resolve[T any](c *Container) (T, error) {
	return resolveAs[T](c, ServiceOf[T](), "resolve")
}

// ResolveKeyed resolves the default registration of T under key.
func ResolveKeyed[T any](c *Container, key any) (T, error) {
	return resolveAs[T](c, KeyedServiceOf[T](key), "resolve keyed")
}

// ResolveAll resolves every registration of T in discovery order.
func ResolveAll[T any](c *Container) ([]T, error) {
	if c == nil {
		return nil, ErrContainerNil
	}

	var result []T
	_, err := c.resolveAllWith(ServiceOf[T](), func(instances []any) error {
		result = make([]T, 0, len(instances))
		for _, instance := range instances {
			v, err := convertTo[T](instance, "resolve all")
			if err != nil {
				return err
			}
			result = append(result, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// resolveAs resolves service and converts the instance to T inside the same
// reported operation, so a mismatch is reported as a failure.
func resolveAs[T any](c *Container, service Service, context string) (T, error) {
	var result T
	if c == nil {
		return result, ErrContainerNil
	}

	_, err := c.resolveWith(service, func(instance any) error {
		v, err := convertTo[T](instance, context)
		result = v
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// IsRegisteredType reports whether T can be resolved from c.
func IsRegisteredType[T any](c *Container) (bool, error) {
	if c == nil {
		return false, ErrContainerNil
	}
	return c.IsRegistered(ServiceOf[T]())
}

package autoreg

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/junioryono/autoreg/internal/lifetime"
	"go.uber.org/zap"
)

// Container resolves services from explicit registrations and, for services
// nothing registered, from its registration sources. Each service is
// synthesized at most once; the result is reused for the container's lifetime.
//
// Container is safe for concurrent use. Create one with Builder.Build.
type Container struct {
	id         uuid.UUID
	registry   *ServiceRegistry
	chain      *sourceChain
	singletons *lifetime.Manager
	logger     *zap.Logger
	options    *containerOptions
	disposed   int32
}

// ContainerStatistics describes a container's registrations and singletons.
type ContainerStatistics struct {
	ExplicitRegistrations int
	SynthesizedServices   int
	SingletonsCreated     int64
	ActiveSingletons      int64
	DisposedSingletons    int64
	SingletonCacheHits    int64
}

// GetStatistics returns container statistics.
func (c *Container) GetStatistics() ContainerStatistics {
	lt := c.singletons.GetStatistics()

	return ContainerStatistics{
		ExplicitRegistrations: c.registry.Count(),
		SynthesizedServices:   c.registry.synthesizedCount(),
		SingletonsCreated:     lt.TotalInstances,
		ActiveSingletons:      lt.ActiveInstances,
		DisposedSingletons:    lt.DisposedInstances,
		SingletonCacheHits:    lt.TotalAccessCount,
	}
}

// ID returns the container's unique identifier.
func (c *Container) ID() uuid.UUID {
	return c.id
}

// IsRegistered reports whether service can be resolved, either from an
// explicit registration or from what the registration sources provide.
// Asking may synthesize and commit registrations for service.
func (c *Container) IsRegistered(service Service) (bool, error) {
	regs, err := c.lookup(service)
	if err != nil {
		return false, err
	}
	return len(regs) > 0, nil
}

// Registrations returns every registration for service in discovery order,
// synthesizing them if needed. The result is empty when nothing provides it.
func (c *Container) Registrations(service Service) ([]*Registration, error) {
	return c.lookup(service)
}

// Resolve returns an instance of the default registration for service, the
// last one in discovery order.
func (c *Container) Resolve(service Service) (any, error) {
	return c.resolveWith(service, nil)
}

// ResolveAll returns one instance per registration for service, in
// discovery order. It returns an empty slice when nothing provides service.
func (c *Container) ResolveAll(service Service) ([]any, error) {
	return c.resolveAllWith(service, nil)
}

// resolveWith runs one reported resolve operation. accept, when set, checks
// the instance before the outcome is reported.
func (c *Container) resolveWith(service Service, accept func(any) error) (any, error) {
	rc, op := c.newOperation(service)

	instance, err := rc.resolve(service)
	if err == nil && accept != nil {
		err = accept(instance)
	}

	c.complete(rc, op, err)
	return instance, err
}

func (c *Container) resolveAllWith(service Service, accept func([]any) error) ([]any, error) {
	rc, op := c.newOperation(service)

	instances, err := rc.resolveAll(service)
	if err == nil && accept != nil {
		err = accept(instances)
	}

	c.complete(rc, op, err)
	return instances, err
}

// Close disposes singleton instances in reverse creation order and drops
// every synthesized registration. Further calls fail with ErrContainerDisposed.
func (c *Container) Close() error {
	if !atomic.CompareAndSwapInt32(&c.disposed, 0, 1) {
		return nil
	}

	err := c.singletons.Dispose(context.Background())
	c.registry.clearSynthesized()

	if err != nil {
		var errs []error
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			errs = joined.Unwrap()
		} else {
			errs = []error{err}
		}

		c.logger.Error("container disposal failed",
			zap.Stringer("container", c.id),
			zap.Int("errors", len(errs)),
			zap.Error(err),
		)

		return DisposalError{Context: "container", Errors: errs}
	}

	c.logger.Debug("container closed", zap.Stringer("container", c.id))
	return nil
}

// IsDisposed reports whether Close has been called.
func (c *Container) IsDisposed() bool {
	return atomic.LoadInt32(&c.disposed) != 0
}

func (c *Container) lookup(service Service) ([]*Registration, error) {
	if c.IsDisposed() {
		return nil, ErrContainerDisposed
	}
	return c.chain.lookup(service)
}

func (c *Container) newOperation(service Service) (*resolveContext, *ResolveOperation) {
	op := &ResolveOperation{
		ID:      uuid.New(),
		Service: service,
		Started: time.Now(),
	}

	rc := &resolveContext{container: c}
	if len(c.options.diagnostics) > 0 {
		rc.trace = &tracer{}
	}

	return rc, op
}

// complete logs the outcome and emits the diagnostic event once.
func (c *Container) complete(rc *resolveContext, op *ResolveOperation, err error) {
	duration := time.Since(op.Started)

	if err != nil {
		c.logger.Warn("resolve failed",
			zap.Stringer("operation", op.ID),
			zap.Stringer("service", op.Service),
			zap.Error(err),
		)
	}

	if len(c.options.diagnostics) == 0 {
		return
	}

	event := ResolveEvent{
		Operation:    op,
		Succeeded:    err == nil,
		TraceContent: rc.trace.String(),
		Err:          err,
		Duration:     duration,
	}

	for _, handler := range c.options.diagnostics {
		handler(event)
	}
}

// resolveContext is the ActivationContext of one resolve. It is confined to
// one goroutine.
type resolveContext struct {
	container *Container
	stack     []*Registration
	trace     *tracer
}

var _ ActivationContext = (*resolveContext)(nil)

func (rc *resolveContext) resolve(service Service) (any, error) {
	regs, err := rc.container.lookup(service)
	if err != nil {
		return nil, wrapResolution(service, err)
	}

	if len(regs) == 0 {
		return nil, ResolutionError{
			Service:   service,
			Cause:     ErrServiceNotFound,
			Available: rc.container.registry.types(),
		}
	}

	instance, err := rc.ResolveRegistration(regs[len(regs)-1])
	if err != nil {
		return nil, wrapResolution(service, err)
	}

	return instance, nil
}

func (rc *resolveContext) resolveAll(service Service) ([]any, error) {
	regs, err := rc.container.lookup(service)
	if err != nil {
		return nil, wrapResolution(service, err)
	}

	instances := make([]any, 0, len(regs))
	for _, reg := range regs {
		instance, err := rc.ResolveRegistration(reg)
		if err != nil {
			return nil, wrapResolution(service, err)
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// Resolve implements ActivationContext.
func (rc *resolveContext) Resolve(service Service) (any, error) {
	return rc.resolve(service)
}

// ResolveAll implements ActivationContext.
func (rc *resolveContext) ResolveAll(service Service) ([]any, error) {
	return rc.resolveAll(service)
}

// IsRegistered implements ActivationContext.
func (rc *resolveContext) IsRegistered(service Service) (bool, error) {
	return rc.container.IsRegistered(service)
}

// Detach implements ActivationContext.
func (rc *resolveContext) Detach() ActivationContext {
	return &resolveContext{container: rc.container}
}

// ResolveRegistration implements ActivationContext.
func (rc *resolveContext) ResolveRegistration(reg *Registration) (any, error) {
	if reg == nil {
		return nil, ValidationError{Cause: ErrRegistrationNil}
	}

	c := rc.container
	if c.IsDisposed() {
		return nil, ErrContainerDisposed
	}

	depth := len(rc.stack)

	if reg.lifetime == Singleton {
		if instance, ok := c.singletons.Load(reg.id); ok {
			rc.trace.cached(depth, reg)
			return instance, nil
		}
	}

	if slices.Contains(rc.stack, reg) {
		path := make([]Service, 0, len(rc.stack))
		for _, r := range rc.stack {
			path = append(path, primaryService(r))
		}
		return nil, CircularDependencyError{Service: primaryService(reg), Path: path}
	}

	if depth >= c.options.maxResolutionDepth {
		return nil, ResolutionError{Service: primaryService(reg), Cause: ErrMaxDepthExceeded}
	}

	rc.trace.enter(depth, reg)

	rc.stack = append(rc.stack, reg)
	instance, err := reg.activator.Activate(rc)
	rc.stack = rc.stack[:len(rc.stack)-1]

	if err != nil {
		rc.trace.fail(depth, reg, err)
		return nil, err
	}

	if reg.lifetime != Singleton {
		return instance, nil
	}

	if _, ok := reg.activator.(*instanceActivator); ok {
		return instance, nil
	}

	actual, loaded, err := c.singletons.LoadOrStore(reg.id, instance)
	if err != nil {
		// Closed while activating; nothing else will release it.
		if derr := lifetime.DisposeValue(context.Background(), instance); derr != nil {
			c.logger.Error("failed to dispose orphaned singleton",
				zap.Stringer("registration", reg.id),
				zap.Error(derr),
			)
		}
		if errors.Is(err, lifetime.ErrDisposed) {
			return nil, ErrContainerDisposed
		}
		return nil, err
	}

	if loaded {
		// Another goroutine won the race; release our copy.
		if derr := lifetime.DisposeValue(context.Background(), instance); derr != nil {
			c.logger.Error("failed to dispose redundant singleton",
				zap.Stringer("registration", reg.id),
				zap.Error(derr),
			)
		}
	}

	return actual, nil
}

// primaryService returns the first service a registration exposes.
func primaryService(reg *Registration) Service {
	if len(reg.services) == 0 {
		return TypedService(reg.activator.LimitType())
	}
	return reg.services[0]
}

// wrapResolution attaches service to err unless err already describes a
// resolution failure or is a usage error.
func wrapResolution(service Service, err error) error {
	var re ResolutionError
	if errors.As(err, &re) && re.Service == service {
		return err
	}

	var ve ValidationError
	if errors.As(err, &ve) || errors.Is(err, ErrContainerDisposed) {
		return err
	}

	return ResolutionError{Service: service, Cause: err}
}

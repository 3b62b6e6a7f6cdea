package autoreg

import (
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/junioryono/autoreg/internal/reflection"
)

// Shared analysis state. Analysis depends only on types, so one cache
// serves every container.
var (
	analyzer     = reflection.New()
	invoker      = reflection.NewConstructorInvoker(analyzer)
	paramBuilder = reflection.NewParamObjectBuilder(analyzer)
)

// In can be embedded in a struct to make it a parameter object or to inject
// every exported field of a synthesized struct. It is go.uber.org/dig's
// marker, so dig parameter objects work unchanged.
type In = reflection.In

// dependencyReporter is implemented by activators whose dependencies are
// known before activation. Build uses it to reject constructor cycles.
type dependencyReporter interface {
	dependencies() []Service
}

// ActivateFunc produces an instance using ctx to reach other services.
type ActivateFunc func(ctx ActivationContext) (any, error)

// NewDelegateActivator returns an activator that calls fn. The values fn
// produces must be assignable to limit.
func NewDelegateActivator(limit reflect.Type, fn ActivateFunc) (Activator, error) {
	if limit == nil {
		return nil, ValidationError{Cause: ErrServiceTypeNil}
	}

	if fn == nil {
		return nil, ValidationError{ServiceType: limit, Cause: ErrActivatorNil}
	}

	return &delegateActivator{limit: limit, fn: fn}, nil
}

type delegateActivator struct {
	limit reflect.Type
	fn    ActivateFunc
}

func (a *delegateActivator) LimitType() reflect.Type {
	return a.limit
}

func (a *delegateActivator) Activate(ctx ActivationContext) (any, error) {
	return a.fn(ctx)
}

// instanceActivator returns a value supplied at registration time.
type instanceActivator struct {
	value any
}

func newInstanceActivator(value any) (*instanceActivator, error) {
	if value == nil {
		return nil, ValidationError{Cause: ErrInstanceNil}
	}

	return &instanceActivator{value: value}, nil
}

func (a *instanceActivator) LimitType() reflect.Type {
	return reflect.TypeOf(a.value)
}

func (a *instanceActivator) Activate(ActivationContext) (any, error) {
	return a.value, nil
}

// constructorActivator calls a constructor function with resolved arguments.
type constructorActivator struct {
	fn   reflect.Value
	info *reflection.ConstructorInfo
}

func newConstructorActivator(constructor any) (*constructorActivator, error) {
	if constructor == nil {
		return nil, ValidationError{Cause: ErrConstructorNil}
	}

	info, err := analyzer.Analyze(constructor)
	if err != nil {
		return nil, RegistrationError{
			ServiceType: reflect.TypeOf(constructor),
			Operation:   "analyze",
			Cause:       err,
		}
	}

	return &constructorActivator{
		fn:   reflect.ValueOf(constructor),
		info: info,
	}, nil
}

func (a *constructorActivator) LimitType() reflect.Type {
	return a.info.ReturnType
}

func (a *constructorActivator) Activate(ctx ActivationContext) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ConstructorPanicError{
				Constructor: a.info.Type,
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	result, err := invoker.Invoke(a.fn, a.info, contextResolver{ctx: ctx})
	if err != nil {
		return nil, ConstructorInvocationError{Constructor: a.info.Type, Cause: err}
	}

	return valueInterface(result), nil
}

func (a *constructorActivator) dependencies() []Service {
	return toServices(a.info.Dependencies())
}

// reflectionActivator allocates a struct and injects its fields. It is the
// default activator for synthesized concrete types.
type reflectionActivator struct {
	typ  reflect.Type // pointer to struct
	info *reflection.StructInfo
}

func newReflectionActivator(t reflect.Type) (*reflectionActivator, error) {
	if t == nil {
		return nil, ValidationError{Cause: ErrServiceTypeNil}
	}

	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, ValidationError{ServiceType: t, Cause: ErrNotConcreteType}
	}

	info, err := analyzer.AnalyzeStruct(t)
	if err != nil {
		return nil, RegistrationError{ServiceType: t, Operation: "analyze", Cause: err}
	}

	return &reflectionActivator{typ: t, info: info}, nil
}

func (a *reflectionActivator) LimitType() reflect.Type {
	return a.typ
}

func (a *reflectionActivator) Activate(ctx ActivationContext) (any, error) {
	ptr := reflect.New(a.info.Type)

	if err := paramBuilder.Populate(ptr.Elem(), a.info, contextResolver{ctx: ctx}); err != nil {
		return nil, fmt.Errorf("failed to populate %s: %w", formatType(a.typ), err)
	}

	return ptr.Interface(), nil
}

func (a *reflectionActivator) dependencies() []Service {
	return toServices(a.info.Dependencies())
}

// contextResolver adapts an ActivationContext to reflection.DependencyResolver.
type contextResolver struct {
	ctx ActivationContext
}

func (r contextResolver) Get(t reflect.Type) (any, error) {
	return r.ctx.Resolve(TypedService(t))
}

func (r contextResolver) GetKeyed(t reflect.Type, key any) (any, error) {
	return r.ctx.Resolve(KeyedService(t, key))
}

func (r contextResolver) Has(t reflect.Type, key any) (bool, error) {
	return r.ctx.IsRegistered(Service{Type: t, Key: key})
}

func toServices(deps []*reflection.Dependency) []Service {
	services := make([]Service, 0, len(deps))
	for _, dep := range deps {
		services = append(services, Service{Type: dep.Type, Key: dep.Key})
	}
	return services
}

// valueInterface returns v as an interface, keeping nil interfaces nil.
func valueInterface(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}

	return v.Interface()
}

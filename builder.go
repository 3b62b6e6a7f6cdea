package autoreg

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/junioryono/autoreg/internal/graph"
	"github.com/junioryono/autoreg/internal/lifetime"
	"go.uber.org/zap"
)

// Builder collects explicit registrations and registration sources, then
// freezes them into a Container.
//
// Builder is NOT thread-safe. Configure it in a single goroutine before
// calling Build.
//
// Example:
//
//	builder := autoreg.NewBuilder()
//	builder.RegisterSingleton(NewLogger)
//	builder.RegisterAnyConcreteType()
//	builder.RegisterImplicitAdapters()
//
//	container, err := builder.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer container.Close()
type Builder struct {
	registry *ServiceRegistry
	sources  []sourceEntry
	built    bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		registry: NewServiceRegistry(),
	}
}

// RegisterSingleton registers a constructor whose result is created once
// and shared.
func (b *Builder) RegisterSingleton(constructor any, opts ...RegisterOption) error {
	return b.registerConstructor(constructor, Singleton, opts...)
}

// RegisterTransient registers a constructor called on every resolve.
func (b *Builder) RegisterTransient(constructor any, opts ...RegisterOption) error {
	return b.registerConstructor(constructor, Transient, opts...)
}

// RegisterInstance registers an existing value. The container never
// disposes it.
func (b *Builder) RegisterInstance(instance any, opts ...RegisterOption) error {
	activator, err := newInstanceActivator(instance)
	if err != nil {
		return err
	}

	return b.register(activator, Singleton, opts...)
}

// RegisterType registers the struct pointer type t, built by field
// injection like a synthesized type.
func (b *Builder) RegisterType(t reflect.Type, lifetime Lifetime, opts ...RegisterOption) error {
	activator, err := newReflectionActivator(t)
	if err != nil {
		return err
	}

	return b.register(activator, lifetime, opts...)
}

// Register adds a prepared registration.
func (b *Builder) Register(reg *Registration) error {
	if b.built {
		return ErrBuilderAlreadyBuilt
	}

	return b.registry.Add(reg)
}

// RegisterSource appends a registration source. Sources are consulted only
// for services without registrations, so the order of this call relative to
// explicit registrations never matters. Sources registered without
// preserveDefaults are consulted first, then those registered with it; within
// each group the earliest registered source is asked first and the first
// non-empty answer wins.
func (b *Builder) RegisterSource(source RegistrationSource, preserveDefaults bool) error {
	if b.built {
		return ErrBuilderAlreadyBuilt
	}

	if source == nil {
		return ValidationError{Cause: ErrSourceNil}
	}

	b.sources = append(b.sources, sourceEntry{source: source, preserveDefaults: preserveDefaults})
	return nil
}

// RegisterAnyConcreteType installs an AnyConcreteTypeSource. It keeps
// defaults, so other sources are asked first.
func (b *Builder) RegisterAnyConcreteType(opts ...ConcreteTypeOption) error {
	source, err := NewAnyConcreteTypeSource(opts...)
	if err != nil {
		return err
	}

	return b.RegisterSource(source, true)
}

// RegisterImplicitAdapters installs the func, lazy, owned and collection sources.
func (b *Builder) RegisterImplicitAdapters() error {
	sources := []RegistrationSource{
		NewFuncSource(),
		NewLazySource(),
		NewOwnedSource(),
		NewCollectionSource(),
	}

	for _, source := range sources {
		if err := b.RegisterSource(source, false); err != nil {
			return err
		}
	}

	return nil
}

// AddModules applies one or more modules to the builder.
func (b *Builder) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(b); err != nil {
			return err
		}
	}

	return nil
}

// Contains reports whether t has an explicit unkeyed registration.
func (b *Builder) Contains(t reflect.Type) bool {
	return b.registry.HasRegistrations(TypedService(t))
}

// ContainsKeyed reports whether t has an explicit registration under key.
func (b *Builder) ContainsKeyed(t reflect.Type, key any) bool {
	return b.registry.HasRegistrations(KeyedService(t, key))
}

// Count returns the number of explicit registrations.
func (b *Builder) Count() int {
	return b.registry.Count()
}

// Build validates the registrations and returns the Container. A builder
// can be built only once.
func (b *Builder) Build(opts ...ContainerOption) (*Container, error) {
	if b.built {
		return nil, ErrBuilderAlreadyBuilt
	}

	options := defaultContainerOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyContainerOption(options)
	}

	if err := b.validateGraph(options.logger); err != nil {
		return nil, err
	}

	b.built = true

	logger := options.logger
	c := &Container{
		id:       uuid.New(),
		registry: b.registry,
		chain:    newSourceChain(b.registry, b.sources, logger),
		singletons: lifetime.New(func(instance any, err error) {
			if err != nil {
				logger.Error("failed to dispose singleton",
					zap.String("type", fmt.Sprintf("%T", instance)),
					zap.Error(err),
				)
				return
			}
			logger.Debug("disposed singleton", zap.String("type", fmt.Sprintf("%T", instance)))
		}),
		logger:  logger,
		options: options,
	}

	logger.Debug("container built",
		zap.Stringer("container", c.id),
		zap.Int("registrations", b.registry.Count()),
		zap.Int("sources", len(b.sources)),
	)

	return c, nil
}

// validateGraph rejects dependency cycles among explicit registrations.
// Services only a source provides are leaves here; cycles through them are
// reported at resolve time.
func (b *Builder) validateGraph(logger *zap.Logger) error {
	g := graph.NewDependencyGraph()

	for _, reg := range b.registry.Explicit() {
		reporter, ok := reg.activator.(dependencyReporter)
		if !ok {
			continue
		}

		if err := g.AddProvider(registrationNode{reg: reg, deps: reporter.dependencies()}); err != nil {
			return BuildError{Phase: "graph", Details: reg.String(), Cause: err}
		}
	}

	cycle := g.FindCycle()
	if cycle == nil {
		logger.Debug("dependency graph validated", zap.Int("nodes", g.Size()))
		return nil
	}

	path := make([]Service, 0, len(cycle)-1)
	for _, key := range cycle[:len(cycle)-1] {
		path = append(path, Service{Type: key.Type, Key: key.Key})
	}

	return BuildError{
		Phase:   "graph",
		Details: "dependency cycle among registrations",
		Cause:   CircularDependencyError{Service: path[0], Path: path},
	}
}

// registrationNode adapts a registration to graph.Provider.
type registrationNode struct {
	reg  *Registration
	deps []Service
}

func (n registrationNode) GetServices() []graph.NodeKey {
	return toNodeKeys(n.reg.services)
}

func (n registrationNode) GetDependencies() []graph.NodeKey {
	return toNodeKeys(n.deps)
}

func toNodeKeys(services []Service) []graph.NodeKey {
	keys := make([]graph.NodeKey, len(services))
	for i, s := range services {
		keys[i] = graph.NodeKey{Type: s.Type, Key: s.Key}
	}
	return keys
}

func (b *Builder) registerConstructor(constructor any, lifetime Lifetime, opts ...RegisterOption) error {
	activator, err := newConstructorActivator(constructor)
	if err != nil {
		return err
	}

	return b.register(activator, lifetime, opts...)
}

func (b *Builder) register(activator Activator, lifetime Lifetime, opts ...RegisterOption) error {
	if b.built {
		return ErrBuilderAlreadyBuilt
	}

	options := &registerOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRegisterOption(options)
	}

	limit := activator.LimitType()
	if err := options.Validate(limit); err != nil {
		return RegistrationError{ServiceType: limit, Operation: "register", Cause: err}
	}

	key := options.key()

	builder := NewRegistration(activator).WithLifetime(lifetime)
	if len(options.As) == 0 {
		builder.As(Service{Type: limit, Key: key})
	}
	for _, iface := range options.As {
		builder.As(Service{Type: reflect.TypeOf(iface).Elem(), Key: key})
	}
	for k, v := range options.Metadata {
		builder.WithMetadata(k, v)
	}

	reg, err := builder.Build()
	if err != nil {
		return RegistrationError{ServiceType: limit, Operation: "register", Cause: err}
	}

	return b.registry.Add(reg)
}

// A RegisterOption modifies the default behavior of the Register methods.
type RegisterOption interface {
	applyRegisterOption(*registerOptions)
}

type registerOptions struct {
	Name     string
	Key      any
	As       []any
	Metadata map[string]any
}

func (o *registerOptions) key() any {
	if o.Key != nil {
		return o.Key
	}
	if o.Name != "" {
		return o.Name
	}
	return nil
}

func (o *registerOptions) Validate(limit reflect.Type) error {
	if o.Name != "" && o.Key != nil {
		return fmt.Errorf("cannot use both autoreg.Name and autoreg.Key: name:%q provided with key:%v", o.Name, o.Key)
	}

	// Names end up in struct tags, which cannot hold backquotes.
	if strings.ContainsRune(o.Name, '`') {
		return fmt.Errorf("invalid autoreg.Name(%q): names cannot contain backquotes", o.Name)
	}

	if o.Key != nil && !reflect.TypeOf(o.Key).Comparable() {
		return fmt.Errorf("invalid autoreg.Key(%v): %w", o.Key, ErrKeyNotComparable)
	}

	for _, i := range o.As {
		t := reflect.TypeOf(i)

		if t == nil {
			return fmt.Errorf("invalid autoreg.As(nil): argument must be a pointer to an interface")
		}

		if t.Kind() != reflect.Pointer {
			return fmt.Errorf("invalid autoreg.As(%v): argument must be a pointer to an interface", t)
		}

		pointingTo := t.Elem()
		if pointingTo.Kind() != reflect.Interface {
			return fmt.Errorf("invalid autoreg.As(*%v): argument must be a pointer to an interface", pointingTo)
		}

		if !limit.Implements(pointingTo) {
			return fmt.Errorf("invalid autoreg.As(*%v): %v does not implement it", pointingTo, limit)
		}
	}

	return nil
}

// Name is a RegisterOption that registers the value under a string key.
// Fields tagged name:"..." and keyed resolves select it.
//
//	builder.RegisterSingleton(NewReadOnlyConnection, autoreg.Name("ro"))
//	builder.RegisterSingleton(NewReadWriteConnection, autoreg.Name("rw"))
func Name(name string) RegisterOption {
	return registerNameOption(name)
}

type registerNameOption string

func (o registerNameOption) String() string {
	return fmt.Sprintf("Name(%q)", string(o))
}

func (o registerNameOption) applyRegisterOption(opt *registerOptions) {
	opt.Name = string(o)
}

// Key is a RegisterOption that registers the value under any comparable key.
func Key(key any) RegisterOption {
	return registerKeyOption{key: key}
}

type registerKeyOption struct {
	key any
}

func (o registerKeyOption) String() string {
	return fmt.Sprintf("Key(%v)", o.key)
}

func (o registerKeyOption) applyRegisterOption(opt *registerOptions) {
	opt.Key = o.key
}

// As is a RegisterOption that exposes the value as one or more interfaces
// instead of its own type. It expects pointers to the interfaces.
//
//	builder.RegisterSingleton(newBuffer, autoreg.As(new(io.Reader), new(io.Writer)))
func As(i ...any) RegisterOption {
	return registerAsOption(i)
}

type registerAsOption []any

func (o registerAsOption) String() string {
	buf := bytes.NewBufferString("As(")
	for i, iface := range o {
		if i > 0 {
			buf.WriteString(", ")
		}
		if t := reflect.TypeOf(iface); t != nil && t.Kind() == reflect.Pointer {
			buf.WriteString(t.Elem().String())
		} else {
			buf.WriteString(fmt.Sprint(iface))
		}
	}
	buf.WriteString(")")
	return buf.String()
}

func (o registerAsOption) applyRegisterOption(opts *registerOptions) {
	opts.As = append(opts.As, o...)
}

// WithMetadata is a RegisterOption that attaches a metadata value to the registration.
func WithMetadata(key string, value any) RegisterOption {
	return registerMetadataOption{key: key, value: value}
}

type registerMetadataOption struct {
	key   string
	value any
}

func (o registerMetadataOption) applyRegisterOption(opts *registerOptions) {
	if opts.Metadata == nil {
		opts.Metadata = make(map[string]any)
	}
	opts.Metadata[o.key] = o.value
}

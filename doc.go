// Package autoreg is the implicit-registration core of a dependency
// injection container. Services without an explicit registration can still
// be resolved: an ordered chain of registration sources synthesizes
// registrations for them on first use.
//
// # Overview
//
// autoreg provides:
//   - Explicit registrations that always take precedence over sources
//   - AnyConcreteTypeSource, which synthesizes any concrete struct pointer type
//   - Adapter sources for func() T, *Lazy[T] and *Owned[T] over any registration of T
//   - CollectionSource for []T and DigSource for bridging a go.uber.org/dig container
//   - At most one synthesis per service for the container's lifetime
//   - Thread-safe resolution
//
// # Basic Usage
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
//
//	// *ReportService was never registered; it is synthesized and its
//	// inject-tagged fields are resolved.
//	reports, err := autoreg.Resolve[*ReportService](container)
//
// # Synthesized Types
//
// AnyConcreteTypeSource builds a struct pointer by allocating the struct and
// injecting fields:
//
//	type ReportService struct {
//	    Logger   Logger                    `inject:""`
//	    Cache    Cache                     `inject:"optional"`
//	    Primary  *sql.DB                   `inject:"" name:"primary"`
//	    Exporter *autoreg.Lazy[*Exporter]  `inject:""`
//	}
//
// Structs embedding autoreg.In have every exported field injected. Interfaces,
// funcs, structs embedding autoreg.Abstract, keyed services, string and the
// container's own generic wrappers are never synthesized. Use Where to limit
// synthesis further:
//
//	builder.RegisterAnyConcreteType(autoreg.Where(func(t reflect.Type) bool {
//	    return strings.HasPrefix(t.Elem().Name(), "Foo")
//	}))
//
// # Registration Sources
//
// A RegistrationSource is asked for a service only when the registry has no
// registration for it. Sources run in order; the first non-empty answer is
// committed and every later query for that service is answered from the
// registry. Sources reach other services through an accessor, which may
// synthesize them in turn:
//
//	*Lazy[*Mailer] -> LazySource -> accessor(*Mailer) -> AnyConcreteTypeSource
//
// A source that ends up asking for a service already being synthesized in
// the same lookup gets a CircularDependencyError.
//
// # Lifetimes
//
//   - Transient: a new instance on every resolve (default for synthesized types)
//   - Singleton: one instance per container, disposed on Close
//
// # Error Handling
//
// Errors are typed values wrapping sentinel errors:
//
//	if autoreg.IsNotFound(err) { ... }
//	if autoreg.IsCircularDependency(err) { ... }
//	if autoreg.IsInvalidArgument(err) { ... }
//
// # Diagnostics
//
// WithDiagnostics receives one ResolveEvent per top-level Resolve or
// ResolveAll, carrying the operation, its outcome and an activation trace.
package autoreg

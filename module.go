package autoreg

// ModuleOption represents a registration action within a module.
type ModuleOption func(*Builder) error

// NewModule creates a new module with the given name and builders.
// Modules group related registrations; an error from any of them is
// reported as a ModuleError naming the module.
//
// Example:
//
//	var StorageModule = autoreg.NewModule("storage",
//	    autoreg.AddSingleton(NewDatabaseConnection),
//	    autoreg.AddTransient(NewUserRepository),
//	)
//
//	var AppModule = autoreg.NewModule("app",
//	    StorageModule,
//	    autoreg.AddAnyConcreteType(),
//	    autoreg.AddImplicitAdapters(),
//	)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(b *Builder) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(b); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// AddSingleton creates a ModuleOption registering a singleton constructor.
func AddSingleton(constructor any, opts ...RegisterOption) ModuleOption {
	return func(b *Builder) error {
		return b.RegisterSingleton(constructor, opts...)
	}
}

// AddTransient creates a ModuleOption registering a transient constructor.
func AddTransient(constructor any, opts ...RegisterOption) ModuleOption {
	return func(b *Builder) error {
		return b.RegisterTransient(constructor, opts...)
	}
}

// AddInstance creates a ModuleOption registering an existing value.
func AddInstance(instance any, opts ...RegisterOption) ModuleOption {
	return func(b *Builder) error {
		return b.RegisterInstance(instance, opts...)
	}
}

// AddSource creates a ModuleOption registering a registration source.
func AddSource(source RegistrationSource, preserveDefaults bool) ModuleOption {
	return func(b *Builder) error {
		return b.RegisterSource(source, preserveDefaults)
	}
}

// AddAnyConcreteType creates a ModuleOption installing an AnyConcreteTypeSource.
func AddAnyConcreteType(opts ...ConcreteTypeOption) ModuleOption {
	return func(b *Builder) error {
		return b.RegisterAnyConcreteType(opts...)
	}
}

// AddImplicitAdapters creates a ModuleOption installing the func, lazy,
// owned and collection sources.
func AddImplicitAdapters() ModuleOption {
	return func(b *Builder) error {
		return b.RegisterImplicitAdapters()
	}
}

package reflection

import (
	"fmt"
	"reflect"
)

// DependencyResolver is the interface for resolving dependencies.
// It is implemented by the container's activation context.
type DependencyResolver interface {
	Get(t reflect.Type) (any, error)
	GetKeyed(t reflect.Type, key any) (any, error)
	Has(t reflect.Type, key any) (bool, error)
}

// ParamObjectBuilder builds parameter objects and populates injectable structs.
type ParamObjectBuilder struct {
	analyzer *Analyzer
}

// NewParamObjectBuilder creates a new parameter object builder.
func NewParamObjectBuilder(analyzer *Analyzer) *ParamObjectBuilder {
	return &ParamObjectBuilder{analyzer: analyzer}
}

// BuildParamObject creates a value of paramType and populates it.
// A pointer paramType yields a pointer to a freshly allocated struct.
func (b *ParamObjectBuilder) BuildParamObject(
	paramType reflect.Type,
	resolver DependencyResolver,
) (reflect.Value, error) {
	if resolver == nil {
		return reflect.Value{}, fmt.Errorf("resolver cannot be nil")
	}

	info, err := b.analyzer.AnalyzeStruct(paramType)
	if err != nil {
		return reflect.Value{}, err
	}

	structPtr := reflect.New(info.Type)
	if err := b.Populate(structPtr.Elem(), info, resolver); err != nil {
		return reflect.Value{}, err
	}

	if paramType.Kind() == reflect.Pointer {
		return structPtr, nil
	}
	return structPtr.Elem(), nil
}

// Populate sets every injectable field of target, a settable struct value.
func (b *ParamObjectBuilder) Populate(
	target reflect.Value,
	info *StructInfo,
	resolver DependencyResolver,
) error {
	for _, field := range info.Fields {
		if field.Optional {
			ok, err := resolver.Has(field.Type, field.Key)
			if err != nil {
				return fmt.Errorf("failed to inspect field %s: %w", field.Name, err)
			}
			if !ok {
				continue
			}
		}

		value, err := resolveParameter(field, resolver)
		if err != nil {
			return fmt.Errorf("failed to resolve field %s: %w", field.Name, err)
		}

		fieldToSet := target.Field(field.Index)
		if fieldToSet.CanSet() {
			fieldToSet.Set(value)
		}
	}

	return nil
}

// ConstructorInvoker invokes constructors with resolved dependencies.
type ConstructorInvoker struct {
	analyzer     *Analyzer
	paramBuilder *ParamObjectBuilder
}

// NewConstructorInvoker creates a new constructor invoker.
func NewConstructorInvoker(analyzer *Analyzer) *ConstructorInvoker {
	return &ConstructorInvoker{
		analyzer:     analyzer,
		paramBuilder: NewParamObjectBuilder(analyzer),
	}
}

// Invoke calls fn with resolved dependencies and returns its first result.
// An error returned by the constructor is passed through unwrapped.
func (ci *ConstructorInvoker) Invoke(
	fn reflect.Value,
	info *ConstructorInfo,
	resolver DependencyResolver,
) (reflect.Value, error) {
	args, err := ci.buildArguments(info, resolver)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("failed to build arguments: %w", err)
	}

	results := fn.Call(args)

	if info.HasErrorReturn {
		if errValue := results[1]; !errValue.IsNil() {
			return reflect.Value{}, errValue.Interface().(error)
		}
	}

	return results[0], nil
}

// buildArguments builds the argument list for a constructor.
func (ci *ConstructorInvoker) buildArguments(
	info *ConstructorInfo,
	resolver DependencyResolver,
) ([]reflect.Value, error) {
	if info.IsParamObject {
		paramValue, err := ci.paramBuilder.BuildParamObject(info.Type.In(0), resolver)
		if err != nil {
			return nil, err
		}
		return []reflect.Value{paramValue}, nil
	}

	args := make([]reflect.Value, len(info.Parameters))
	for i, param := range info.Parameters {
		value, err := resolveParameter(param, resolver)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve parameter %d: %w", i, err)
		}
		args[i] = value
	}

	return args, nil
}

// resolveParameter resolves a single parameter and converts it to its
// declared type. A nil result becomes the zero value of that type.
func resolveParameter(param ParameterInfo, resolver DependencyResolver) (reflect.Value, error) {
	var (
		value any
		err   error
	)

	if param.Key != nil {
		value, err = resolver.GetKeyed(param.Type, param.Key)
	} else {
		value, err = resolver.Get(param.Type)
	}
	if err != nil {
		return reflect.Value{}, err
	}

	if value == nil {
		return reflect.Zero(param.Type), nil
	}

	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(param.Type) {
		return reflect.Value{}, fmt.Errorf("resolved %v is not assignable to %v", rv.Type(), param.Type)
	}

	return rv, nil
}

package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/dig"
)

// In marks a parameter object or an injectable struct. It is dig's marker,
// so structs written for dig work unchanged.
type In = dig.In

var errType = reflect.TypeFor[error]()

var (
	ErrConstructorNil          = errors.New("constructor cannot be nil")
	ErrNotFunction             = errors.New("constructor must be a function")
	ErrNoReturn                = errors.New("constructor must return a value")
	ErrTooManyReturns          = errors.New("constructor must return at most 2 values")
	ErrInvalidSecondReturn     = errors.New("constructor's second return value must be error")
	ErrErrorOnlyReturn         = errors.New("constructor's first return value cannot be error")
	ErrVariadicConstructor     = errors.New("variadic constructors are not supported")
	ErrNotStruct               = errors.New("type must be a struct or a pointer to a struct")
	ErrUnexportedInjectedField = errors.New("injected fields must be exported")
)

// Analyzer performs reflection-based analysis of constructors and injectable
// structs. Results depend only on the analysed type, so they are cached per type.
type Analyzer struct {
	mu           sync.RWMutex
	constructors map[reflect.Type]*ConstructorInfo
	structs      map[reflect.Type]*StructInfo
}

// ConstructorInfo contains analyzed information about a constructor function.
type ConstructorInfo struct {
	Type           reflect.Type
	Parameters     []ParameterInfo
	ReturnType     reflect.Type
	HasErrorReturn bool
	IsParamObject  bool // single parameter embedding In

	dependencies []*Dependency
}

// StructInfo describes the injectable fields of a struct.
type StructInfo struct {
	Type     reflect.Type // always the struct type, never a pointer
	Fields   []ParameterInfo
	EmbedsIn bool

	dependencies []*Dependency
}

// ParameterInfo describes a constructor parameter or an injectable field.
type ParameterInfo struct {
	Type     reflect.Type
	Name     string // field name for structs
	Index    int    // parameter index or field index
	Optional bool
	Key      any // from name:"key" tag
}

// TagInfo contains parsed struct tag information.
type TagInfo struct {
	Inject   bool
	Optional bool
	Name     string
	Ignore   bool
}

// Dependency represents a single dependency of a constructor or struct.
type Dependency struct {
	Type      reflect.Type
	Key       any
	Optional  bool
	Index     int
	FieldName string
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		constructors: make(map[reflect.Type]*ConstructorInfo),
		structs:      make(map[reflect.Type]*StructInfo),
	}
}

// Analyze analyzes a constructor function and extracts dependency information.
// A constructor returns one value, optionally followed by an error.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, ErrConstructorNil
	}

	val := reflect.ValueOf(constructor)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %v", ErrNotFunction, val.Type())
	}

	if val.IsNil() {
		return nil, ErrConstructorNil
	}

	typ := val.Type()

	a.mu.RLock()
	if cached, ok := a.constructors[typ]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	if typ.IsVariadic() {
		return nil, ErrVariadicConstructor
	}

	info := &ConstructorInfo{Type: typ}

	if err := a.analyzeReturns(info); err != nil {
		return nil, err
	}

	if err := a.analyzeParameters(info); err != nil {
		return nil, fmt.Errorf("failed to analyze parameters: %w", err)
	}

	info.dependencies = buildDependencies(info.Parameters)

	a.mu.Lock()
	if cached, ok := a.constructors[typ]; ok {
		info = cached
	} else {
		a.constructors[typ] = info
	}
	a.mu.Unlock()

	return info, nil
}

// AnalyzeStruct returns the injectable fields of t, which may be a struct or
// a pointer to one. When the struct embeds In every exported field is
// injected; otherwise only fields carrying an inject tag are.
func (a *Analyzer) AnalyzeStruct(t reflect.Type) (*StructInfo, error) {
	if t == nil {
		return nil, ErrNotStruct
	}

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %v", ErrNotStruct, t)
	}

	a.mu.RLock()
	if cached, ok := a.structs[t]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &StructInfo{
		Type:     t,
		EmbedsIn: dig.IsIn(t),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous && dig.IsIn(field.Type) {
			continue
		}

		tagInfo := ParseFieldTags(field.Tag)
		if tagInfo.Ignore {
			continue
		}

		if !info.EmbedsIn && !tagInfo.Inject {
			continue
		}

		if !field.IsExported() {
			if tagInfo.Inject {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnexportedInjectedField, t.Name(), field.Name)
			}
			continue
		}

		param := ParameterInfo{
			Type:     field.Type,
			Name:     field.Name,
			Index:    i,
			Optional: tagInfo.Optional,
		}

		if tagInfo.Name != "" {
			param.Key = tagInfo.Name
		}

		info.Fields = append(info.Fields, param)
	}

	info.dependencies = buildDependencies(info.Fields)

	a.mu.Lock()
	if cached, ok := a.structs[t]; ok {
		info = cached
	} else {
		a.structs[t] = info
	}
	a.mu.Unlock()

	return info, nil
}

// analyzeParameters analyzes function parameters or the In struct fields.
func (a *Analyzer) analyzeParameters(info *ConstructorInfo) error {
	fnType := info.Type

	if fnType.NumIn() == 1 {
		paramType := fnType.In(0)
		if paramType.Kind() == reflect.Struct && dig.IsIn(paramType) {
			info.IsParamObject = true

			structInfo, err := a.AnalyzeStruct(paramType)
			if err != nil {
				return err
			}

			info.Parameters = structInfo.Fields
			return nil
		}
	}

	info.Parameters = make([]ParameterInfo, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		info.Parameters[i] = ParameterInfo{
			Type:  fnType.In(i),
			Index: i,
		}
	}

	return nil
}

// analyzeReturns validates the constructor's return values.
func (a *Analyzer) analyzeReturns(info *ConstructorInfo) error {
	fnType := info.Type

	switch fnType.NumOut() {
	case 0:
		return ErrNoReturn
	case 1:
	case 2:
		if !fnType.Out(1).Implements(errType) {
			return ErrInvalidSecondReturn
		}
		info.HasErrorReturn = true
	default:
		return ErrTooManyReturns
	}

	if fnType.Out(0) == errType {
		return ErrErrorOnlyReturn
	}

	info.ReturnType = fnType.Out(0)
	return nil
}

// buildDependencies creates Dependency objects from ParameterInfo.
func buildDependencies(params []ParameterInfo) []*Dependency {
	deps := make([]*Dependency, 0, len(params))

	for _, param := range params {
		deps = append(deps, &Dependency{
			Type:      param.Type,
			Key:       param.Key,
			Optional:  param.Optional,
			Index:     param.Index,
			FieldName: param.Name,
		})
	}

	return deps
}

// Dependencies returns the analyzed dependencies of the constructor.
func (info *ConstructorInfo) Dependencies() []*Dependency {
	return info.dependencies
}

// Dependencies returns the analyzed dependencies of the struct.
func (info *StructInfo) Dependencies() []*Dependency {
	return info.dependencies
}

// ParseFieldTags parses struct field tags for DI-specific annotations.
//
//	inject:""          inject this field
//	inject:"optional"  inject if registered, leave zero otherwise
//	inject:"-"         never inject
//	optional:"true"    same as inject:"optional"
//	name:"key"         resolve the keyed service
func ParseFieldTags(tag reflect.StructTag) TagInfo {
	info := TagInfo{}

	if val, ok := tag.Lookup("inject"); ok {
		switch val {
		case "-":
			info.Ignore = true
		case "optional":
			info.Inject = true
			info.Optional = true
		default:
			info.Inject = true
		}
	}

	if val, ok := tag.Lookup("optional"); ok {
		info.Optional = val == "true"
	}

	if val, ok := tag.Lookup("name"); ok {
		info.Name = val
	}

	return info
}

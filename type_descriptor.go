package autoreg

import (
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

// Abstract marks a struct as abstract when embedded. Abstract structs are
// never synthesized by AnyConcreteTypeSource.
//
//	type BaseHandler struct {
//	    autoreg.Abstract
//	    Name string
//	}
type Abstract struct{}

// Unbound is a placeholder type argument. A generic instantiated with it,
// such as Lazy[Unbound], stands for the unbound generic definition.
type Unbound struct{}

var (
	abstractType = reflect.TypeFor[Abstract]()
	unboundName  = qualifiedName(reflect.TypeFor[Unbound]())
	stringType   = reflect.TypeFor[string]()
)

// GenericDefinition identifies a generic type independent of its type
// arguments: the defining package path and the base name.
type GenericDefinition struct {
	PkgPath string
	Name    string
}

// GenericDefinitionOf returns the definition of the generic type T, or of
// the type T points to. Non-generic types yield the zero value.
//
//	autoreg.GenericDefinitionOf[autoreg.Lazy[autoreg.Unbound]]()
func GenericDefinitionOf[T any]() GenericDefinition {
	return DescribeType(reflect.TypeFor[T]()).GenericDefinition
}

// IsZero reports whether g identifies no generic type.
func (g GenericDefinition) IsZero() bool {
	return g.Name == ""
}

func (g GenericDefinition) String() string {
	if g.PkgPath == "" {
		return g.Name
	}
	return g.PkgPath + "." + g.Name
}

// TypeDescriptor holds the facts used to decide whether a type may be
// synthesized. Descriptors are computed once per type and shared.
type TypeDescriptor struct {
	Type reflect.Type

	// IsClass is true for pointers to structs.
	IsClass bool

	// IsAbstract is true for interfaces and structs embedding Abstract.
	IsAbstract bool

	// IsGenericDefinition is true when a type argument is Unbound.
	IsGenericDefinition bool

	// IsClosedGeneric is true for generic instantiations with concrete arguments.
	IsClosedGeneric bool

	// IsDelegateLike is true for function types and pointers to them.
	IsDelegateLike bool

	// IsString is true for the built-in string type.
	IsString bool

	// GenericDefinition is set for generic types, including through one pointer.
	GenericDefinition GenericDefinition

	// DefiningPackage is the import path of the named type, through one pointer.
	DefiningPackage string
}

// typeDescriptors caches descriptors by type.
var typeDescriptors sync.Map // map[reflect.Type]*TypeDescriptor

// DescribeType returns the cached descriptor for t. It returns nil for a nil type.
func DescribeType(t reflect.Type) *TypeDescriptor {
	if t == nil {
		return nil
	}

	if cached, ok := typeDescriptors.Load(t); ok {
		return cached.(*TypeDescriptor)
	}

	actual, _ := typeDescriptors.LoadOrStore(t, newTypeDescriptor(t))
	return actual.(*TypeDescriptor)
}

func newTypeDescriptor(t reflect.Type) *TypeDescriptor {
	d := &TypeDescriptor{
		Type:     t,
		IsString: t == stringType,
	}

	named := t
	if t.Kind() == reflect.Pointer {
		named = t.Elem()
	}

	d.IsClass = t.Kind() == reflect.Pointer && named.Kind() == reflect.Struct
	d.IsDelegateLike = named.Kind() == reflect.Func
	d.IsAbstract = t.Kind() == reflect.Interface ||
		(named.Kind() == reflect.Struct && embedsAbstract(named))
	d.DefiningPackage = named.PkgPath()

	if base, args, ok := splitGenericName(named.Name()); ok {
		d.GenericDefinition = GenericDefinition{PkgPath: named.PkgPath(), Name: base}
		d.IsGenericDefinition = mentionsUnbound(args)
		d.IsClosedGeneric = !d.IsGenericDefinition
	}

	return d
}

func embedsAbstract(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == abstractType {
			return true
		}
	}
	return false
}

// splitGenericName splits "Name[args]" into its base name and arguments.
func splitGenericName(name string) (base, args string, ok bool) {
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.HasSuffix(name, "]") {
		return "", "", false
	}
	return name[:open], name[open+1 : len(name)-1], true
}

// mentionsUnbound reports whether a type argument list refers to Unbound.
func mentionsUnbound(args string) bool {
	tokens := strings.FieldsFunc(args, func(r rune) bool {
		switch r {
		case ',', '[', ']', '*', ' ':
			return true
		}
		return false
	})

	for _, tok := range tokens {
		if tok == unboundName {
			return true
		}
	}
	return false
}

func qualifiedName(t reflect.Type) string {
	return t.PkgPath() + "." + t.Name()
}

// DefaultExcludedGenerics returns the generic definitions never synthesized
// by AnyConcreteTypeSource: the container's own wrapper types and the
// standard library's lazily populated pointer holder.
func DefaultExcludedGenerics() []GenericDefinition {
	return []GenericDefinition{
		GenericDefinitionOf[Lazy[Unbound]](),
		GenericDefinitionOf[Owned[Unbound]](),
		GenericDefinitionOf[atomic.Pointer[Unbound]](),
	}
}

package adi

import (
	"context"
	"reflect"
	"sync"
)

// Definition describes how the engine constructs a type. It is the
// explicit replacement for annotations: register it once with Injectable
// and refer to the type with Type or Class.
type Definition struct {
	// Constructor builds the value. Its parameters are resolved from
	// Inject when given, otherwise by parameter type. Nil allocates a zero
	// value for pointer-to-struct types.
	Constructor any
	Inject      []Injection
	// Props maps exported field names to injections applied after
	// construction, in field name order.
	Props map[string]Injection
	// Methods maps method names to injected arguments. Methods are called
	// after Props, in method name order.
	Methods    map[string][]Injection
	Scope      Scope
	ProvidedIn []any
	Hooks      []Hook
	OnInit     func(ctx context.Context, value any) error
	OnDestroy  func(ctx context.Context, value any) error
}

var definitions sync.Map

func Injectable[T any](def Definition) {
	definitions.Store(TypeOf[T](), def)
}

func lookupDefinition(t reflect.Type) (Definition, bool) {
	v, ok := definitions.Load(t)
	if !ok {
		return Definition{}, false
	}
	return v.(Definition), true
}

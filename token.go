package adi

import (
	"fmt"
	"reflect"

	ireflect "github.com/magicmatatjahu/adi/internal/reflect"
)

// Token identifies a provider. Tokens are compared by identity, so any
// comparable value works: strings, reflect.Type values from TypeOf and
// *InjectionToken pointers.
type Token = any

func TypeOf[T any]() reflect.Type {
	return ireflect.TypeOf[T]()
}

// InjectionToken is an explicit token that can carry its own default
// provider, visibility and multiplicity.
type InjectionToken struct {
	name       string
	providedIn []any
	provider   *Provider
	multi      bool
}

type TokenOption func(*InjectionToken)

func NewToken(name string, opts ...TokenOption) *InjectionToken {
	t := &InjectionToken{name: name}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *InjectionToken) Name() string {
	return t.name
}

func (t *InjectionToken) String() string {
	return t.name
}

// ProvidedIn makes the token resolvable without registration in injectors
// matching one of the labels: an *Injector, a *Module, "any", "core" or a
// custom label given with WithLabels.
func ProvidedIn(labels ...any) TokenOption {
	return func(t *InjectionToken) {
		t.providedIn = append(t.providedIn, labels...)
	}
}

// TokenValue sets a constant default provider.
func TokenValue(value any) TokenOption {
	return func(t *InjectionToken) {
		p := Value(t, value)
		t.provider = &p
	}
}

// TokenFactory sets a factory default provider.
func TokenFactory(fn any, opts ...ProviderOption) TokenOption {
	return func(t *InjectionToken) {
		p := Factory(t, fn, opts...)
		t.provider = &p
	}
}

// TokenClass sets the registered definition of typ as the default provider.
func TokenClass(typ reflect.Type, opts ...ProviderOption) TokenOption {
	return func(t *InjectionToken) {
		p := Class(t, typ, opts...)
		t.provider = &p
	}
}

// TokenMulti collects every provider registered for the token.
func TokenMulti() TokenOption {
	return func(t *InjectionToken) {
		t.multi = true
	}
}

func tokenName(token Token) string {
	switch t := token.(type) {
	case nil:
		return "<nil>"
	case string:
		return t
	case reflect.Type:
		return ireflect.TypeName(t)
	case *InjectionToken:
		return t.name
	case *Module:
		return "module:" + t.name
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// provided returns the default provider and labels for tokens that can be
// materialized lazily.
func provided(token Token) (*Provider, []any) {
	switch t := token.(type) {
	case *InjectionToken:
		if len(t.providedIn) == 0 || t.provider == nil {
			return nil, nil
		}
		return t.provider, t.providedIn
	case reflect.Type:
		def, ok := lookupDefinition(t)
		if !ok || len(def.ProvidedIn) == 0 {
			return nil, nil
		}
		p := Class(t, t)
		return &p, def.ProvidedIn
	default:
		return nil, nil
	}
}

func isMultiToken(token Token) bool {
	t, ok := token.(*InjectionToken)
	return ok && t.multi
}

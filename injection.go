package adi

import (
	"reflect"
)

type InjectionKind uint8

const (
	KindDirect InjectionKind = iota
	KindConstructor
	KindProperty
	KindMethod
	KindFactory
)

func (k InjectionKind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindProperty:
		return "property"
	case KindMethod:
		return "method"
	case KindFactory:
		return "factory"
	default:
		return "direct"
	}
}

// Tokens resolved by the engine itself.
var (
	InjectorToken = NewToken("adi.Injector")
	SessionToken  = NewToken("adi.Session")
	ContextToken  = NewToken("adi.Context")
	InquirerToken = NewToken("adi.Inquirer")
)

var specialTypes = map[reflect.Type]Token{
	TypeOf[*Injector](): InjectorToken,
	TypeOf[*Session]():  SessionToken,
	TypeOf[*Context]():  ContextToken,
}

// Injection describes one dependency request: the token plus the options
// that shape lookup, scoping and the fallback when nothing is found.
type Injection struct {
	token        Token
	optional     bool
	hasDefault   bool
	defaultValue any
	name         string
	tags         map[string]any
	newInstance  bool
	context      *Context
	scope        Scope
	self         bool
	skipSelf     bool
	hooks        []Hook
	kind         InjectionKind
	target       string
}

type InjectionOption func(*Injection)

func Inject(token Token, opts ...InjectionOption) Injection {
	inj := Injection{token: token}
	for _, opt := range opts {
		opt(&inj)
	}
	return inj
}

func (i Injection) Token() Token {
	return i.token
}

func (i Injection) Kind() InjectionKind {
	return i.kind
}

func (i Injection) Name() string {
	return i.name
}

func (i Injection) Tag(key string) (any, bool) {
	v, ok := i.tags[key]
	return v, ok
}

func (i Injection) IsOptional() bool {
	return i.optional
}

func Optional() InjectionOption {
	return func(i *Injection) {
		i.optional = true
	}
}

// Default makes the injection optional and returns value when no provider
// is found.
func Default(value any) InjectionOption {
	return func(i *Injection) {
		i.optional = true
		i.hasDefault = true
		i.defaultValue = value
	}
}

func Named(name string) InjectionOption {
	return func(i *Injection) {
		i.name = name
	}
}

func Tagged(key string, value any) InjectionOption {
	return func(i *Injection) {
		tags := make(map[string]any, len(i.tags)+1)
		for k, v := range i.tags {
			tags[k] = v
		}
		tags[key] = value
		i.tags = tags
	}
}

// NewInstance requests a fresh instance instead of the cached one.
func NewInstance() InjectionOption {
	return func(i *Injection) {
		i.newInstance = true
	}
}

func InContext(ctx *Context) InjectionOption {
	return func(i *Injection) {
		i.context = ctx
	}
}

func InScope(scope Scope) InjectionOption {
	return func(i *Injection) {
		i.scope = scope
	}
}

// Self restricts lookup to the injector receiving the request.
func Self() InjectionOption {
	return func(i *Injection) {
		i.self = true
	}
}

// SkipSelf starts lookup at the parent injector.
func SkipSelf() InjectionOption {
	return func(i *Injection) {
		i.skipSelf = true
	}
}

func WithInjectionHooks(hooks ...Hook) InjectionOption {
	return func(i *Injection) {
		i.hooks = append(i.hooks, hooks...)
	}
}

func injectionsFor(params []reflect.Type, kind InjectionKind) []Injection {
	injections := make([]Injection, len(params))
	for i, p := range params {
		token := Token(p)
		if special, ok := specialTypes[p]; ok {
			token = special
		}
		injections[i] = Injection{token: token, kind: kind}
	}
	return injections
}

func withKind(injections []Injection, kind InjectionKind) []Injection {
	out := make([]Injection, len(injections))
	for i, inj := range injections {
		inj.kind = kind
		out[i] = inj
	}
	return out
}

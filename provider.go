package adi

import (
	"reflect"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	ireflect "github.com/magicmatatjahu/adi/internal/reflect"
)

type providerKind uint8

const (
	providerClass providerKind = iota
	providerConstructor
	providerFactory
	providerExisting
	providerValue
)

func (k providerKind) String() string {
	switch k {
	case providerClass:
		return "class"
	case providerConstructor:
		return "constructor"
	case providerFactory:
		return "factory"
	case providerExisting:
		return "existing"
	default:
		return "value"
	}
}

// Provider tells an injector how to produce the value of a token. Build
// one with Type, Class, Constructor, Factory, Existing or Value.
type Provider struct {
	token   Token
	kind    providerKind
	class   reflect.Type
	fn      any
	value   any
	targets []Token
	config  providerConfig
}

type ProviderOption func(*providerConfig)

type providerConfig struct {
	deps      []Injection
	hasDeps   bool
	props     map[string]Injection
	methods   map[string][]Injection
	scope     Scope
	when      Constraint
	hooks     []Hook
	onInit    []LifecycleFunc
	onDestroy []LifecycleFunc
	multi     bool
}

func newProvider(token Token, kind providerKind, opts []ProviderOption) Provider {
	p := Provider{token: token, kind: kind}
	for _, opt := range opts {
		opt(&p.config)
	}
	return p
}

// Type provides T using the Definition registered with Injectable[T], or
// a zero value when T is a pointer to a struct without one.
func Type[T any](opts ...ProviderOption) Provider {
	t := TypeOf[T]()
	return Class(t, t, opts...)
}

// Class provides token by constructing typ.
func Class(token Token, typ reflect.Type, opts ...ProviderOption) Provider {
	p := newProvider(token, providerClass, opts)
	p.class = typ
	return p
}

// Constructor provides token by calling fn with injected arguments and
// then injecting properties and methods into the result.
func Constructor(token Token, fn any, opts ...ProviderOption) Provider {
	p := newProvider(token, providerConstructor, opts)
	p.fn = fn
	return p
}

// Factory provides token by calling fn. fn may return an Awaitable.
func Factory(token Token, fn any, opts ...ProviderOption) Provider {
	p := newProvider(token, providerFactory, opts)
	p.fn = fn
	return p
}

// Existing aliases token to target.
func Existing(token Token, target Token, opts ...ProviderOption) Provider {
	p := newProvider(token, providerExisting, opts)
	p.targets = []Token{target}
	return p
}

// ExistingAll aliases token to every target; it resolves to []any.
func ExistingAll(token Token, targets []Token, opts ...ProviderOption) Provider {
	p := newProvider(token, providerExisting, opts)
	p.targets = slices.Clone(targets)
	return p
}

func Value(token Token, value any, opts ...ProviderOption) Provider {
	p := newProvider(token, providerValue, opts)
	p.value = value
	return p
}

func (p Provider) Token() Token {
	return p.token
}

// With returns a copy of p with opts applied.
func (p Provider) With(opts ...ProviderOption) Provider {
	p.config.deps = slices.Clone(p.config.deps)
	p.config.hooks = slices.Clone(p.config.hooks)
	p.config.onInit = slices.Clone(p.config.onInit)
	p.config.onDestroy = slices.Clone(p.config.onDestroy)
	if p.config.props != nil {
		p.config.props = lo.Assign(p.config.props)
	}
	if p.config.methods != nil {
		p.config.methods = lo.Assign(p.config.methods)
	}
	for _, opt := range opts {
		opt(&p.config)
	}
	return p
}

func Deps(injections ...Injection) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.deps = append(cfg.deps, injections...)
		cfg.hasDeps = true
	}
}

// Prop injects an exported field after construction.
func Prop(field string, inj Injection) ProviderOption {
	return func(cfg *providerConfig) {
		if cfg.props == nil {
			cfg.props = make(map[string]Injection)
		}
		cfg.props[field] = inj
	}
}

// Method calls a method with injected arguments after construction.
func Method(name string, injections ...Injection) ProviderOption {
	return func(cfg *providerConfig) {
		if cfg.methods == nil {
			cfg.methods = make(map[string][]Injection)
		}
		cfg.methods[name] = injections
	}
}

func WithScope(s Scope) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.scope = s
	}
}

func When(c Constraint) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.when = c
	}
}

func WithHooks(hooks ...Hook) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
	}
}

func WithOnInit(fn LifecycleFunc) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.onInit = append(cfg.onInit, fn)
	}
}

func WithOnDestroy(fn LifecycleFunc) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.onDestroy = append(cfg.onDestroy, fn)
	}
}

// Multi adds the provider to the token's collection instead of competing
// with earlier registrations.
func Multi() ProviderOption {
	return func(cfg *providerConfig) {
		cfg.multi = true
	}
}

// compile normalizes p into a definition with a uniform factory.
func (p Provider) compile() (*definition, error) {
	if !ireflect.Comparable(p.token) {
		return nil, errInvalidProvider(p.token, errors.Errorf("token of type %T is not comparable", p.token))
	}

	cfg := p.config
	def := &definition{
		kind:      p.kind,
		scope:     cfg.scope,
		when:      cfg.when,
		hooks:     cfg.hooks,
		onInit:    cfg.onInit,
		onDestroy: cfg.onDestroy,
		values:    make(map[*Context]*contextRecord),
	}

	var err error
	switch p.kind {
	case providerClass:
		err = p.compileClass(def)
	case providerConstructor:
		err = compileConstructor(def, p.fn, cfg, nil)
	case providerFactory:
		err = compileFactory(def, p.fn, cfg)
	case providerExisting:
		err = compileExisting(def, p.targets)
	default:
		value := p.value
		def.factory = func(*Session) (any, error) { return value, nil }
	}
	if err != nil {
		return nil, errInvalidProvider(p.token, err)
	}

	if def.scope == nil {
		def.scope = DefaultScope
	}
	return def, nil
}

func (p Provider) compileClass(def *definition) error {
	if p.class == nil {
		return errors.New("class type is nil")
	}

	cfg := p.config
	d, found := lookupDefinition(p.class)
	if found {
		if def.scope == nil {
			def.scope = d.Scope
		}
		def.hooks = append(slices.Clone(d.Hooks), def.hooks...)
		if d.OnInit != nil {
			def.onInit = append([]LifecycleFunc{d.OnInit}, def.onInit...)
		}
		if d.OnDestroy != nil {
			def.onDestroy = append([]LifecycleFunc{d.OnDestroy}, def.onDestroy...)
		}
		if !cfg.hasDeps && len(d.Inject) > 0 {
			cfg.deps = d.Inject
			cfg.hasDeps = true
		}
		cfg.props = lo.Assign(d.Props, cfg.props)
		cfg.methods = lo.Assign(d.Methods, cfg.methods)
	}

	if found && d.Constructor != nil {
		return compileConstructor(def, d.Constructor, cfg, p.class)
	}

	if !ireflect.IsStructPointer(p.class) {
		return errors.Errorf("type %s has no registered definition and is not a pointer to a struct", ireflect.TypeName(p.class))
	}

	typ := p.class
	members := memberInjections(cfg)
	def.proto = typ
	def.deps = members
	def.factory = func(s *Session) (any, error) {
		v := reflect.New(typ.Elem()).Interface()
		if err := injectMembers(s, v, cfg); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil
}

func compileConstructor(def *definition, fn any, cfg providerConfig, class reflect.Type) error {
	f, err := ireflect.Inspect(fn)
	if err != nil {
		return err
	}
	if f.Out == nil {
		return errors.Errorf("constructor %s returns no value", f.Name())
	}
	if class != nil && !f.Out.AssignableTo(class) {
		return errors.Errorf("constructor %s returns %s, expected %s", f.Name(), ireflect.TypeName(f.Out), ireflect.TypeName(class))
	}

	args, err := arguments(f, cfg, KindConstructor)
	if err != nil {
		return err
	}

	if ireflect.IsStructPointer(f.Out) {
		def.proto = f.Out
	}
	def.deps = slices.Concat(args, memberInjections(cfg))
	def.factory = func(s *Session) (any, error) {
		values, err := s.injectAll(args)
		if err != nil {
			return nil, err
		}

		v, err := f.Call(s.ctx, values)
		if err != nil {
			return nil, errProviderFailed(s, err)
		}
		if err := injectMembers(s, v, cfg); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil
}

func compileFactory(def *definition, fn any, cfg providerConfig) error {
	f, err := ireflect.Inspect(fn)
	if err != nil {
		return err
	}
	if f.Out == nil {
		return errors.Errorf("factory %s returns no value", f.Name())
	}

	args, err := arguments(f, cfg, KindFactory)
	if err != nil {
		return err
	}

	// Factories own their result, so a cycle through one has no
	// placeholder to hand out.
	def.deps = args
	def.factory = func(s *Session) (any, error) {
		values, err := s.injectAll(args)
		if err != nil {
			return nil, err
		}

		v, err := f.Call(s.ctx, values)
		if err != nil {
			return nil, errProviderFailed(s, err)
		}
		return v, nil
	}
	return nil
}

func compileExisting(def *definition, targets []Token) error {
	if len(targets) == 0 {
		return errors.New("alias has no target")
	}

	def.deps = lo.Map(targets, func(t Token, _ int) Injection { return Injection{token: t} })
	if len(targets) == 1 {
		target := targets[0]
		def.factory = func(s *Session) (any, error) {
			return s.inject(s.alias(target))
		}
		return nil
	}

	def.factory = func(s *Session) (any, error) {
		values := make([]any, 0, len(targets))
		for _, target := range targets {
			v, err := s.inject(s.alias(target))
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	}
	return nil
}

// alias forwards the request options to the aliased token.
func (s *Session) alias(target Token) Injection {
	inj := s.injection
	inj.token = target
	inj.hooks = nil
	inj.self = false
	inj.skipSelf = false
	return inj
}

func arguments(f *ireflect.Func, cfg providerConfig, kind InjectionKind) ([]Injection, error) {
	if !cfg.hasDeps {
		return injectionsFor(f.Params, kind), nil
	}
	if len(cfg.deps) != len(f.Params) {
		return nil, errors.Errorf("%s takes %d arguments, %d injections given", f.Name(), len(f.Params), len(cfg.deps))
	}
	return withKind(cfg.deps, kind), nil
}

func memberInjections(cfg providerConfig) []Injection {
	var out []Injection
	for _, name := range sortedKeys(cfg.props) {
		inj := cfg.props[name]
		inj.kind = KindProperty
		inj.target = name
		out = append(out, inj)
	}
	for _, name := range sortedKeys(cfg.methods) {
		for _, inj := range cfg.methods[name] {
			inj.kind = KindMethod
			inj.target = name
			out = append(out, inj)
		}
	}
	return out
}

func injectMembers(s *Session, v any, cfg providerConfig) error {
	if len(cfg.props) == 0 && len(cfg.methods) == 0 {
		return nil
	}

	for _, name := range sortedKeys(cfg.props) {
		inj := cfg.props[name]
		inj.kind = KindProperty
		inj.target = name

		value, err := s.inject(inj)
		if err != nil {
			return err
		}
		if err := ireflect.SetField(v, name, value); err != nil {
			return errInvalidProvider(s.Token, err)
		}
	}

	for _, name := range sortedKeys(cfg.methods) {
		m, err := ireflect.Method(v, name)
		if err != nil {
			return errInvalidProvider(s.Token, err)
		}

		args := withKind(cfg.methods[name], KindMethod)
		if len(args) != len(m.Params) {
			return errInvalidProvider(s.Token, errors.Errorf("method %s takes %d arguments, %d injections given", name, len(m.Params), len(args)))
		}

		values, err := s.injectAll(args)
		if err != nil {
			return err
		}
		if _, err := m.Call(s.ctx, values); err != nil {
			return errProviderFailed(s, err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

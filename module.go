package adi

import (
	"context"
	"slices"
)

type ModuleType uint8

const (
	// Shared modules get one injector per injector tree.
	Shared ModuleType = iota
	// Domain modules get a fresh child injector at every import site.
	Domain
	// Inline modules are folded into the importing injector.
	Inline
)

func (t ModuleType) String() string {
	switch t {
	case Domain:
		return "domain"
	case Inline:
		return "inline"
	default:
		return "shared"
	}
}

// ModuleFunc produces a module while the importer is being compiled.
type ModuleFunc func(ctx context.Context) (*Module, error)

// ModuleInitializers collects values that are resolved, and called when
// they are func(context.Context) error, once an injector is compiled.
var ModuleInitializers = NewToken("adi.ModuleInitializers", TokenMulti())

// Module groups providers and decides which of them importers can see.
// Modules are compared by identity.
type Module struct {
	name       string
	typ        ModuleType
	imports    []any
	providers  []Provider
	components []Provider
	exports    []any
	root       *Provider
}

func NewModule(name string) *Module {
	return &Module{name: name}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Type() ModuleType {
	return m.typ
}

func (m *Module) As(t ModuleType) *Module {
	m.typ = t
	return m
}

// Import adds imports: a *Module, a ModuleFunc or an Awaitable yielding a
// *Module.
func (m *Module) Import(imports ...any) *Module {
	m.imports = append(m.imports, imports...)
	return m
}

func (m *Module) Provide(providers ...Provider) *Module {
	m.providers = append(m.providers, providers...)
	return m
}

func (m *Module) Component(components ...Provider) *Module {
	m.components = append(m.components, components...)
	return m
}

// Export makes tokens visible to importers. Accepts tokens, providers
// (registered and exported) and imported modules (re-exported).
func (m *Module) Export(exports ...any) *Module {
	m.exports = append(m.exports, exports...)
	return m
}

// Root sets the module's own object, constructed by fn when the module
// is initialized.
func (m *Module) Root(fn any, opts ...ProviderOption) *Module {
	p := Constructor(m, fn, opts...)
	m.root = &p
	return m
}

func (m *Module) exportsToken(token Token) bool {
	return slices.ContainsFunc(m.exports, func(e any) bool {
		if p, ok := e.(Provider); ok {
			return p.token == token
		}
		if _, ok := e.(*Module); ok {
			return false
		}
		return e == token
	})
}

func (m *Module) reexports(sub *Module) bool {
	if sub == nil {
		return false
	}
	return slices.ContainsFunc(m.exports, func(e any) bool {
		em, ok := e.(*Module)
		return ok && em == sub
	})
}

func (m *Module) exportedTokens() []Token {
	var tokens []Token
	for _, e := range m.exports {
		switch v := e.(type) {
		case *Module:
		case Provider:
			tokens = append(tokens, v.token)
		default:
			tokens = append(tokens, v)
		}
	}
	return tokens
}

func (m *Module) exportedProviders() []Provider {
	var providers []Provider
	for _, e := range m.exports {
		if p, ok := e.(Provider); ok {
			providers = append(providers, p)
		}
	}
	return providers
}

package adi

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// compiler turns a module tree into an injector tree. Imports are
// processed depth first; injectors are initialized deepest first.
type compiler struct {
	ctx    context.Context
	stack  []*Module
	order  []*Injector
	inline []inlineSite
}

type inlineSite struct {
	injector *Injector
	module   *Module
}

// Compile builds the injector tree of the injector's module and runs
// module initialization. Compiling twice is a no-op. A failed compile is
// final: the partially built tree is kept for inspection and every later
// call returns the same error.
func (in *Injector) Compile(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	in.mu.Lock()
	switch in.state {
	case stateDestroyed:
		in.mu.Unlock()
		return errInjectorDestroyed(in)
	case stateFailed:
		err := in.compileErr
		in.mu.Unlock()
		return err
	case stateCompiling, stateCompiled:
		in.mu.Unlock()
		return nil
	}
	in.state = stateCompiling
	in.mu.Unlock()

	c := &compiler{ctx: ctx}
	err := c.compile(in)
	if err == nil && in.config.validate {
		err = in.Validate()
	}

	in.mu.Lock()
	if err != nil {
		in.state = stateFailed
		in.compileErr = err
	} else {
		in.state = stateCompiled
	}
	in.mu.Unlock()

	if err != nil {
		in.logger.Debug("injector compile failed", "injector", in.name, "error", err)
		return err
	}

	in.logger.Debug("injector compiled", "injector", in.name, "injectors", len(c.order))
	return nil
}

func (c *compiler) compile(in *Injector) error {
	if in.module != nil {
		if err := c.build(in, in.module); err != nil {
			return err
		}
	}
	c.order = append(c.order, in)

	for _, injector := range c.order {
		if err := injector.initialize(c.ctx); err != nil {
			return err
		}
	}
	for _, site := range c.inline {
		if _, err := site.injector.ResolveComponent(c.ctx, site.module); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) build(in *Injector, m *Module) error {
	if idx := slices.Index(c.stack, m); idx >= 0 {
		cycle := append(lo.Map(c.stack[idx:], func(x *Module, _ int) string { return x.Name() }), m.Name())
		return errModuleComposition(m, "cyclic import "+strings.Join(cycle, " -> "), nil)
	}
	c.stack = append(c.stack, m)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	for _, imp := range m.imports {
		sub, err := c.load(m, imp)
		if err != nil {
			return err
		}
		if err := c.importModule(in, sub); err != nil {
			return err
		}
	}

	if err := in.Provide(m.providers...); err != nil {
		return errModuleComposition(m, "invalid provider", err)
	}
	if err := in.Provide(m.exportedProviders()...); err != nil {
		return errModuleComposition(m, "invalid exported provider", err)
	}
	if err := in.AddComponents(m.components...); err != nil {
		return errModuleComposition(m, "invalid component", err)
	}
	if m.root != nil {
		if err := in.AddComponents(*m.root); err != nil {
			return errModuleComposition(m, "invalid root", err)
		}
	}
	return nil
}

func (c *compiler) load(m *Module, imp any) (*Module, error) {
	var (
		sub *Module
		err error
	)

	switch v := imp.(type) {
	case *Module:
		sub = v
	case ModuleFunc:
		sub, err = v(c.ctx)
	case func(context.Context) (*Module, error):
		sub, err = v(c.ctx)
	case Awaitable:
		var out any
		if out, err = v.Await(c.ctx); err == nil {
			var ok bool
			if sub, ok = out.(*Module); !ok {
				return nil, errModuleComposition(m, fmt.Sprintf("awaited import yielded %T, expected *Module", out), nil)
			}
		}
	default:
		return nil, errModuleComposition(m, fmt.Sprintf("unsupported import %T", imp), nil)
	}

	if err != nil {
		return nil, errModuleComposition(m, "dynamic import failed", err)
	}
	if sub == nil {
		return nil, errModuleComposition(m, "import resolved to nil module", nil)
	}
	return sub, nil
}

func (c *compiler) importModule(in *Injector, sub *Module) error {
	switch sub.typ {
	case Inline:
		if slices.Contains(c.stack, sub) {
			return c.build(in, sub)
		}

		in.mu.Lock()
		done := in.inlined[sub]
		in.inlined[sub] = true
		in.mu.Unlock()
		if done {
			return nil
		}

		if err := c.build(in, sub); err != nil {
			return err
		}
		if sub.root != nil {
			c.inline = append(c.inline, inlineSite{injector: in, module: sub})
		}
		in.logger.Debug("module inlined", "injector", in.name, "module", sub.Name())
		return nil

	case Domain:
		subIn := in.child(in, sub)
		if err := c.compileChild(subIn, sub); err != nil {
			return err
		}
		return c.link(in, sub, subIn)

	default:
		root := in.root
		subIn, created := root.shared.GetOrCreate(sub, func() *Injector { return in.child(root, sub) })
		if created {
			if err := c.compileChild(subIn, sub); err != nil {
				return err
			}
		} else if slices.Contains(c.stack, sub) {
			return c.build(subIn, sub)
		}
		return c.link(in, sub, subIn)
	}
}

func (c *compiler) compileChild(in *Injector, m *Module) error {
	in.mu.Lock()
	in.state = stateCompiling
	in.mu.Unlock()

	if err := c.build(in, m); err != nil {
		return err
	}
	c.order = append(c.order, in)

	in.mu.Lock()
	in.state = stateCompiled
	in.mu.Unlock()

	in.logger.Debug("module imported", "injector", in.name, "module", m.Name(), "type", m.typ.String())
	return nil
}

func (c *compiler) link(in *Injector, sub *Module, subIn *Injector) error {
	subIn.mu.Lock()
	subIn.importers = append(subIn.importers, in)
	subIn.mu.Unlock()

	in.mu.Lock()
	in.imports[sub] = subIn
	in.mu.Unlock()

	return exportInto(in, sub, subIn)
}

// exportInto copies the records sub exports from subIn into the imported
// table of in, following re-exported modules.
func exportInto(in *Injector, sub *Module, subIn *Injector) error {
	for _, token := range sub.exportedTokens() {
		rec, ok := subIn.records.Get(token)
		if !ok {
			rec, ok = subIn.imported.Get(token)
		}
		if !ok {
			if p, _ := provided(token); p != nil {
				continue
			}
			return errModuleComposition(sub, fmt.Sprintf("exports unknown token %s", tokenName(token)), nil)
		}
		in.imported.Register(token, rec)
	}

	for _, e := range sub.exports {
		re, ok := e.(*Module)
		if !ok {
			continue
		}

		subIn.mu.RLock()
		reIn, imported := subIn.imports[re]
		inlined := subIn.inlined[re]
		subIn.mu.RUnlock()

		switch {
		case imported:
			if err := exportInto(in, re, reIn); err != nil {
				return err
			}
		case inlined:
			if err := exportInto(in, re, subIn); err != nil {
				return err
			}
		default:
			return errModuleComposition(sub, fmt.Sprintf("re-exports module %s it does not import", re.Name()), nil)
		}
	}
	return nil
}

func (in *Injector) initialize(ctx context.Context) error {
	if in.module != nil && in.module.root != nil {
		if _, err := in.ResolveComponent(ctx, in.module); err != nil {
			return err
		}
	}

	if !in.records.Has(ModuleInitializers) {
		return nil
	}

	v, err := in.Resolve(ctx, ModuleInitializers, Self())
	if err != nil {
		return err
	}
	for _, item := range v.([]any) {
		if fn, ok := item.(func(context.Context) error); ok {
			if err := fn(ctx); err != nil {
				return errHookFailed(ModuleInitializers, "module initializer", err)
			}
		}
	}
	return nil
}

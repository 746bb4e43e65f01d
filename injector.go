package adi

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magicmatatjahu/adi/internal/container"
)

type injectorState uint8

const (
	stateCreated injectorState = iota
	stateCompiling
	stateCompiled
	stateFailed
	stateDestroyed
)

// Injector is a node of the injector tree. It owns the records registered
// in it, sees the records exported by the modules it imports and falls
// back to its parent for everything else.
type Injector struct {
	id     uuid.UUID
	name   string
	parent *Injector
	root   *Injector
	module *Module
	config *injectorConfig
	logger *slog.Logger

	records    *container.Registry[Token, *Record]
	imported   *container.Registry[Token, *Record]
	components *container.Registry[Token, *Record]
	shared     *container.Registry[*Module, *Injector]

	mu         sync.RWMutex
	state      injectorState
	compileErr error
	imports   map[*Module]*Injector
	importers []*Injector
	children  []*Injector
	inlined   map[*Module]bool

	createdMu sync.Mutex
	created   []*contextRecord
}

// Create builds an injector from a *Module, a Provider or a []Provider.
// Module based injectors must be compiled before use; Bootstrap does both.
func Create(input any, opts ...Option) (*Injector, error) {
	cfg := newConfig(opts)
	in := newInjector(cfg.name, cfg.parent, cfg)

	switch v := input.(type) {
	case nil:
	case *Module:
		in.module = v
		if in.name == "" {
			in.name = v.Name()
		}
	case Provider:
		if err := in.Provide(v); err != nil {
			return nil, err
		}
	case []Provider:
		if err := in.Provide(v...); err != nil {
			return nil, err
		}
	default:
		return nil, newError(ErrCodeInvalidProvider, fmt.Sprintf("cannot create injector from %T", input), nil)
	}

	if in.name == "" {
		in.name = in.id.String()
	}
	in.logger.Debug("injector created", "injector", in.name)
	return in, nil
}

// Bootstrap creates and compiles an injector.
func Bootstrap(ctx context.Context, input any, opts ...Option) (*Injector, error) {
	in, err := Create(input, opts...)
	if err != nil {
		return nil, err
	}
	if err := in.Compile(ctx); err != nil {
		return nil, err
	}
	return in, nil
}

func newInjector(name string, parent *Injector, cfg *injectorConfig) *Injector {
	in := &Injector{
		id:         uuid.New(),
		name:       name,
		parent:     parent,
		config:     cfg,
		records:    container.NewRegistry[Token, *Record](),
		imported:   container.NewRegistry[Token, *Record](),
		components: container.NewRegistry[Token, *Record](),
		imports:    make(map[*Module]*Injector),
		inlined:    make(map[*Module]bool),
	}

	switch {
	case cfg.logger != nil:
		in.logger = cfg.logger
	case parent != nil:
		in.logger = parent.logger
	default:
		in.logger = slog.Default()
	}

	if parent == nil {
		in.root = in
		in.shared = container.NewRegistry[*Module, *Injector]()
	} else {
		in.root = parent.root
		parent.adopt(in)
	}
	return in
}

// child creates the injector of an imported module.
func (in *Injector) child(parent *Injector, m *Module) *Injector {
	cfg := &injectorConfig{
		name:      m.Name(),
		onResolve: in.config.onResolve,
		onProvide: in.config.onProvide,
	}
	child := newInjector(m.Name(), parent, cfg)
	child.module = m
	return child
}

func (in *Injector) adopt(child *Injector) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.children = append(in.children, child)
}

func (in *Injector) ID() uuid.UUID {
	return in.id
}

func (in *Injector) Name() string {
	return in.name
}

func (in *Injector) Parent() *Injector {
	return in.parent
}

func (in *Injector) Module() *Module {
	return in.module
}

func (in *Injector) Logger() *slog.Logger {
	return in.logger
}

func (in *Injector) isDestroyed() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()

	return in.state == stateDestroyed
}

// Provide registers providers in this injector. Registering a token again
// adds a candidate; without constraints the last registration wins.
func (in *Injector) Provide(providers ...Provider) error {
	return in.register(in.records, providers)
}

// AddComponents registers providers that are only reachable through
// ResolveComponent.
func (in *Injector) AddComponents(components ...Provider) error {
	return in.register(in.components, components)
}

func (in *Injector) register(table *container.Registry[Token, *Record], providers []Provider) error {
	if in.isDestroyed() {
		return errInjectorDestroyed(in)
	}

	for _, p := range providers {
		def, err := p.compile()
		if err != nil {
			return err
		}

		rec, _ := table.GetOrCreate(p.token, func() *Record { return newRecord(p.token, in) })
		rec.add(def, p.config.multi)

		in.logger.Debug("provider registered",
			"injector", in.name, "token", tokenName(p.token), "kind", p.kind.String(), "scope", def.scope.Name())
		in.observeProvide(p.token)
	}
	return nil
}

// Resolve resolves token, waiting for asynchronous providers.
func (in *Injector) Resolve(ctx context.Context, token Token, opts ...InjectionOption) (any, error) {
	start := time.Now()
	v, err := in.resolve(ctx, Inject(token, opts...), nil, false)
	in.observeResolve(token, time.Since(start), err)
	return v, err
}

// ResolveSync resolves token without waiting. It fails with
// ErrAsyncInSync when any provider in the graph yields an Awaitable.
func (in *Injector) ResolveSync(token Token, opts ...InjectionOption) (any, error) {
	start := time.Now()
	v, err := in.resolve(context.Background(), Inject(token, opts...), nil, true)
	in.observeResolve(token, time.Since(start), err)
	return v, err
}

// ResolveComponent resolves an entry of the component table.
func (in *Injector) ResolveComponent(ctx context.Context, token Token, opts ...InjectionOption) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newSession(ctx, in, Inject(token, opts...), nil, false)

	rec, ok := in.components.Get(token)
	if !ok {
		return nil, errMissingProvider(s)
	}
	def := rec.find(s)
	if def == nil {
		return nil, errMissingProvider(s)
	}

	s.bind(rec, def)
	return resolveDefinition(s)
}

// Has reports whether token can be resolved from this injector without
// constructing anything.
func (in *Injector) Has(token Token) bool {
	for cur := in; cur != nil; cur = cur.parent {
		if cur.records.Has(token) || cur.imported.Has(token) {
			return true
		}
		if p, labels := provided(token); p != nil && cur.matches(labels) {
			return true
		}
	}
	return false
}

func (in *Injector) recordFor(token Token) (*Record, error) {
	if rec, ok := in.records.Get(token); ok {
		return rec, nil
	}
	if rec, ok := in.imported.Get(token); ok {
		return rec, nil
	}

	p, labels := provided(token)
	if p == nil || !in.matches(labels) {
		return nil, nil
	}
	return in.materialize(p)
}

// materialize registers the default provider of a ProvidedIn token the
// first time it is requested here.
func (in *Injector) materialize(p *Provider) (*Record, error) {
	def, err := p.compile()
	if err != nil {
		return nil, err
	}

	rec, created := in.records.GetOrCreate(p.token, func() *Record {
		rec := newRecord(p.token, in)
		rec.add(def, p.config.multi)
		return rec
	})
	if created {
		in.logger.Debug("record materialized", "injector", in.name, "token", tokenName(p.token))
		in.observeProvide(p.token)
		in.propagate(p.token, rec)
	}
	return rec, nil
}

func (in *Injector) matches(labels []any) bool {
	return slices.ContainsFunc(labels, func(label any) bool {
		switch l := label.(type) {
		case *Injector:
			return l == in
		case *Module:
			return l == in.module
		case string:
			switch l {
			case "any":
				return true
			case "core":
				return in.parent == nil
			}
		}
		return slices.Contains(in.config.labels, label)
	})
}

// propagate publishes a lazily materialized record to the importers of
// this injector when its module exports the token.
func (in *Injector) propagate(token Token, rec *Record) {
	if in.module == nil || !in.module.exportsToken(token) {
		return
	}
	in.publish(token, rec)
}

func (in *Injector) publish(token Token, rec *Record) {
	in.mu.RLock()
	importers := slices.Clone(in.importers)
	in.mu.RUnlock()

	for _, imp := range importers {
		imp.imported.Register(token, rec)
		if imp.module != nil && imp.module.reexports(in.module) {
			imp.publish(token, rec)
		}
	}
}

// Destroy runs OnDestroy hooks of every cached value, children first and
// then in reverse construction order. The injector is unusable afterwards.
func (in *Injector) Destroy(ctx context.Context) error {
	in.mu.Lock()
	if in.state == stateDestroyed {
		in.mu.Unlock()
		return nil
	}
	in.state = stateDestroyed
	children := slices.Clone(in.children)
	in.mu.Unlock()

	var first error
	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Destroy(ctx); err != nil && first == nil {
			first = err
		}
	}
	if err := in.destroyValues(ctx); err != nil && first == nil {
		first = err
	}

	if in.root == in {
		in.shared.Clear()
	} else if in.module != nil {
		if shared, ok := in.root.shared.Get(in.module); ok && shared == in {
			in.root.shared.Remove(in.module)
		}
	}

	in.logger.Debug("injector destroyed", "injector", in.name)
	return first
}

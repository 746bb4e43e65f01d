package adi_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicmatatjahu/adi"
)

type Config struct {
	Port int
	Host string
}

type Database struct {
	Config *Config
	Name   string
}

type Server struct {
	DB     *Database
	Config *Config
}

type Handler struct {
	DB     *Database
	config *Config
}

func (h *Handler) SetConfig(c *Config) {
	h.config = c
}

func newConfig() *Config {
	return &Config{Port: 8080, Host: "localhost"}
}

func newDatabase(c *Config) *Database {
	return &Database{Config: c, Name: "main"}
}

func newServer(db *Database, c *Config) *Server {
	return &Server{DB: db, Config: c}
}

func appProviders() []adi.Provider {
	return []adi.Provider{
		adi.Constructor(adi.TypeOf[*Config](), newConfig),
		adi.Constructor(adi.TypeOf[*Database](), newDatabase),
		adi.Constructor(adi.TypeOf[*Server](), newServer),
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(nil, adi.WithName("empty"))
	require.NoError(t, err)
	assert.Equal(t, "empty", in.Name())
	assert.Nil(t, in.Parent())

	anonymous, err := adi.Create(nil)
	require.NoError(t, err)
	assert.Equal(t, anonymous.ID().String(), anonymous.Name())
}

func TestCreateRejectsUnknownInput(t *testing.T) {
	t.Parallel()

	_, err := adi.Create(42)
	assert.True(t, adi.IsInvalidProvider(err))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(appProviders())
	require.NoError(t, err)

	srv, err := adi.Invoke[*Server](t.Context(), in)
	require.NoError(t, err)

	assert.Equal(t, 8080, srv.Config.Port)
	assert.Equal(t, "main", srv.DB.Name)
	assert.Same(t, srv.Config, srv.DB.Config)
}

func TestResolveCachesInDefaultScope(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(appProviders())
	require.NoError(t, err)

	first := adi.MustInvoke[*Database](t.Context(), in)
	second := adi.MustInvoke[*Database](t.Context(), in)
	assert.Same(t, first, second)
}

func TestResolveSyncMatchesAsync(t *testing.T) {
	t.Parallel()

	syncIn, err := adi.Create(appProviders())
	require.NoError(t, err)
	asyncIn, err := adi.Create(appProviders())
	require.NoError(t, err)

	syncSrv, err := adi.InvokeSync[*Server](syncIn)
	require.NoError(t, err)
	asyncSrv, err := adi.Invoke[*Server](t.Context(), asyncIn)
	require.NoError(t, err)

	assert.NotSame(t, syncSrv, asyncSrv)
	assert.Equal(t, syncSrv.Config.Port, asyncSrv.Config.Port)
	assert.Equal(t, syncSrv.DB.Name, asyncSrv.DB.Name)
	assert.Same(t, syncSrv.Config, syncSrv.DB.Config)
	assert.Same(t, asyncSrv.Config, asyncSrv.DB.Config)

	assert.Same(t, syncSrv, adi.MustInvoke[*Server](t.Context(), syncIn))
	again, err := adi.InvokeSync[*Server](asyncIn)
	require.NoError(t, err)
	assert.Same(t, asyncSrv, again)
}

func TestAsyncFactory(t *testing.T) {
	t.Parallel()

	in, err := adi.Create([]adi.Provider{
		adi.Factory("remote", func(ctx context.Context) *adi.Future {
			return adi.Async(ctx, func(ctx context.Context) (any, error) {
				time.Sleep(5 * time.Millisecond)
				return "loaded", nil
			})
		}),
	})
	require.NoError(t, err)

	_, err = in.ResolveSync("remote")
	require.Error(t, err)
	assert.True(t, adi.IsAsyncInSync(err))

	v, err := in.Resolve(t.Context(), "remote")
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)

	v, err = in.ResolveSync("remote")
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
}

func TestAsyncFactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("unreachable")
	in, err := adi.Create(adi.Factory("remote", func(ctx context.Context) *adi.Future {
		return adi.Async(ctx, func(context.Context) (any, error) { return nil, boom })
	}))
	require.NoError(t, err)

	_, err = in.Resolve(t.Context(), "remote")
	require.Error(t, err)
	assert.True(t, adi.IsProviderFailed(err))
	assert.ErrorIs(t, err, boom)
}

func TestAsyncDependency(t *testing.T) {
	t.Parallel()

	in, err := adi.Create([]adi.Provider{
		adi.Factory(adi.TypeOf[*Config](), func() *adi.Future {
			return adi.Resolved(&Config{Port: 9000})
		}),
		adi.Constructor(adi.TypeOf[*Database](), newDatabase),
	})
	require.NoError(t, err)

	db, err := adi.Invoke[*Database](t.Context(), in)
	require.NoError(t, err)
	assert.Equal(t, 9000, db.Config.Port)
}

func TestLastRegistrationWins(t *testing.T) {
	t.Parallel()

	in, err := adi.Create([]adi.Provider{
		adi.Value("greeting", "hello"),
		adi.Value("greeting", "hi"),
	})
	require.NoError(t, err)

	v, err := adi.InvokeToken[string](t.Context(), in, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestMultiProviders(t *testing.T) {
	t.Parallel()

	plugins := adi.NewToken("plugins", adi.TokenMulti())

	in, err := adi.Create([]adi.Provider{
		adi.Value(plugins, "auth"),
		adi.Value(plugins, "metrics"),
		adi.Value("extra", "a", adi.Multi()),
		adi.Value("extra", "b", adi.Multi()),
		adi.Constructor("names", func(names []string) string {
			return names[0] + "+" + names[1]
		}, adi.Deps(adi.Inject(plugins))),
	})
	require.NoError(t, err)

	v, err := in.Resolve(t.Context(), plugins)
	require.NoError(t, err)
	assert.Equal(t, []any{"auth", "metrics"}, v)

	v, err = in.Resolve(t.Context(), "extra")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)

	joined, err := adi.InvokeToken[string](t.Context(), in, "names")
	require.NoError(t, err)
	assert.Equal(t, "auth+metrics", joined)
}

func TestConstraints(t *testing.T) {
	t.Parallel()

	in, err := adi.Create([]adi.Provider{
		adi.Value("dsn", "primary"),
		adi.Value("dsn", "replica", adi.When(adi.WhenNamed("replica"))),
		adi.Value("dsn", "eu", adi.When(adi.WhenTagged("region", "eu"))),
		adi.Value("dsn", "reporting", adi.When(adi.WhenInjectedInto("report"))),
		adi.Constructor("report", func(dsn string) string { return "report@" + dsn },
			adi.Deps(adi.Inject("dsn"))),
	})
	require.NoError(t, err)

	ctx := t.Context()
	tests := []struct {
		name string
		opts []adi.InjectionOption
		want string
	}{
		{name: "unconstrained", want: "primary"},
		{name: "named", opts: []adi.InjectionOption{adi.Named("replica")}, want: "replica"},
		{name: "tagged", opts: []adi.InjectionOption{adi.Tagged("region", "eu")}, want: "eu"},
		{name: "unmatched tag", opts: []adi.InjectionOption{adi.Tagged("region", "us")}, want: "primary"},
	}

	for _, tt := range tests {
		v, err := in.Resolve(ctx, "dsn", tt.opts...)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, v, tt.name)
	}

	report, err := in.Resolve(ctx, "report")
	require.NoError(t, err)
	assert.Equal(t, "report@reporting", report)
}

func TestConstraintCombinators(t *testing.T) {
	t.Parallel()

	in, err := adi.Create([]adi.Provider{
		adi.Value("level", "default"),
		adi.Value("level", "both", adi.When(adi.And(adi.WhenNamed("x"), adi.WhenTagged("env", "prod")))),
		adi.Value("level", "either", adi.When(adi.Or(adi.WhenNamed("y"), adi.WhenNamed("z")))),
	})
	require.NoError(t, err)

	ctx := t.Context()

	v, err := in.Resolve(ctx, "level", adi.Named("x"), adi.Tagged("env", "prod"))
	require.NoError(t, err)
	assert.Equal(t, "both", v)

	v, err = in.Resolve(ctx, "level", adi.Named("x"))
	require.NoError(t, err)
	assert.Equal(t, "default", v)

	v, err = in.Resolve(ctx, "level", adi.Named("z"))
	require.NoError(t, err)
	assert.Equal(t, "either", v)

	notNamed := adi.Not(adi.WhenNamed("x"))
	assert.NotNil(t, notNamed)
}

func TestProvidedIn(t *testing.T) {
	t.Parallel()

	anywhere := adi.NewToken("anywhere", adi.ProvidedIn("any"), adi.TokenValue(42))
	core := adi.NewToken("core", adi.ProvidedIn("core"), adi.TokenFactory(newConfig))
	labeled := adi.NewToken("labeled", adi.ProvidedIn("http"), adi.TokenValue("http-only"))

	root, err := adi.Create(nil)
	require.NoError(t, err)
	child, err := adi.Create(nil, adi.WithParent(root), adi.WithLabels("http"))
	require.NoError(t, err)

	ctx := t.Context()

	v, err := child.Resolve(ctx, anywhere)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, child.Has(anywhere))

	fromChild, err := child.Resolve(ctx, core)
	require.NoError(t, err)
	fromRoot, err := root.Resolve(ctx, core)
	require.NoError(t, err)
	assert.Same(t, fromRoot, fromChild)

	v, err = child.Resolve(ctx, labeled)
	require.NoError(t, err)
	assert.Equal(t, "http-only", v)

	_, err = root.Resolve(ctx, labeled)
	assert.True(t, adi.IsMissingProvider(err))
}

type Clock struct {
	Zone string
}

func TestProvidedInDefinition(t *testing.T) {
	t.Parallel()

	adi.Injectable[*Clock](adi.Definition{
		Constructor: func() *Clock { return &Clock{Zone: "UTC"} },
		ProvidedIn:  []any{"any"},
		Scope:       adi.SingletonScope,
	})

	in, err := adi.Create(nil)
	require.NoError(t, err)

	assert.True(t, adi.Has[*Clock](in))

	clock, err := adi.Invoke[*Clock](t.Context(), in)
	require.NoError(t, err)
	assert.Equal(t, "UTC", clock.Zone)
}

type Introspect struct {
	Injector *adi.Injector
	Token    adi.Token
	Context  *adi.Context
}

func TestSpecialTokens(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(adi.Constructor(adi.TypeOf[*Introspect](),
		func(in *adi.Injector, s *adi.Session, c *adi.Context) *Introspect {
			return &Introspect{Injector: in, Token: s.Token, Context: c}
		},
	))
	require.NoError(t, err)

	v, err := adi.Invoke[*Introspect](t.Context(), in)
	require.NoError(t, err)

	assert.Same(t, in, v.Injector)
	assert.Equal(t, adi.TypeOf[*Introspect](), v.Token)
	assert.Same(t, adi.StaticContext, v.Context)

	self, err := in.Resolve(t.Context(), adi.InjectorToken)
	require.NoError(t, err)
	assert.Same(t, in, self)
}

func TestParentFallback(t *testing.T) {
	t.Parallel()

	parent, err := adi.Create([]adi.Provider{
		adi.Value("name", "parent"),
		adi.Value("only-parent", true),
	})
	require.NoError(t, err)

	child, err := adi.Create(adi.Value("name", "child"), adi.WithParent(parent))
	require.NoError(t, err)
	assert.Same(t, parent, child.Parent())

	ctx := t.Context()

	v, err := child.Resolve(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "child", v)

	v, err = child.Resolve(ctx, "name", adi.SkipSelf())
	require.NoError(t, err)
	assert.Equal(t, "parent", v)

	v, err = child.Resolve(ctx, "only-parent")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = child.Resolve(ctx, "only-parent", adi.Self())
	assert.True(t, adi.IsMissingProvider(err))
}

func TestOptionalAndDefault(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(nil)
	require.NoError(t, err)

	ctx := t.Context()

	v, err := in.Resolve(ctx, "missing", adi.Optional())
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = in.Resolve(ctx, "missing", adi.Default("fallback"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)

	_, err = in.Resolve(ctx, "missing")
	require.Error(t, err)
	assert.True(t, adi.IsMissingProvider(err))
	assert.ErrorIs(t, err, adi.ErrMissingProvider)
	assert.Contains(t, err.Error(), `token="missing"`)
}

func TestOptionalConstructorArgument(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(adi.Constructor(adi.TypeOf[*Database](), newDatabase,
		adi.Deps(adi.Inject(adi.TypeOf[*Config](), adi.Optional())),
	))
	require.NoError(t, err)

	db, err := adi.Invoke[*Database](t.Context(), in)
	require.NoError(t, err)
	assert.Nil(t, db.Config)
}

func TestMissingDependencyPath(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(adi.Constructor(adi.TypeOf[*Database](), newDatabase))
	require.NoError(t, err)

	_, err = adi.Invoke[*Database](t.Context(), in)
	require.Error(t, err)

	var e *adi.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, adi.ErrCodeMissingProvider, e.Code)
	assert.Len(t, e.Path, 2)
	assert.Contains(t, err.Error(), "->")
}

func TestNewInstance(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(appProviders())
	require.NoError(t, err)

	ctx := t.Context()
	cached := adi.MustInvoke[*Config](ctx, in)

	fresh, err := adi.Invoke[*Config](ctx, in, adi.NewInstance())
	require.NoError(t, err)
	another, err := adi.Invoke[*Config](ctx, in, adi.NewInstance())
	require.NoError(t, err)

	assert.NotSame(t, cached, fresh)
	assert.NotSame(t, fresh, another)
}

func TestInContext(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(appProviders())
	require.NoError(t, err)

	ctx := t.Context()
	request := adi.NewContext("request")

	first, err := adi.Invoke[*Config](ctx, in, adi.InContext(request))
	require.NoError(t, err)
	second, err := adi.Invoke[*Config](ctx, in, adi.InContext(request))
	require.NoError(t, err)
	static := adi.MustInvoke[*Config](ctx, in)

	assert.Same(t, first, second)
	assert.NotSame(t, first, static)
	assert.Equal(t, "request", request.Name())
}

func TestPropertiesAndMethods(t *testing.T) {
	t.Parallel()

	handler := adi.TypeOf[*Handler]()
	in, err := adi.Create(append(appProviders(),
		adi.Class(handler, handler,
			adi.Prop("DB", adi.Inject(adi.TypeOf[*Database]())),
			adi.Method("SetConfig", adi.Inject(adi.TypeOf[*Config]())),
		),
	))
	require.NoError(t, err)

	h, err := adi.Invoke[*Handler](t.Context(), in)
	require.NoError(t, err)

	require.NotNil(t, h.DB)
	assert.Same(t, h.DB.Config, h.config)
}

func TestInjectableDefinition(t *testing.T) {
	t.Parallel()

	type Repository struct {
		DB *Database
	}

	adi.Injectable[*Repository](adi.Definition{
		Props: map[string]adi.Injection{
			"DB": adi.Inject(adi.TypeOf[*Database]()),
		},
		Scope: adi.TransientScope,
	})

	in, err := adi.Create(append(appProviders(), adi.Type[*Repository]()))
	require.NoError(t, err)

	first := adi.MustInvoke[*Repository](t.Context(), in)
	second := adi.MustInvoke[*Repository](t.Context(), in)

	assert.NotSame(t, first, second)
	assert.Same(t, first.DB, second.DB)
}

func TestExistingAlias(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(append(appProviders(),
		adi.Existing("config", adi.TypeOf[*Config]()),
		adi.ExistingAll("all", []adi.Token{adi.TypeOf[*Config](), adi.TypeOf[*Database]()}),
	))
	require.NoError(t, err)

	ctx := t.Context()
	cfg := adi.MustInvoke[*Config](ctx, in)

	alias, err := adi.InvokeToken[*Config](ctx, in, "config")
	require.NoError(t, err)
	assert.Same(t, cfg, alias)

	all, err := adi.InvokeToken[[]any](ctx, in, "all")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Same(t, cfg, all[0])
}

func TestProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	in, err := adi.Create([]adi.Provider{
		adi.Constructor(adi.TypeOf[*Config](), newConfig),
		adi.Constructor(adi.TypeOf[*Database](), func(*Config) (*Database, error) {
			return nil, boom
		}),
		adi.Constructor(adi.TypeOf[*Server](), newServer),
	})
	require.NoError(t, err)

	_, err = adi.Invoke[*Server](t.Context(), in)
	require.Error(t, err)
	assert.True(t, adi.IsProviderFailed(err))
	assert.ErrorIs(t, err, boom)
}

func TestInvalidProviders(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		provider adi.Provider
	}{
		{name: "uncomparable token", provider: adi.Value([]string{"a"}, 1)},
		{name: "not a function", provider: adi.Constructor("x", 42)},
		{name: "no result", provider: adi.Factory("x", func() {})},
		{name: "wrong deps count", provider: adi.Constructor("x", newDatabase, adi.Deps())},
		{name: "class of non struct", provider: adi.Class("x", adi.TypeOf[int]())},
		{name: "alias without target", provider: adi.ExistingAll("x", nil)},
	}

	for _, tt := range tests {
		err := in.Provide(tt.provider)
		assert.True(t, adi.IsInvalidProvider(err), tt.name)
	}
}

func TestInvokeTypeMismatch(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(adi.Value("port", "8080"))
	require.NoError(t, err)

	_, err = adi.InvokeToken[int](t.Context(), in, "port")
	assert.True(t, adi.IsInvalidProvider(err))
}

func TestInvokeOptional(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(adi.Constructor(adi.TypeOf[*Config](), newConfig))
	require.NoError(t, err)

	ctx := t.Context()

	cfg, err := adi.InvokeOptional[*Config](ctx, in)
	require.NoError(t, err)
	assert.True(t, cfg.Present())
	assert.Equal(t, 8080, cfg.Value().Port)

	db, err := adi.InvokeOptional[*Database](ctx, in)
	require.NoError(t, err)
	assert.False(t, db.Present())

	fallback := &Database{Name: "fallback"}
	assert.Same(t, fallback, db.OrElse(fallback))

	_, ok := adi.TryInvoke[*Database](ctx, in)
	assert.False(t, ok)
}

func TestMustInvokePanics(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(nil)
	require.NoError(t, err)

	assert.Panics(t, func() {
		adi.MustInvoke[*Config](t.Context(), in)
	})
}

func TestDecorateHook(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(adi.Constructor(adi.TypeOf[*Config](), newConfig,
		adi.WithHooks(adi.Decorate(func(_ context.Context, c *Config) (*Config, error) {
			c.Port++
			return c, nil
		})),
	))
	require.NoError(t, err)

	ctx := t.Context()
	first := adi.MustInvoke[*Config](ctx, in)
	second := adi.MustInvoke[*Config](ctx, in)

	assert.Same(t, first, second)
	assert.Equal(t, 8081, second.Port)
}

func TestDecorateError(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(adi.Constructor(adi.TypeOf[*Config](), newConfig,
		adi.WithHooks(adi.Decorate(func(context.Context, *Config) (*Config, error) {
			return nil, errors.New("rejected")
		})),
	))
	require.NoError(t, err)

	_, err = adi.Invoke[*Config](t.Context(), in)
	assert.True(t, adi.IsHookFailed(err))
}

func TestInjectionHooks(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	counting := func(s *adi.Session, next adi.Next) (any, error) {
		calls.Add(1)
		return next(s)
	}

	in, err := adi.Create(adi.Value("fallback", "from fallback"))
	require.NoError(t, err)

	ctx := t.Context()

	v, err := in.Resolve(ctx, "missing", adi.WithInjectionHooks(adi.Fallback("fallback")))
	require.NoError(t, err)
	assert.Equal(t, "from fallback", v)

	for range 3 {
		_, err := in.Resolve(ctx, "fallback", adi.WithInjectionHooks(counting))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestConcurrentResolveConstructsOnce(t *testing.T) {
	t.Parallel()

	var constructed atomic.Int32
	in, err := adi.Create(adi.Constructor(adi.TypeOf[*Config](), func() *Config {
		constructed.Add(1)
		time.Sleep(10 * time.Millisecond)
		return newConfig()
	}, adi.WithScope(adi.SingletonScope)))
	require.NoError(t, err)

	ctx := t.Context()
	results := make([]*Config, 32)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = adi.MustInvoke[*Config](ctx, in)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), constructed.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestResolveAfterDestroy(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(appProviders())
	require.NoError(t, err)
	require.NoError(t, in.Destroy(t.Context()))

	_, err = adi.Invoke[*Config](t.Context(), in)
	assert.ErrorIs(t, err, adi.ErrInjectorDestroyed)

	err = in.Provide(adi.Value("late", 1))
	assert.ErrorIs(t, err, adi.ErrInjectorDestroyed)
}

func TestComponents(t *testing.T) {
	t.Parallel()

	in, err := adi.Create(appProviders())
	require.NoError(t, err)
	require.NoError(t, in.AddComponents(adi.Constructor("controller", func(s *Server) string {
		return "controller:" + s.DB.Name
	})))

	ctx := t.Context()

	v, err := in.ResolveComponent(ctx, "controller")
	require.NoError(t, err)
	assert.Equal(t, "controller:main", v)

	_, err = in.Resolve(ctx, "controller")
	assert.True(t, adi.IsMissingProvider(err))

	_, err = in.ResolveComponent(ctx, "unknown")
	assert.True(t, adi.IsMissingProvider(err))
}

// Package adi is a hierarchical dependency injection runtime.
//
// Providers are registered against tokens in injectors. Injectors form a
// tree: a request that cannot be served locally falls back to the parent.
// Modules group providers, decide which of them importers can see and are
// compiled into the injector tree.
//
// # Quick Start
//
//	type Config struct{ Port int }
//	type Server struct{ Config *Config }
//
//	in, err := adi.Bootstrap(ctx, []adi.Provider{
//	    adi.Value(adi.TypeOf[*Config](), &Config{Port: 8080}),
//	    adi.Constructor(adi.TypeOf[*Server](), func(c *Config) *Server {
//	        return &Server{Config: c}
//	    }),
//	})
//
//	srv, err := adi.Invoke[*Server](ctx, in)
//
// # Tokens
//
// A token is any comparable value. TypeOf[T]() is the usual token for a
// type; NewToken creates a named token that may carry its own default
// provider and be resolvable without registration:
//
//	var Clock = adi.NewToken("clock",
//	    adi.ProvidedIn("any"),
//	    adi.TokenFactory(func() time.Time { return time.Now() }))
//
// # Providers
//
//	adi.Type[*Service]()                       // definition registered with Injectable
//	adi.Class(token, typ)                      // construct typ
//	adi.Constructor(token, NewService)         // call a constructor, then inject members
//	adi.Factory(token, func() *adi.Future {})  // call a factory, possibly asynchronous
//	adi.Existing(token, other)                 // alias
//	adi.Value(token, v)                        // constant
//
// Providers take options: Deps, Prop, Method, WithScope, When, WithHooks,
// WithOnInit, WithOnDestroy and Multi.
//
// # Scopes
//
// DefaultScope caches one value per context, SingletonScope exactly one,
// TransientScope a new value per injection and InstanceScope one value per
// requesting instance. Injections choose a context with InContext or ask
// for a fresh value with NewInstance.
//
// # Circular Dependencies
//
// Cycles through pointer-to-struct values are repaired: a placeholder is
// handed out while the value is constructed and patched in place once it
// is ready. OnInit hooks of every value in the cycle run only after the
// whole cycle has been constructed.
//
// # Modules
//
//	db := adi.NewModule("db").
//	    Provide(adi.Constructor(adi.TypeOf[*DB](), NewDB)).
//	    Export(adi.TypeOf[*DB]())
//
//	app := adi.NewModule("app").Import(db)
//	in, err := adi.Bootstrap(ctx, app)
//
// Shared modules (the default) get one injector per injector tree, Domain
// modules one per import site and Inline modules are folded into their
// importer.
//
// # Lifecycle
//
// Values implementing Initializer are initialized after construction.
// Destroy runs Destroyer hooks in reverse construction order.
//
// # Testing
//
// The aditest package builds compiled injectors that are destroyed when
// the test ends and provides helpers to replace providers.
package adi

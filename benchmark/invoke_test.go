package benchmark

import (
	"context"
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"
	"go.uber.org/fx"

	"github.com/magicmatatjahu/adi"
)

func BenchmarkInvoke_Singleton_Adi(b *testing.B) {
	in, _ := adi.Create(adi.Value(adi.TypeOf[*Config](), newConfig()))
	ctx := context.Background()

	b.ReportAllocs()
	for b.Loop() {
		_, _ = adi.Invoke[*Config](ctx, in)
	}
}

func BenchmarkInvoke_Singleton_AdiSync(b *testing.B) {
	in, _ := adi.Create(adi.Value(adi.TypeOf[*Config](), newConfig()))

	b.ReportAllocs()
	for b.Loop() {
		_, _ = adi.InvokeSync[*Config](in)
	}
}

func BenchmarkInvoke_Singleton_Do(b *testing.B) {
	injector := do.New()
	do.ProvideValue(injector, newConfig())
	_ = do.MustInvoke[*Config](injector)

	b.ReportAllocs()
	for b.Loop() {
		_ = do.MustInvoke[*Config](injector)
	}
}

func BenchmarkInvoke_Singleton_Dig(b *testing.B) {
	c := dig.New()
	_ = c.Provide(newConfig)
	_ = c.Invoke(func(*Config) {})

	b.ReportAllocs()
	for b.Loop() {
		_ = c.Invoke(func(*Config) {})
	}
}

func BenchmarkInvoke_Singleton_Fx(b *testing.B) {
	var cfg *Config
	app := fx.New(fx.NopLogger, fx.Provide(newConfig), fx.Populate(&cfg))
	ctx := context.Background()
	_ = app.Start(ctx)
	defer func() { _ = app.Stop(ctx) }()

	b.ReportAllocs()
	for b.Loop() {
		_ = cfg
	}
}

func BenchmarkInvoke_Chain_Adi(b *testing.B) {
	in, _ := adi.Create(adiChain())
	ctx := context.Background()
	_, _ = adi.Invoke[*Service](ctx, in)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = adi.Invoke[*Service](ctx, in)
	}
}

func BenchmarkInvoke_Chain_Do(b *testing.B) {
	injector := do.New()
	do.ProvideValue(injector, newConfig())
	do.ProvideValue(injector, newLogger())
	do.Provide(injector, func(i do.Injector) (*Database, error) {
		return newDatabase(do.MustInvoke[*Config](i), do.MustInvoke[*Logger](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Cache, error) {
		return newCache(do.MustInvoke[*Logger](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Repository, error) {
		return newRepository(do.MustInvoke[*Database](i), do.MustInvoke[*Cache](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		return newService(do.MustInvoke[*Repository](i), do.MustInvoke[*Logger](i)), nil
	})
	_ = do.MustInvoke[*Service](injector)

	b.ReportAllocs()
	for b.Loop() {
		_ = do.MustInvoke[*Service](injector)
	}
}

func BenchmarkInvoke_Chain_Dig(b *testing.B) {
	c := dig.New()
	_ = c.Provide(newConfig)
	_ = c.Provide(newLogger)
	_ = c.Provide(newDatabase)
	_ = c.Provide(newCache)
	_ = c.Provide(newRepository)
	_ = c.Provide(newService)
	_ = c.Invoke(func(*Service) {})

	b.ReportAllocs()
	for b.Loop() {
		_ = c.Invoke(func(*Service) {})
	}
}

func BenchmarkInvoke_Chain_Fx(b *testing.B) {
	var svc *Service
	app := fx.New(
		fx.NopLogger,
		fx.Provide(newConfig, newLogger, newDatabase, newCache, newRepository, newService),
		fx.Populate(&svc),
	)
	ctx := context.Background()
	_ = app.Start(ctx)
	defer func() { _ = app.Stop(ctx) }()

	b.ReportAllocs()
	for b.Loop() {
		_ = svc
	}
}

// Package aditest builds injectors for tests. Injectors are compiled on
// creation and destroyed when the test finishes.
package aditest

import (
	"context"

	"github.com/magicmatatjahu/adi"
	ireflect "github.com/magicmatatjahu/adi/internal/reflect"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
	Context() context.Context
}

type TestInjector struct {
	*adi.Injector
	tb TB
}

// New creates and compiles an injector from input (see adi.Create).
func New(tb TB, input any, opts ...adi.Option) *TestInjector {
	tb.Helper()

	in, err := adi.Bootstrap(tb.Context(), input, opts...)
	if err != nil {
		tb.Fatalf("failed to bootstrap injector: %v", err)
		return nil
	}

	tb.Cleanup(func() {
		if err := in.Destroy(context.Background()); err != nil {
			tb.Fatalf("failed to destroy injector: %v", err)
		}
	})

	return &TestInjector{Injector: in, tb: tb}
}

func (ti *TestInjector) RequireValidate() {
	ti.tb.Helper()

	if err := ti.Validate(); err != nil {
		ti.tb.Fatalf("injector validation failed: %v", err)
	}
}

func Replace[T any](ti *TestInjector, value T) {
	ti.tb.Helper()

	if err := ti.ReplaceValue(adi.TypeOf[T](), value); err != nil {
		ti.tb.Fatalf("failed to replace %s: %v", ireflect.TypeNameOf[T](), err)
	}
}

func ReplaceToken(ti *TestInjector, token adi.Token, value any) {
	ti.tb.Helper()

	if err := ti.ReplaceValue(token, value); err != nil {
		ti.tb.Fatalf("failed to replace %v: %v", token, err)
	}
}

func ReplaceProvider(ti *TestInjector, provider adi.Provider) {
	ti.tb.Helper()

	if err := ti.Replace(provider); err != nil {
		ti.tb.Fatalf("failed to replace provider %v: %v", provider.Token(), err)
	}
}

func AssertHas[T any](ti *TestInjector) {
	ti.tb.Helper()

	if !adi.Has[T](ti.Injector) {
		ti.tb.Fatalf("expected injector to have %s", ireflect.TypeNameOf[T]())
	}
}

func AssertNotHas[T any](ti *TestInjector) {
	ti.tb.Helper()

	if adi.Has[T](ti.Injector) {
		ti.tb.Fatalf("expected injector to not have %s", ireflect.TypeNameOf[T]())
	}
}

func MustInvoke[T any](ti *TestInjector, opts ...adi.InjectionOption) T {
	ti.tb.Helper()

	v, err := adi.Invoke[T](ti.tb.Context(), ti.Injector, opts...)
	if err != nil {
		ti.tb.Fatalf("failed to invoke %s: %v", ireflect.TypeNameOf[T](), err)
	}
	return v
}

func MustInvokeToken[T any](ti *TestInjector, token adi.Token, opts ...adi.InjectionOption) T {
	ti.tb.Helper()

	v, err := adi.InvokeToken[T](ti.tb.Context(), ti.Injector, token, opts...)
	if err != nil {
		ti.tb.Fatalf("failed to invoke %v: %v", token, err)
	}
	return v
}

func MustProvide(ti *TestInjector, providers ...adi.Provider) {
	ti.tb.Helper()

	if err := ti.Provide(providers...); err != nil {
		ti.tb.Fatalf("failed to provide: %v", err)
	}
}

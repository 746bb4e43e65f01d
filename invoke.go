package adi

import (
	"context"
	"fmt"

	ireflect "github.com/magicmatatjahu/adi/internal/reflect"
)

// Invoke resolves the type T.
func Invoke[T any](ctx context.Context, in *Injector, opts ...InjectionOption) (T, error) {
	return InvokeToken[T](ctx, in, TypeOf[T](), opts...)
}

// InvokeToken resolves token and asserts the result to T.
func InvokeToken[T any](ctx context.Context, in *Injector, token Token, opts ...InjectionOption) (T, error) {
	v, err := in.Resolve(ctx, token, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](token, v)
}

func InvokeSync[T any](in *Injector, opts ...InjectionOption) (T, error) {
	return InvokeTokenSync[T](in, TypeOf[T](), opts...)
}

func InvokeTokenSync[T any](in *Injector, token Token, opts ...InjectionOption) (T, error) {
	v, err := in.ResolveSync(token, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](token, v)
}

func MustInvoke[T any](ctx context.Context, in *Injector, opts ...InjectionOption) T {
	v, err := Invoke[T](ctx, in, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func TryInvoke[T any](ctx context.Context, in *Injector, opts ...InjectionOption) (T, bool) {
	v, err := Invoke[T](ctx, in, opts...)
	return v, err == nil
}

func Has[T any](in *Injector) bool {
	return in.Has(TypeOf[T]())
}

func typed[T any](token Token, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}

	out, ok := v.(T)
	if !ok {
		return zero, newError(
			ErrCodeInvalidProvider,
			fmt.Sprintf("resolved %T, expected %s", v, ireflect.TypeNameOf[T]()),
			nil,
		).WithToken(tokenName(token))
	}
	return out, nil
}

type Maybe[T any] struct {
	value   T
	present bool
}

func (o Maybe[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Maybe[T]) Value() T {
	return o.value
}

func (o Maybe[T]) Present() bool {
	return o.present
}

func (o Maybe[T]) OrElse(defaultValue T) T {
	if o.present {
		return o.value
	}
	return defaultValue
}

func Some[T any](value T) Maybe[T] {
	return Maybe[T]{value: value, present: true}
}

func None[T any]() Maybe[T] {
	return Maybe[T]{}
}

// InvokeOptional resolves T, reporting absence instead of failing when
// no injector in the chain can serve it.
func InvokeOptional[T any](ctx context.Context, in *Injector, opts ...InjectionOption) (Maybe[T], error) {
	if !Has[T](in) {
		return None[T](), nil
	}

	v, err := Invoke[T](ctx, in, opts...)
	if err != nil {
		return None[T](), err
	}
	return Some(v), nil
}

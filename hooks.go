package adi

import (
	"context"

	"github.com/pkg/errors"
)

type Next func(s *Session) (any, error)

// Hook wraps resolution. Provider hooks run once per construction,
// injection hooks run on every injection.
type Hook func(s *Session, next Next) (any, error)

func runHooks(hooks []Hook, s *Session, last Next) (any, error) {
	if len(hooks) == 0 {
		return last(s)
	}

	var at func(i int) Next
	at = func(i int) Next {
		if i == len(hooks) {
			return last
		}
		return func(s *Session) (any, error) {
			return hooks[i](s, at(i+1))
		}
	}
	return at(0)(s)
}

// Decorate replaces the produced value with the result of fn.
func Decorate[T any](fn func(ctx context.Context, value T) (T, error)) Hook {
	return func(s *Session, next Next) (any, error) {
		v, err := next(s)
		if err != nil {
			return nil, err
		}

		typed, ok := v.(T)
		if !ok {
			return nil, errors.Errorf("decorator expects %s, got %T", TypeOf[T](), v)
		}
		out, err := fn(s.Ctx(), typed)
		if err != nil {
			return nil, errHookFailed(s.Token, "decorator", err)
		}
		return out, nil
	}
}

// Fallback resolves fallback when the wrapped resolution fails with a
// missing provider.
func Fallback(fallback Token) Hook {
	return func(s *Session, next Next) (any, error) {
		v, err := next(s)
		if err == nil || !IsMissingProvider(err) {
			return v, err
		}
		return s.origin.resolve(s.Ctx(), Inject(fallback), s.Parent, s.sync)
	}
}

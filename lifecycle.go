package adi

import (
	"context"
)

// Initializer is implemented by values that need a post-construction
// step. The engine calls OnInit once the value and everything it takes
// part in a cycle with are fully constructed.
type Initializer interface {
	OnInit(ctx context.Context) error
}

// Destroyer is implemented by values that release resources when their
// injector is destroyed.
type Destroyer interface {
	OnDestroy(ctx context.Context) error
}

type LifecycleFunc func(ctx context.Context, value any) error

func (d *definition) init(ctx context.Context, value any) error {
	for _, fn := range d.onInit {
		if err := fn(ctx, value); err != nil {
			return errHookFailed(d.record.token, "OnInit", err)
		}
	}
	if i, ok := value.(Initializer); ok {
		if err := i.OnInit(ctx); err != nil {
			return errHookFailed(d.record.token, "OnInit", err)
		}
	}
	return nil
}

func (d *definition) destroy(ctx context.Context, value any) error {
	if dd, ok := value.(Destroyer); ok {
		if err := dd.OnDestroy(ctx); err != nil {
			return errHookFailed(d.record.token, "OnDestroy", err)
		}
	}
	for _, fn := range d.onDestroy {
		if err := fn(ctx, value); err != nil {
			return errHookFailed(d.record.token, "OnDestroy", err)
		}
	}
	return nil
}

// track remembers a cached value so Destroy can tear it down in reverse
// construction order.
func (in *Injector) track(cr *contextRecord) {
	in.createdMu.Lock()
	defer in.createdMu.Unlock()

	in.created = append(in.created, cr)
}

func (in *Injector) destroyValues(ctx context.Context) error {
	in.createdMu.Lock()
	created := in.created
	in.created = nil
	in.createdMu.Unlock()

	var first error
	for i := len(created) - 1; i >= 0; i-- {
		cr := created[i]

		cr.mu.Lock()
		value, ok := cr.value, cr.status.has(statusResolved)
		cr.status = statusUnknown
		cr.value = nil
		cr.mu.Unlock()
		cr.def.forget(cr)

		if !ok {
			continue
		}
		if err := cr.def.destroy(ctx, value); err != nil {
			in.logger.Error("destroy hook failed", "token", tokenName(cr.def.record.token), "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

package adi

import (
	"context"
	"reflect"

	ireflect "github.com/magicmatatjahu/adi/internal/reflect"
)

// resolve is the single entry point for every request, direct or nested.
// The synchronous and asynchronous paths share it and differ only in how
// awaitables and in-flight values are waited for.
func (in *Injector) resolve(ctx context.Context, inj Injection, parent *Session, isSync bool) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newSession(ctx, in, inj, parent, isSync)

	if v, ok := s.special(); ok {
		return v, nil
	}
	return runHooks(inj.hooks, s, lookup)
}

func (s *Session) special() (any, bool) {
	switch s.injection.token {
	case InjectorToken:
		return s.origin, true
	case SessionToken:
		return s.Parent, true
	case ContextToken:
		if s.Parent == nil {
			return StaticContext, true
		}
		return s.Parent.Context, true
	case InquirerToken:
		if s.Parent == nil {
			return (*Session)(nil), true
		}
		return s.Parent.Parent, true
	default:
		return nil, false
	}
}

func lookup(s *Session) (any, error) {
	in := s.origin
	if in.isDestroyed() {
		return nil, errInjectorDestroyed(in)
	}

	start := in
	if s.injection.skipSelf {
		start = in.parent
	}

	for cur := start; cur != nil; cur = cur.parent {
		rec, err := cur.recordFor(s.injection.token)
		if err != nil {
			return nil, err
		}

		if rec != nil {
			if rec.isMulti() {
				return resolveMulti(s, rec)
			}
			if def := rec.find(s); def != nil {
				s.bind(rec, def)
				return resolveDefinition(s)
			}
		}

		if s.injection.self {
			break
		}
	}

	if s.injection.optional {
		return s.injection.defaultValue, nil
	}
	return nil, errMissingProvider(s)
}

func resolveMulti(s *Session, rec *Record) (any, error) {
	defs := rec.matching(s)
	values := make([]any, 0, len(defs))
	for _, def := range defs {
		v, err := resolveDefinition(s.branch(rec, def))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func resolveDefinition(s *Session) (any, error) {
	def := s.def
	if def.kind == providerExisting {
		return def.factory(s)
	}

	scope := def.scope
	if override := s.injection.scope; override != nil && override != scope {
		if !scope.CanBeOverridden() {
			return nil, errScopeOverride(s, scope)
		}
		scope = override
	}
	s.scope = scope

	c, err := scope.Context(s)
	if err != nil {
		return nil, err
	}
	s.Context = c

	cr := def.contextRecord(c, scope.ToCache(s))
	s.ctxRecord = cr

	v, owned, err := acquire(s, cr)
	if err != nil || !owned {
		return v, err
	}

	v, err = construct(s)
	return finish(s, cr, v, err)
}

// acquire returns a usable value when cr is resolved or is a cycle back
// into the current request. Otherwise it marks cr pending and reports
// that the caller owns its construction.
func acquire(s *Session, cr *contextRecord) (any, bool, error) {
	for {
		cr.mu.Lock()

		if cr.status.has(statusResolved) {
			v := cr.value
			cr.mu.Unlock()
			return v, false, nil
		}

		if cr.status.has(statusPending) {
			if cr.owner == s.res {
				v, err := placeholder(s, cr)
				cr.mu.Unlock()
				return v, false, err
			}

			owner, done := cr.owner, cr.done
			cr.mu.Unlock()
			if !s.res.block(owner, done) {
				return nil, false, errWaitCycle(s)
			}
			err := s.wait(done)
			s.res.unblock()
			if err != nil {
				return nil, false, err
			}
			continue
		}

		cr.status = statusPending
		cr.owner = s.res
		cr.done = make(chan struct{})
		cr.mu.Unlock()
		s.res.claim()
		return nil, true, nil
	}
}

// placeholder hands out the pre-allocated handle for a value that is
// still being constructed. Called with cr.mu held.
func placeholder(s *Session, cr *contextRecord) (any, error) {
	if cr.def.proto == nil {
		return nil, errUnresolvableCircular(s)
	}

	if !cr.status.has(statusCircular) {
		cr.placeholder = ireflect.NewPlaceholder(cr.def.proto)
		cr.status |= statusCircular
		s.res.open(cr)
		s.Injector.logger.Debug("circular dependency placeholder created", "token", tokenName(s.Token))
	}
	return cr.placeholder.Interface(), nil
}

func construct(s *Session) (any, error) {
	return runHooks(s.def.hooks, s, func(s *Session) (any, error) {
		v, err := s.def.factory(s)
		if err != nil {
			return nil, err
		}
		return await(s, v)
	})
}

func await(s *Session, v any) (any, error) {
	aw, ok := v.(Awaitable)
	if !ok {
		return v, nil
	}
	if s.sync {
		return nil, errAsyncInSync(s)
	}

	out, err := aw.Await(s.ctx)
	if err != nil {
		return nil, errProviderFailed(s, err)
	}
	return out, nil
}

func finish(s *Session, cr *contextRecord, v any, err error) (any, error) {
	cr.mu.Lock()
	circular := cr.status.has(statusCircular)
	if err == nil && circular {
		if perr := ireflect.Patch(cr.placeholder, v); perr != nil {
			err = newError(ErrCodeUnresolvableCircular, "constructed value cannot replace its placeholder", perr).
				WithToken(tokenName(s.Token)).WithPath(s.path())
		} else {
			v = cr.placeholder.Interface()
		}
	}

	done := cr.done
	if err != nil {
		cr.status = statusUnknown
		cr.value = nil
	} else {
		cr.value = v
		cr.status = statusResolved
		if cr.cached {
			cr.status |= statusCached
		}
	}
	cr.placeholder = reflect.Value{}
	cr.owner = nil
	cr.done = nil
	cr.mu.Unlock()

	if circular {
		s.res.close(cr)
	}
	close(done)

	if err != nil {
		if circular {
			discard(s, s.res.rollback())
		}
		return nil, err
	}

	if cr.cached {
		cr.def.record.host.track(cr)
	}

	ready := s.res.settle(s, v)
	if len(ready) > 1 {
		s.Injector.logger.Debug("deferred init hooks released", "token", tokenName(s.Token), "count", len(ready))
	}
	for _, p := range ready {
		if err := p.session.def.init(p.session.ctx, p.value); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// discard forgets values that captured the placeholder of a failed
// construction so the next request builds them again.
func discard(s *Session, pending []pendingInit) {
	for _, p := range pending {
		if cr := p.session.ctxRecord; cr != nil {
			cr.reset()
		}
	}
	if len(pending) > 0 {
		s.Injector.logger.Debug("values holding an unpatched placeholder discarded", "token", tokenName(s.Token), "count", len(pending))
	}
}

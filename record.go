package adi

import (
	"reflect"
	"sync"

	"github.com/samber/lo"
)

type status uint8

const (
	statusUnknown status = 1 << iota
	statusPending
	statusResolved
	statusCached
	statusCircular
)

func (s status) has(flag status) bool {
	return s&flag != 0
}

type factoryFunc func(s *Session) (any, error)

// definition is a provider normalized at registration.
type definition struct {
	record    *Record
	kind      providerKind
	factory   factoryFunc
	proto     reflect.Type
	scope     Scope
	when      Constraint
	hooks     []Hook
	onInit    []LifecycleFunc
	onDestroy []LifecycleFunc
	deps      []Injection

	mu     sync.Mutex
	values map[*Context]*contextRecord
}

func (d *definition) contextRecord(c *Context, cache bool) *contextRecord {
	if !cache {
		return newContextRecord(d, c, false)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cr, ok := d.values[c]
	if !ok {
		cr = newContextRecord(d, c, true)
		d.values[c] = cr
	}
	return cr
}

func (d *definition) instantiated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return lo.SomeBy(lo.Values(d.values), func(cr *contextRecord) bool {
		return cr.resolved()
	})
}

func (d *definition) forget(cr *contextRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.values[cr.context] == cr {
		delete(d.values, cr.context)
	}
}

type contextRecord struct {
	def     *definition
	context *Context
	cached  bool

	mu          sync.Mutex
	status      status
	value       any
	owner       *resolution
	done        chan struct{}
	placeholder reflect.Value

	ownedOnce sync.Once
	owned     *Context
}

func newContextRecord(d *definition, c *Context, cached bool) *contextRecord {
	return &contextRecord{
		def:     d,
		context: c,
		cached:  cached,
		status:  statusUnknown,
	}
}

func (cr *contextRecord) reset() {
	cr.mu.Lock()
	cr.status = statusUnknown
	cr.value = nil
	cr.mu.Unlock()

	cr.def.forget(cr)
}

func (cr *contextRecord) resolved() bool {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	return cr.status.has(statusResolved)
}

// ownedContext is the context instance-scoped dependencies of this value
// are cached under.
func (cr *contextRecord) ownedContext() *Context {
	cr.ownedOnce.Do(func() {
		cr.owned = NewContext("instance")
	})
	return cr.owned
}

// Record holds every definition registered for a token in one injector.
type Record struct {
	token Token
	host  *Injector

	mu    sync.RWMutex
	defs  []*definition
	multi bool
}

func newRecord(token Token, host *Injector) *Record {
	return &Record{
		token: token,
		host:  host,
		multi: isMultiToken(token),
	}
}

func (r *Record) Token() Token {
	return r.token
}

func (r *Record) Host() *Injector {
	return r.host
}

func (r *Record) add(d *definition, multi bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d.record = r
	r.defs = append(r.defs, d)
	r.multi = r.multi || multi
}

func (r *Record) replace(d *definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d.record = r
	r.defs = []*definition{d}
}

func (r *Record) definitions() []*definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*definition(nil), r.defs...)
}

func (r *Record) isMulti() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.multi
}

// find picks the definition serving s. Constrained definitions win over
// unconstrained ones and later registrations win over earlier ones.
func (r *Record) find(s *Session) *definition {
	defs := r.definitions()

	for i := len(defs) - 1; i >= 0; i-- {
		if defs[i].when != nil && defs[i].when(s) {
			return defs[i]
		}
	}
	for i := len(defs) - 1; i >= 0; i-- {
		if defs[i].when == nil {
			return defs[i]
		}
	}
	return nil
}

// matching returns every definition serving s in registration order.
func (r *Record) matching(s *Session) []*definition {
	return lo.Filter(r.definitions(), func(d *definition, _ int) bool {
		return d.when == nil || d.when(s)
	})
}

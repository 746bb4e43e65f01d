package adi

import (
	"bytes"
	"context"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// Session is the state of a single dependency request.
type Session struct {
	// Injector hosts the record serving the request once it is found.
	Injector *Injector
	Token    Token
	// Context is the cache key computed by the effective scope.
	Context *Context
	Parent  *Session

	origin    *Injector
	injection Injection
	record    *Record
	def       *definition
	scope     Scope
	ctxRecord *contextRecord
	res       *resolution
	ctx       context.Context
	sync      bool
}

type sessionKey struct{}

func newSession(ctx context.Context, in *Injector, inj Injection, parent *Session, isSync bool) *Session {
	if parent == nil {
		parent = sessionFrom(ctx)
	}

	s := &Session{
		Injector:  in,
		Token:     inj.token,
		Parent:    parent,
		origin:    in,
		injection: inj,
		sync:      isSync,
	}
	if parent != nil {
		s.res = parent.res
	} else {
		s.res = &resolution{}
	}
	s.ctx = context.WithValue(ctx, sessionKey{}, s)
	return s
}

func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

func (s *Session) bind(rec *Record, def *definition) {
	s.record = rec
	s.def = def
	s.Injector = rec.host
}

// branch is used for the members of a multi token.
func (s *Session) branch(rec *Record, def *definition) *Session {
	b := *s
	b.ctxRecord = nil
	b.Context = nil
	b.bind(rec, def)
	b.ctx = context.WithValue(s.ctx, sessionKey{}, &b)
	return &b
}

func (s *Session) Injection() Injection {
	return s.injection
}

func (s *Session) Record() *Record {
	return s.record
}

func (s *Session) Scope() Scope {
	return s.scope
}

// Ctx is the Go context of the request; it carries the session so
// resolutions started from a provider join the same request.
func (s *Session) Ctx() context.Context {
	return s.ctx
}

func (s *Session) IsSync() bool {
	return s.sync
}

func (s *Session) path() []string {
	var path []string
	for p := s; p != nil; p = p.Parent {
		path = append(path, tokenName(p.Token))
	}
	slices.Reverse(path)
	return path
}

func (s *Session) inject(inj Injection) (any, error) {
	return s.Injector.resolve(s.ctx, inj, s, s.sync)
}

// injectAll resolves arguments strictly in declaration order.
func (s *Session) injectAll(injections []Injection) ([]any, error) {
	args := make([]any, len(injections))
	for i, inj := range injections {
		v, err := s.inject(inj)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (s *Session) wait(done <-chan struct{}) error {
	if s.sync {
		<-done
		return nil
	}

	select {
	case <-done:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// resolution is shared by every session of one top-level request. It
// tracks the values currently handed out as placeholders and the init
// hooks waiting for them to settle.
type resolution struct {
	mu       sync.Mutex
	circular []*contextRecord
	deferred []pendingInit

	// goroutine that claimed the first pending record of this request.
	gid atomic.Uint64
	// waitingOn and waitDone are guarded by waits.
	waitingOn *resolution
	waitDone  <-chan struct{}
}

// waits guards the wait-for edges between resolutions.
var waits sync.Mutex

func (r *resolution) claim() {
	if r.gid.Load() == 0 {
		r.gid.Store(goroutineID())
	}
}

// block records that r is about to wait for owner to release done. It
// reports false when the wait could never end: owner, or a resolution
// owner is waiting for, is r itself or is suspended beneath the current
// goroutine.
func (r *resolution) block(owner *resolution, done <-chan struct{}) bool {
	gid := goroutineID()

	waits.Lock()
	defer waits.Unlock()

	for o, d := owner, done; o != nil && isOpen(d); o, d = o.waitingOn, o.waitDone {
		if o == r || o.gid.Load() == gid {
			return false
		}
	}
	r.waitingOn, r.waitDone = owner, done
	return true
}

func (r *resolution) unblock() {
	waits.Lock()
	defer waits.Unlock()

	r.waitingOn, r.waitDone = nil, nil
}

// rollback discards every value finished while a placeholder was
// outstanding. Those values may hold a handle that is never patched.
func (r *resolution) rollback() []pendingInit {
	r.mu.Lock()
	defer r.mu.Unlock()

	discarded := r.deferred
	r.deferred = nil
	return discarded
}

func isOpen(done <-chan struct{}) bool {
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func goroutineID() uint64 {
	var buf [64]byte
	line := buf[:runtime.Stack(buf[:], false)]
	line = bytes.TrimPrefix(line, []byte("goroutine "))
	if i := bytes.IndexByte(line, ' '); i > 0 {
		line = line[:i]
	}
	id, _ := strconv.ParseUint(string(line), 10, 64)
	return id
}

type pendingInit struct {
	session *Session
	value   any
}

func (r *resolution) open(cr *contextRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.circular, cr) {
		r.circular = append(r.circular, cr)
	}
}

func (r *resolution) close(cr *contextRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.circular = lo.Without(r.circular, cr)
}

// settle queues the init hook of a finished value. Once no placeholder is
// outstanding every queued hook is returned in completion order.
func (r *resolution) settle(s *Session, value any) []pendingInit {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deferred = append(r.deferred, pendingInit{session: s, value: value})
	if len(r.circular) > 0 {
		return nil
	}

	ready := r.deferred
	r.deferred = nil
	return ready
}

func (r *resolution) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.circular)
}

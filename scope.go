package adi

import (
	"github.com/google/uuid"
)

// Context is the cache key a scope computes for a request. Values are
// memoized per (definition, Context) pair.
type Context struct {
	id   uuid.UUID
	name string
}

func NewContext(name string) *Context {
	return &Context{id: uuid.New(), name: name}
}

// StaticContext is shared by every default and singleton resolution.
var StaticContext = &Context{id: uuid.Nil, name: "static"}

func (c *Context) ID() uuid.UUID {
	return c.id
}

func (c *Context) Name() string {
	return c.name
}

func (c *Context) String() string {
	return c.name + ":" + c.id.String()
}

// Scope is a lifetime policy. Context picks the cache key for a request,
// ToCache decides whether the produced value is retained.
type Scope interface {
	Name() string
	Context(s *Session) (*Context, error)
	ToCache(s *Session) bool
	CanBeOverridden() bool
}

var (
	DefaultScope         Scope = defaultScope{}
	SingletonScope       Scope = singletonScope{}
	TransientScope       Scope = transientScope{}
	StrictTransientScope Scope = transientScope{strict: true}
	InstanceScope        Scope = instanceScope{}
)

type defaultScope struct{}

func (defaultScope) Name() string { return "default" }

func (defaultScope) Context(s *Session) (*Context, error) {
	switch {
	case s.injection.context != nil:
		return s.injection.context, nil
	case s.injection.newInstance:
		if selfCycle(s) {
			return nil, errSelfCycleViolation(s, DefaultScope)
		}
		return NewContext("new"), nil
	default:
		return StaticContext, nil
	}
}

func (defaultScope) ToCache(*Session) bool { return true }

func (defaultScope) CanBeOverridden() bool { return true }

type singletonScope struct{}

func (singletonScope) Name() string { return "singleton" }

func (singletonScope) Context(s *Session) (*Context, error) {
	if s.injection.newInstance {
		return nil, errSingletonViolation(s, "create a new instance")
	}
	if c := s.injection.context; c != nil && c != StaticContext {
		return nil, errSingletonViolation(s, "be resolved in a custom context")
	}
	return StaticContext, nil
}

func (singletonScope) ToCache(*Session) bool { return true }

func (singletonScope) CanBeOverridden() bool { return false }

type transientScope struct {
	strict bool
}

func (t transientScope) Name() string {
	if t.strict {
		return "strict-transient"
	}
	return "transient"
}

func (t transientScope) Context(s *Session) (*Context, error) {
	if s.injection.context != nil {
		return s.injection.context, nil
	}
	if selfCycle(s) {
		return nil, errSelfCycleViolation(s, t)
	}
	return NewContext(t.Name()), nil
}

// Method and factory arguments live only for the call they feed.
func (transientScope) ToCache(s *Session) bool {
	return s.injection.kind != KindMethod && s.injection.kind != KindFactory
}

func (t transientScope) CanBeOverridden() bool { return !t.strict }

// instanceScope keeps one value per requesting instance.
type instanceScope struct{}

func (instanceScope) Name() string { return "instance" }

func (instanceScope) Context(s *Session) (*Context, error) {
	if s.injection.context != nil {
		return s.injection.context, nil
	}
	if s.Parent == nil || s.Parent.ctxRecord == nil {
		return StaticContext, nil
	}
	if selfCycle(s) {
		return nil, errSelfCycleViolation(s, InstanceScope)
	}
	return s.Parent.ctxRecord.ownedContext(), nil
}

func (instanceScope) ToCache(*Session) bool { return true }

func (instanceScope) CanBeOverridden() bool { return true }

// selfCycle reports whether the definition serving s is already being
// constructed further up the same request chain.
func selfCycle(s *Session) bool {
	for p := s.Parent; p != nil; p = p.Parent {
		if p.def != nil && p.def == s.def {
			return true
		}
	}
	return false
}

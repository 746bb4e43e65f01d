package adi

// Constraint decides whether a provider definition serves a request.
type Constraint func(s *Session) bool

func WhenNamed(name string) Constraint {
	return func(s *Session) bool {
		return s.injection.name == name
	}
}

func WhenTagged(key string, value any) Constraint {
	return func(s *Session) bool {
		v, ok := s.injection.tags[key]
		return ok && v == value
	}
}

// WhenInjectedInto matches requests made while constructing token.
func WhenInjectedInto(token Token) Constraint {
	return func(s *Session) bool {
		return s.Parent != nil && s.Parent.Token == token
	}
}

func WhenKind(kind InjectionKind) Constraint {
	return func(s *Session) bool {
		return s.injection.kind == kind
	}
}

func And(constraints ...Constraint) Constraint {
	return func(s *Session) bool {
		for _, c := range constraints {
			if !c(s) {
				return false
			}
		}
		return true
	}
}

func Or(constraints ...Constraint) Constraint {
	return func(s *Session) bool {
		for _, c := range constraints {
			if c(s) {
				return true
			}
		}
		return false
	}
}

func Not(c Constraint) Constraint {
	return func(s *Session) bool {
		return !c(s)
	}
}

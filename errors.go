package adi

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeMissingProvider
	ErrCodeScopeViolation
	ErrCodeUnresolvableCircular
	ErrCodeModuleComposition
	ErrCodeInvalidProvider
	ErrCodeProviderFailed
	ErrCodeAsyncInSync
	ErrCodeHookFailed
	ErrCodeValidationFailed
	ErrCodeInjectorDestroyed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:              "UNKNOWN",
	ErrCodeMissingProvider:      "MISSING_PROVIDER",
	ErrCodeScopeViolation:       "SCOPE_VIOLATION",
	ErrCodeUnresolvableCircular: "UNRESOLVABLE_CIRCULAR",
	ErrCodeModuleComposition:    "MODULE_COMPOSITION",
	ErrCodeInvalidProvider:      "INVALID_PROVIDER",
	ErrCodeProviderFailed:       "PROVIDER_FAILED",
	ErrCodeAsyncInSync:          "ASYNC_IN_SYNC",
	ErrCodeHookFailed:           "HOOK_FAILED",
	ErrCodeValidationFailed:     "VALIDATION_FAILED",
	ErrCodeInjectorDestroyed:    "INJECTOR_DESTROYED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Sentinels for errors.Is; matching compares codes only.
var (
	ErrMissingProvider      = &Error{Code: ErrCodeMissingProvider}
	ErrScopeViolation       = &Error{Code: ErrCodeScopeViolation}
	ErrUnresolvableCircular = &Error{Code: ErrCodeUnresolvableCircular}
	ErrModuleComposition    = &Error{Code: ErrCodeModuleComposition}
	ErrInvalidProvider      = &Error{Code: ErrCodeInvalidProvider}
	ErrProviderFailed       = &Error{Code: ErrCodeProviderFailed}
	ErrAsyncInSync          = &Error{Code: ErrCodeAsyncInSync}
	ErrHookFailed           = &Error{Code: ErrCodeHookFailed}
	ErrValidationFailed     = &Error{Code: ErrCodeValidationFailed}
	ErrInjectorDestroyed    = &Error{Code: ErrCodeInjectorDestroyed}
)

type Error struct {
	Code    ErrorCode
	Message string
	Token   string
	Cause   error
	// Path lists the tokens being resolved when the error occurred,
	// outermost first.
	Path []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Token != "" {
		b.WriteString(fmt.Sprintf(" token=%q:", e.Token))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if len(e.Path) > 1 {
		b.WriteString(" (path: ")
		b.WriteString(strings.Join(e.Path, " -> "))
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

func (e *Error) WithPath(path []string) *Error {
	e.Path = path
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errMissingProvider(s *Session) *Error {
	return newError(
		ErrCodeMissingProvider,
		"no provider found",
		nil,
	).WithToken(tokenName(s.Token)).WithPath(s.path())
}

func errSingletonViolation(s *Session, reason string) *Error {
	return newError(
		ErrCodeScopeViolation,
		fmt.Sprintf("singleton scoped provider cannot %s", reason),
		nil,
	).WithToken(tokenName(s.Token)).WithPath(s.path())
}

func errSelfCycleViolation(s *Session, scope Scope) *Error {
	return newError(
		ErrCodeScopeViolation,
		fmt.Sprintf("%s scoped provider injects a new instance of itself", scope.Name()),
		nil,
	).WithToken(tokenName(s.Token)).WithPath(s.path())
}

func errScopeOverride(s *Session, scope Scope) *Error {
	return newError(
		ErrCodeScopeViolation,
		fmt.Sprintf("%s scope cannot be overridden", scope.Name()),
		nil,
	).WithToken(tokenName(s.Token)).WithPath(s.path())
}

func errUnresolvableCircular(s *Session) *Error {
	return newError(
		ErrCodeUnresolvableCircular,
		"circular dependency through a value that cannot be constructed in two phases",
		nil,
	).WithToken(tokenName(s.Token)).WithPath(s.path())
}

func errWaitCycle(s *Session) *Error {
	return newError(
		ErrCodeUnresolvableCircular,
		"circular dependency between resolutions waiting on each other",
		nil,
	).WithToken(tokenName(s.Token)).WithPath(s.path())
}

func errModuleComposition(module *Module, message string, cause error) *Error {
	return newError(
		ErrCodeModuleComposition,
		fmt.Sprintf("module %s: %s", module.Name(), message),
		cause,
	)
}

func errInvalidProvider(token Token, cause error) *Error {
	return newError(
		ErrCodeInvalidProvider,
		"invalid provider",
		cause,
	).WithToken(tokenName(token))
}

func errProviderFailed(s *Session, cause error) *Error {
	return newError(
		ErrCodeProviderFailed,
		"provider returned error",
		errors.WithStack(cause),
	).WithToken(tokenName(s.Token)).WithPath(s.path())
}

func errAsyncInSync(s *Session) *Error {
	return newError(
		ErrCodeAsyncInSync,
		"provider produced an asynchronous value during synchronous resolution",
		nil,
	).WithToken(tokenName(s.Token)).WithPath(s.path())
}

func errHookFailed(token Token, hook string, cause error) *Error {
	return newError(
		ErrCodeHookFailed,
		fmt.Sprintf("%s hook failed", hook),
		cause,
	).WithToken(tokenName(token))
}

func errValidationFailed(cause error) *Error {
	return newError(
		ErrCodeValidationFailed,
		"injector validation failed",
		cause,
	)
}

func errInjectorDestroyed(in *Injector) *Error {
	return newError(
		ErrCodeInjectorDestroyed,
		fmt.Sprintf("injector %s has been destroyed", in.Name()),
		nil,
	)
}

func IsMissingProvider(err error) bool {
	return errors.Is(err, ErrMissingProvider)
}

func IsScopeViolation(err error) bool {
	return errors.Is(err, ErrScopeViolation)
}

func IsUnresolvableCircular(err error) bool {
	return errors.Is(err, ErrUnresolvableCircular)
}

func IsModuleComposition(err error) bool {
	return errors.Is(err, ErrModuleComposition)
}

func IsInvalidProvider(err error) bool {
	return errors.Is(err, ErrInvalidProvider)
}

func IsProviderFailed(err error) bool {
	return errors.Is(err, ErrProviderFailed)
}

func IsAsyncInSync(err error) bool {
	return errors.Is(err, ErrAsyncInSync)
}

func IsHookFailed(err error) bool {
	return errors.Is(err, ErrHookFailed)
}

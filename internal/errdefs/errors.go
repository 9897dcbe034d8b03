// Package errdefs defines the error taxonomy shared by every kernel package.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeDuplicateName
	ErrCodeComponentNotFound
	ErrCodeUnsatisfiedDependency
	ErrCodeHandlerState
	ErrCodeCycle
	ErrCodePoolExhausted
	ErrCodeUnknownInstance
	ErrCodeActivationFailed
	ErrCodeInvalidDescriptor
	ErrCodeGenericArguments
	ErrCodeComponentInUse
	ErrCodeKernelDisposed
	ErrCodeDecommissionFailed
	ErrCodeValidationFailed
	ErrCodeModuleApplyFailed
	ErrCodeTypeMismatch
	ErrCodeHealthCheckFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:               "UNKNOWN",
	ErrCodeDuplicateName:         "DUPLICATE_NAME",
	ErrCodeComponentNotFound:     "COMPONENT_NOT_FOUND",
	ErrCodeUnsatisfiedDependency: "UNSATISFIED_DEPENDENCY",
	ErrCodeHandlerState:          "HANDLER_STATE",
	ErrCodeCycle:                 "CYCLE",
	ErrCodePoolExhausted:         "POOL_EXHAUSTED",
	ErrCodeUnknownInstance:       "UNKNOWN_INSTANCE",
	ErrCodeActivationFailed:      "ACTIVATION_FAILED",
	ErrCodeInvalidDescriptor:     "INVALID_DESCRIPTOR",
	ErrCodeGenericArguments:      "GENERIC_ARGUMENTS",
	ErrCodeComponentInUse:        "COMPONENT_IN_USE",
	ErrCodeKernelDisposed:        "KERNEL_DISPOSED",
	ErrCodeDecommissionFailed:    "DECOMMISSION_FAILED",
	ErrCodeValidationFailed:      "VALIDATION_FAILED",
	ErrCodeModuleApplyFailed:     "MODULE_APPLY_FAILED",
	ErrCodeTypeMismatch:          "TYPE_MISMATCH",
	ErrCodeHealthCheckFailed:     "HEALTH_CHECK_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error is the single error type returned by the kernel. Component names the
// component the failure is attributed to; Stack carries the chain of
// component names that were being activated when it happened, outermost first.
type Error struct {
	Code      ErrorCode
	Message   string
	Component string
	Cause     error
	Stack     []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Component != "" {
		b.WriteString(fmt.Sprintf(" component=%q:", e.Component))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if len(e.Stack) > 0 {
		b.WriteString(" (chain: ")
		b.WriteString(strings.Join(e.Stack, " -> "))
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

func (e *Error) WithComponent(name string) *Error {
	e.Component = name
	return e
}

func (e *Error) WithStack(stack []string) *Error {
	e.Stack = append([]string(nil), stack...)
	return e
}

func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinel returns a comparable value for errors.Is checks against a code.
func Sentinel(code ErrorCode) *Error {
	return &Error{Code: code}
}

func DuplicateName(name string) *Error {
	return New(
		ErrCodeDuplicateName,
		fmt.Sprintf("a component named %q is already registered", name),
		nil,
	).WithComponent(name)
}

func ComponentNotFound(what string) *Error {
	return New(
		ErrCodeComponentNotFound,
		fmt.Sprintf("no component registered for %s", what),
		nil,
	)
}

func UnsatisfiedDependency(owner, slot, service string, chain []string, cause error) *Error {
	return New(
		ErrCodeUnsatisfiedDependency,
		fmt.Sprintf("dependency %q of type %s cannot be satisfied", slot, service),
		cause,
	).WithComponent(owner).WithStack(chain)
}

func HandlerState(name string, unresolved []string) *Error {
	return New(
		ErrCodeHandlerState,
		fmt.Sprintf("component is waiting for dependencies: %s", strings.Join(unresolved, ", ")),
		nil,
	).WithComponent(name)
}

func Cycle(chain []string) *Error {
	return New(
		ErrCodeCycle,
		fmt.Sprintf("dependency cycle detected: %s", strings.Join(chain, " -> ")),
		nil,
	).WithStack(chain)
}

func PoolExhausted(name string, max int, cause error) *Error {
	return New(
		ErrCodePoolExhausted,
		fmt.Sprintf("all %d pooled instances are in use", max),
		cause,
	).WithComponent(name)
}

func UnknownInstance(instance any) *Error {
	return New(
		ErrCodeUnknownInstance,
		fmt.Sprintf("instance %T is not tracked by this kernel", instance),
		nil,
	)
}

func ActivationFailed(name string, chain []string, cause error) *Error {
	return New(
		ErrCodeActivationFailed,
		"failed to activate component",
		cause,
	).WithComponent(name).WithStack(chain)
}

func InvalidDescriptor(name, reason string) *Error {
	return New(
		ErrCodeInvalidDescriptor,
		"invalid descriptor: "+reason,
		nil,
	).WithComponent(name)
}

func GenericArguments(name, reason string) *Error {
	return New(
		ErrCodeGenericArguments,
		reason,
		nil,
	).WithComponent(name)
}

func ComponentInUse(name string, dependents []string) *Error {
	return New(
		ErrCodeComponentInUse,
		fmt.Sprintf("component is required by %s", strings.Join(dependents, ", ")),
		nil,
	).WithComponent(name)
}

func KernelDisposed() *Error {
	return New(ErrCodeKernelDisposed, "kernel has been disposed", nil)
}

func DecommissionFailed(name string, cause error) *Error {
	return New(
		ErrCodeDecommissionFailed,
		"failed to decommission instance",
		cause,
	).WithComponent(name)
}

func ModuleApplyFailed(module string, cause error) *Error {
	return New(
		ErrCodeModuleApplyFailed,
		fmt.Sprintf("failed to install module %s", module),
		cause,
	)
}

func TypeMismatch(name, want string, got any) *Error {
	return New(
		ErrCodeTypeMismatch,
		fmt.Sprintf("resolved %T, expected %s", got, want),
		nil,
	).WithComponent(name)
}

func HealthCheckFailed(name string, cause error) *Error {
	return New(
		ErrCodeHealthCheckFailed,
		"health check failed",
		cause,
	).WithComponent(name)
}

// Has reports whether any error in err's chain carries code.
func Has(err error, code ErrorCode) bool {
	return errors.Is(err, Sentinel(code))
}

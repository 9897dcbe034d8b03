package keel

import (
	"errors"

	"github.com/danpasecinic/keel/internal/errdefs"
)

// Error is the coded error returned by every kernel operation. Stack holds the
// chain of component names being activated when the failure happened.
type Error = errdefs.Error

type ErrorCode = errdefs.ErrorCode

const (
	ErrCodeUnknown               = errdefs.ErrCodeUnknown
	ErrCodeDuplicateName         = errdefs.ErrCodeDuplicateName
	ErrCodeComponentNotFound     = errdefs.ErrCodeComponentNotFound
	ErrCodeUnsatisfiedDependency = errdefs.ErrCodeUnsatisfiedDependency
	ErrCodeHandlerState          = errdefs.ErrCodeHandlerState
	ErrCodeCycle                 = errdefs.ErrCodeCycle
	ErrCodePoolExhausted         = errdefs.ErrCodePoolExhausted
	ErrCodeUnknownInstance       = errdefs.ErrCodeUnknownInstance
	ErrCodeActivationFailed      = errdefs.ErrCodeActivationFailed
	ErrCodeInvalidDescriptor     = errdefs.ErrCodeInvalidDescriptor
	ErrCodeGenericArguments      = errdefs.ErrCodeGenericArguments
	ErrCodeComponentInUse        = errdefs.ErrCodeComponentInUse
	ErrCodeKernelDisposed        = errdefs.ErrCodeKernelDisposed
	ErrCodeDecommissionFailed    = errdefs.ErrCodeDecommissionFailed
	ErrCodeValidationFailed      = errdefs.ErrCodeValidationFailed
	ErrCodeModuleApplyFailed     = errdefs.ErrCodeModuleApplyFailed
	ErrCodeTypeMismatch          = errdefs.ErrCodeTypeMismatch
	ErrCodeHealthCheckFailed     = errdefs.ErrCodeHealthCheckFailed
)

// Sentinel values for errors.Is. Matching is by code only.
var (
	ErrDuplicateName         = errdefs.Sentinel(ErrCodeDuplicateName)
	ErrComponentNotFound     = errdefs.Sentinel(ErrCodeComponentNotFound)
	ErrUnsatisfiedDependency = errdefs.Sentinel(ErrCodeUnsatisfiedDependency)
	ErrHandlerState          = errdefs.Sentinel(ErrCodeHandlerState)
	ErrCycle                 = errdefs.Sentinel(ErrCodeCycle)
	ErrPoolExhausted         = errdefs.Sentinel(ErrCodePoolExhausted)
	ErrUnknownInstance       = errdefs.Sentinel(ErrCodeUnknownInstance)
	ErrActivationFailed      = errdefs.Sentinel(ErrCodeActivationFailed)
	ErrInvalidDescriptor     = errdefs.Sentinel(ErrCodeInvalidDescriptor)
	ErrGenericArguments      = errdefs.Sentinel(ErrCodeGenericArguments)
	ErrComponentInUse        = errdefs.Sentinel(ErrCodeComponentInUse)
	ErrKernelDisposed        = errdefs.Sentinel(ErrCodeKernelDisposed)
	ErrDecommissionFailed    = errdefs.Sentinel(ErrCodeDecommissionFailed)
	ErrValidationFailed      = errdefs.Sentinel(ErrCodeValidationFailed)
)

func IsDuplicateName(err error) bool {
	return errdefs.Has(err, ErrCodeDuplicateName)
}

func IsNotFound(err error) bool {
	return errdefs.Has(err, ErrCodeComponentNotFound)
}

func IsUnsatisfiedDependency(err error) bool {
	return errdefs.Has(err, ErrCodeUnsatisfiedDependency)
}

func IsHandlerState(err error) bool {
	return errdefs.Has(err, ErrCodeHandlerState)
}

func IsCycle(err error) bool {
	return errdefs.Has(err, ErrCodeCycle)
}

func IsPoolExhausted(err error) bool {
	return errdefs.Has(err, ErrCodePoolExhausted)
}

func IsUnknownInstance(err error) bool {
	return errdefs.Has(err, ErrCodeUnknownInstance)
}

func IsActivationFailed(err error) bool {
	return errdefs.Has(err, ErrCodeActivationFailed)
}

func IsInvalidDescriptor(err error) bool {
	return errdefs.Has(err, ErrCodeInvalidDescriptor)
}

func IsGenericArguments(err error) bool {
	return errdefs.Has(err, ErrCodeGenericArguments)
}

func IsComponentInUse(err error) bool {
	return errdefs.Has(err, ErrCodeComponentInUse)
}

func IsKernelDisposed(err error) bool {
	return errdefs.Has(err, ErrCodeKernelDisposed)
}

func IsDecommissionFailed(err error) bool {
	return errdefs.Has(err, ErrCodeDecommissionFailed)
}

func IsValidationFailed(err error) bool {
	return errdefs.Has(err, ErrCodeValidationFailed)
}

// Stack returns the activation chain carried by the outermost kernel error in
// err, outermost component first.
func Stack(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stack
	}
	return nil
}

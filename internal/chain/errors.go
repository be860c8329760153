package chain

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes chain errors.
type ErrorCode string

const (
	// ErrCodeMissingMember indicates neither a meta-operation nor (in strict
	// mode) a proxy member matched the key.
	ErrCodeMissingMember ErrorCode = "MISSING_MEMBER"

	// ErrCodeRestricted indicates a prefixed key named a restricted operation.
	ErrCodeRestricted ErrorCode = "RESTRICTED_OPERATION"

	// ErrCodeKeyNotFound indicates retrieve or restore_proxy named something
	// that was never stored.
	ErrCodeKeyNotFound ErrorCode = "KEY_NOT_FOUND"

	// ErrCodeNotCallable indicates a strict chain tried to call a value that
	// is absent or not a function.
	ErrCodeNotCallable ErrorCode = "NOT_CALLABLE"

	// ErrCodeBadArguments indicates arguments that cannot be bound to the
	// callee's parameters.
	ErrCodeBadArguments ErrorCode = "BAD_ARGUMENTS"
)

// Error is returned for failures detected by the chain itself.
// Errors returned by proxy members or tap actions are passed through
// untouched and are never wrapped in an Error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Key is the attribute key or stored name involved, if any.
	Key string

	// Proxy is the proxy the key was looked up on (missing members only).
	Proxy any

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the chain error code carried by err, if any.
func CodeOf(err error) (ErrorCode, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// IsMissingMember reports whether err is a missing member error.
func IsMissingMember(err error) bool { return hasCode(err, ErrCodeMissingMember) }

// IsRestricted reports whether err is a restricted operation error.
func IsRestricted(err error) bool { return hasCode(err, ErrCodeRestricted) }

// IsKeyNotFound reports whether err is a key not found error.
func IsKeyNotFound(err error) bool { return hasCode(err, ErrCodeKeyNotFound) }

// IsNotCallable reports whether err is a not callable error.
func IsNotCallable(err error) bool { return hasCode(err, ErrCodeNotCallable) }

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// NewMissingOperationError creates an Error for a prefixed key with no
// matching meta-operation.
func NewMissingOperationError(key string) *Error {
	return &Error{
		Code:    ErrCodeMissingMember,
		Key:     key,
		Message: "chain has no operation named " + key,
	}
}

// NewMissingMemberError creates an Error for a key the proxy does not have.
func NewMissingMemberError(key string, proxy any) *Error {
	return &Error{
		Code:    ErrCodeMissingMember,
		Key:     key,
		Proxy:   proxy,
		Message: fmt.Sprintf("proxy (%T) does not have %s", proxy, key),
	}
}

// NewRestrictedError creates an Error for a restricted operation.
func NewRestrictedError(key string) *Error {
	return &Error{
		Code:    ErrCodeRestricted,
		Key:     key,
		Message: "not allowed to use " + key,
	}
}

// NewKeyNotFoundError creates an Error for a name that was never recorded.
func NewKeyNotFoundError(kind, name string) *Error {
	return &Error{
		Code:    ErrCodeKeyNotFound,
		Key:     name,
		Message: fmt.Sprintf("no %s named %q", kind, name),
	}
}

// NewNotCallableError creates an Error for calling something that is not a
// function.
func NewNotCallableError(key string, current any) *Error {
	msg := "nothing to call"
	if current != nil {
		msg = fmt.Sprintf("%T is not callable", current)
	}
	return &Error{
		Code:    ErrCodeNotCallable,
		Key:     key,
		Message: msg,
	}
}

// NewBadArgumentsError creates an Error for arguments that do not fit.
func NewBadArgumentsError(callee, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeBadArguments,
		Key:     callee,
		Message: fmt.Sprintf(format, args...),
	}
}

// Package errs defines the typed errors shared by the collector components.
// Every error carries a code and wraps its cause so callers can use errors.As
// and errors.Is across package boundaries.
package errs

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown = "UNKNOWN"
	CodeConfig  = "CONFIG"
	CodeConnect = "CONNECT"
	CodeAuth    = "AUTH"
	CodeStorage = "STORAGE"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// baseError carries the code, message and cause shared by all typed errors.
type baseError struct {
	code    string
	message string
	err     error
}

func (e *baseError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *baseError) Code() string {
	return e.code
}

func (e *baseError) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't contain one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// ConfigError reports a malformed setting. Fatal at startup.
type ConfigError struct {
	baseError
}

func NewConfigError(message string, cause error) error {
	return &ConfigError{baseError{code: CodeConfig, message: message, err: cause}}
}

// ConnectError reports a transport handshake failure. Not retried.
type ConnectError struct {
	baseError
}

func NewConnectError(message string, cause error) error {
	return &ConnectError{baseError{code: CodeConnect, message: message, err: cause}}
}

// AuthError reports a rejected login code or password. Aborts authentication.
type AuthError struct {
	baseError
}

func NewAuthError(message string, cause error) error {
	return &AuthError{baseError{code: CodeAuth, message: message, err: cause}}
}

// StorageError reports a database I/O failure for a single operation.
type StorageError struct {
	baseError
}

func NewStorageError(message string, cause error) error {
	return &StorageError{baseError{code: CodeStorage, message: message, err: cause}}
}

// IsStorage reports whether err contains a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsAuth reports whether err contains an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

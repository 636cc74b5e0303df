// Package telegram defines the transport capability the collector needs from
// a Telegram client and the transport-neutral update model it produces.
// Concrete clients live in the mtproto and botapi subpackages.
package telegram

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by NextUpdate when no update arrived in time.
	ErrTimeout = errors.New("telegram: no update before timeout")

	// ErrPasswordRequired is matched by errors.Is when SignIn needs the second factor.
	ErrPasswordRequired = errors.New("telegram: two-factor password required")

	// ErrLoginUnsupported is returned by transports that cannot log in interactively.
	ErrLoginUnsupported = errors.New("telegram: interactive login not supported by this transport")

	// ErrNotConnected is returned by calls made before Connect or after Close.
	ErrNotConnected = errors.New("telegram: transport not connected")
)

// PasswordRequiredError reports that the account has a cloud password. Hint is
// the account's password hint, possibly empty.
type PasswordRequiredError struct {
	Hint string
}

func (e *PasswordRequiredError) Error() string {
	if e.Hint == "" {
		return ErrPasswordRequired.Error()
	}
	return ErrPasswordRequired.Error() + " (hint: " + e.Hint + ")"
}

// Is makes errors.Is(err, ErrPasswordRequired) match.
func (e *PasswordRequiredError) Is(target error) bool {
	return target == ErrPasswordRequired
}

// LoginToken is the opaque result of a login code request, handed back to SignIn.
type LoginToken struct {
	Phone string
	Hash  string
}

// Transport is an authenticated connection to Telegram.
//
// Calls are made from a single goroutine: the session manager during startup,
// then the ingestion loop.
type Transport interface {
	// Connect opens the connection, resuming the given session bytes when not empty.
	Connect(ctx context.Context, session []byte) error

	// IsAuthorized reports whether the current session is signed in.
	IsAuthorized(ctx context.Context) (bool, error)

	// RequestLoginCode asks Telegram to send a login code to phone.
	RequestLoginCode(ctx context.Context, phone string) (LoginToken, error)

	// SignIn completes login with the received code. It returns an error
	// matching ErrPasswordRequired when a second factor is needed.
	SignIn(ctx context.Context, token LoginToken, code string) error

	// CheckPassword completes login with the two-factor password.
	CheckPassword(ctx context.Context, password string) error

	// NextUpdate blocks until an update arrives, the timeout elapses (ErrTimeout)
	// or ctx is done.
	NextUpdate(ctx context.Context, timeout time.Duration) (*Update, error)

	// Session returns the current session bytes for persistence.
	Session() ([]byte, error)

	// Close disconnects and releases resources.
	Close() error
}

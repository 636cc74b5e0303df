package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/errs"
	"github.com/edgard/tgcollector/internal/logger"
	"github.com/edgard/tgcollector/internal/telegram"
)

// Manager walks a session from disk to an authenticated transport.
// It is used from a single goroutine during startup.
type Manager struct {
	store    *FileStore
	phone    string
	prompter Prompter
	logger   *zap.Logger

	state    State
	envelope *Envelope
}

// NewManager returns a manager for the account identified by phone.
func NewManager(store *FileStore, phone string, prompter Prompter, log *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		phone:    phone,
		prompter: prompter,
		logger:   logger.OrNop(log).Named("session"),
		state:    NoSession,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Envelope returns the acquired envelope, or nil before Acquire.
func (m *Manager) Envelope() *Envelope {
	return m.envelope
}

// Acquire loads the stored session, or creates and persists a new one when the
// file is missing or unreadable. Only a failure to create is returned.
func (m *Manager) Acquire() (*Envelope, error) {
	env, err := m.store.Load()
	if err == nil {
		m.logger.Info("Loaded existing session",
			zap.String("path", m.store.Path()), zap.Bool("authorized", env.Authorized))
		m.envelope = env
		m.state = SessionLoaded
		return env, nil
	}

	if errors.Is(err, ErrNotFound) {
		m.logger.Info("No stored session, creating one", zap.String("path", m.store.Path()))
	} else {
		m.logger.Warn("Failed to load session, creating a new one",
			zap.String("path", m.store.Path()), zap.Error(err))
	}

	env, err = m.store.Create(m.phone)
	if err != nil {
		return nil, errs.NewConnectError("failed to create session", err)
	}

	m.logger.Info("Created new session", zap.String("path", m.store.Path()))
	m.envelope = env
	m.state = SessionCreated
	return env, nil
}

// Connect acquires the session when needed and opens the transport with it.
func (m *Manager) Connect(ctx context.Context, t telegram.Transport) error {
	if m.envelope == nil {
		if _, err := m.Acquire(); err != nil {
			return err
		}
	}

	if err := t.Connect(ctx, m.envelope.Data); err != nil {
		return errs.NewConnectError("failed to connect to telegram", err)
	}
	m.state = Unauthenticated
	return nil
}

// Authenticate signs the transport in unless it already is. Any failure other
// than the second-factor request aborts the attempt with an AuthError.
func (m *Manager) Authenticate(ctx context.Context, t telegram.Transport) error {
	authorized, err := t.IsAuthorized(ctx)
	if err != nil {
		return errs.NewAuthError("failed to check authorization", err)
	}
	if authorized {
		m.logger.Info("Session already authorized")
		m.state = Authenticated
		return nil
	}

	if m.phone == "" {
		return errs.NewAuthError("phone number required to log in", nil)
	}

	m.state = AwaitingCode
	token, err := t.RequestLoginCode(ctx, m.phone)
	if err != nil {
		return errs.NewAuthError("failed to request login code", err)
	}
	m.logger.Info("Login code sent", zap.String("phone", maskPhone(m.phone)))

	code, err := m.prompter.Code(ctx, m.phone)
	if err != nil {
		return errs.NewAuthError("failed to read login code", err)
	}

	err = t.SignIn(ctx, token, code)
	if errors.Is(err, telegram.ErrPasswordRequired) {
		m.state = AwaitingSecondFactor
		err = m.checkPassword(ctx, t, err)
	}
	if err != nil {
		var appErr errs.ApplicationError
		if errors.As(err, &appErr) {
			return err
		}
		return errs.NewAuthError("failed to sign in", err)
	}

	m.logger.Info("Login successful")
	m.state = Authenticated
	return nil
}

func (m *Manager) checkPassword(ctx context.Context, t telegram.Transport, signInErr error) error {
	var hint string
	var pwErr *telegram.PasswordRequiredError
	if errors.As(signInErr, &pwErr) {
		hint = pwErr.Hint
	}
	m.logger.Info("Two-factor password required")

	password, err := m.prompter.Password(ctx, hint)
	if err != nil {
		return errs.NewAuthError("failed to read password", err)
	}
	if err := t.CheckPassword(ctx, password); err != nil {
		return errs.NewAuthError("two-factor password rejected", err)
	}
	return nil
}

// Persist stores the transport's session bytes and authorization state. A
// failure is logged only: the connection stays usable, it just will not
// survive a restart.
func (m *Manager) Persist(t telegram.Transport) {
	if m.envelope == nil {
		m.envelope = &Envelope{Phone: m.phone}
	}

	data, err := t.Session()
	if err != nil {
		m.logger.Warn("Failed to read session from transport", zap.Error(err))
		return
	}
	m.envelope.Data = data
	m.envelope.Authorized = m.state == Authenticated
	if m.envelope.CreatedAt.IsZero() {
		m.envelope.CreatedAt = m.store.now()
	}

	if err := m.store.Save(m.envelope); err != nil {
		m.logger.Warn("Failed to persist session", zap.String("path", m.store.Path()), zap.Error(err))
		return
	}
	m.logger.Info("Session saved", zap.String("path", m.store.Path()))
}

// Open runs the whole lifecycle: acquire, connect, authenticate and persist.
// On error the transport is closed.
func (m *Manager) Open(ctx context.Context, t telegram.Transport) error {
	if err := m.Connect(ctx, t); err != nil {
		return err
	}
	if err := m.Authenticate(ctx, t); err != nil {
		if closeErr := t.Close(); closeErr != nil {
			m.logger.Warn("Error closing transport after failed login", zap.Error(closeErr))
		}
		return err
	}
	m.Persist(t)
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:len(phone)-4] + "****"
}

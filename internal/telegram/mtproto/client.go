// Package mtproto implements the collector transport for user accounts on top
// of the gotd MTProto client.
package mtproto

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gotd "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/logger"
	"github.com/edgard/tgcollector/internal/telegram"
)

// closeTimeout bounds how long Close waits for the client to stop.
const closeTimeout = 10 * time.Second

// Config holds the application credentials issued by my.telegram.org.
type Config struct {
	AppID      int
	AppHash    string
	BufferSize int
}

// Client is a telegram.Transport backed by gotd.
type Client struct {
	cfg     Config
	logger  *zap.Logger
	storage *memoryStorage
	updates chan *telegram.Update

	mu        sync.Mutex
	client    *gotd.Client
	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
	listening bool
}

var _ telegram.Transport = (*Client)(nil)

// New returns a disconnected client.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &Client{
		cfg:     cfg,
		logger:  logger.OrNop(log).Named("mtproto"),
		storage: &memoryStorage{},
		updates: make(chan *telegram.Update, cfg.BufferSize),
	}
}

// Connect starts the client in the background, seeded with session, and
// returns once it is ready for calls.
func (c *Client) Connect(ctx context.Context, session []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return errors.New("mtproto: already connected")
	}
	c.storage.set(session)

	client := gotd.NewClient(c.cfg.AppID, c.cfg.AppHash, gotd.Options{
		Logger:         c.logger.Named("gotd"),
		SessionStorage: c.storage,
		UpdateHandler:  newUpdateHandler(c.push),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan struct{})

	// runErr is written before done is closed and read only after it is.
	go func() {
		err := client.Run(runCtx, func(ctx context.Context) error {
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("MTProto client stopped", zap.Error(err))
		}
		c.runErr = err
		close(done)
	}()

	select {
	case <-ready:
	case <-done:
		cancel()
		if c.runErr == nil {
			return errors.New("mtproto: client exited during connect")
		}
		return fmt.Errorf("mtproto: client exited during connect: %w", c.runErr)
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}

	c.client = client
	c.cancel = cancel
	c.done = done
	c.logger.Info("Connected to Telegram", zap.Int("app_id", c.cfg.AppID))
	return nil
}

func (c *Client) api() (*gotd.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, telegram.ErrNotConnected
	}
	select {
	case <-c.done:
		if c.runErr != nil {
			return nil, fmt.Errorf("mtproto: client stopped: %w", c.runErr)
		}
		return nil, telegram.ErrNotConnected
	default:
	}
	return c.client, nil
}

// IsAuthorized reports whether the session is signed in.
func (c *Client) IsAuthorized(ctx context.Context) (bool, error) {
	client, err := c.api()
	if err != nil {
		return false, err
	}
	status, err := client.Auth().Status(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get auth status: %w", err)
	}
	return status.Authorized, nil
}

// RequestLoginCode sends a login code to phone.
func (c *Client) RequestLoginCode(ctx context.Context, phone string) (telegram.LoginToken, error) {
	client, err := c.api()
	if err != nil {
		return telegram.LoginToken{}, err
	}

	sent, err := client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return telegram.LoginToken{}, fmt.Errorf("failed to send login code: %w", err)
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return telegram.LoginToken{}, fmt.Errorf("unexpected sent code response %T", sent)
	}
	return telegram.LoginToken{Phone: phone, Hash: code.PhoneCodeHash}, nil
}

// SignIn submits the login code. A cloud password on the account yields a
// *telegram.PasswordRequiredError carrying the password hint.
func (c *Client) SignIn(ctx context.Context, token telegram.LoginToken, code string) error {
	client, err := c.api()
	if err != nil {
		return err
	}

	_, err = client.Auth().SignIn(ctx, token.Phone, code, token.Hash)
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		pwErr := &telegram.PasswordRequiredError{}
		if pw, pErr := client.API().AccountGetPassword(ctx); pErr == nil {
			pwErr.Hint, _ = pw.GetHint()
		} else {
			c.logger.Debug("Failed to fetch password hint", zap.Error(pErr))
		}
		return pwErr
	}
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	return nil
}

// CheckPassword completes login with the two-factor password.
func (c *Client) CheckPassword(ctx context.Context, password string) error {
	client, err := c.api()
	if err != nil {
		return err
	}
	if _, err := client.Auth().Password(ctx, password); err != nil {
		return fmt.Errorf("failed to check password: %w", err)
	}
	return nil
}

// NextUpdate waits for the next new message.
func (c *Client) NextUpdate(ctx context.Context, timeout time.Duration) (*telegram.Update, error) {
	if err := c.startListening(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case update := <-c.updates:
		return update, nil
	case <-timer.C:
		return nil, telegram.ErrTimeout
	case <-done:
		_, err := c.api()
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startListening asks the server for the update state once, which makes it
// start pushing updates to this session.
func (c *Client) startListening(ctx context.Context) error {
	c.mu.Lock()
	started := c.listening
	c.mu.Unlock()
	if started {
		return nil
	}

	client, err := c.api()
	if err != nil {
		return err
	}
	if _, err := client.API().UpdatesGetState(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to updates: %w", err)
	}

	c.mu.Lock()
	c.listening = true
	c.mu.Unlock()
	c.logger.Info("Subscribed to updates")
	return nil
}

func (c *Client) push(ctx context.Context, e tg.Entities, raw tg.MessageClass) {
	msg := convertMessage(e, raw)
	if msg == nil {
		return
	}
	select {
	case c.updates <- &telegram.Update{Message: msg}:
	case <-ctx.Done():
	}
}

// Session returns the current session bytes.
func (c *Client) Session() ([]byte, error) {
	return c.storage.get(), nil
}

// Close stops the client and waits for it to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.client = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		c.logger.Info("Disconnected from Telegram")
		return nil
	case <-time.After(closeTimeout):
		return errors.New("mtproto: timed out waiting for client to stop")
	}
}

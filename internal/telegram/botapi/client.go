// Package botapi implements the collector transport for bot accounts on top of
// the go-telegram/bot long-polling client.
package botapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/logger"
	"github.com/edgard/tgcollector/internal/telegram"
)

const closeTimeout = 10 * time.Second

// Config holds the bot credentials.
type Config struct {
	Token      string
	BufferSize int
}

// Client is a telegram.Transport backed by the Bot API. Bots authenticate with
// their token, so the interactive login calls are unsupported.
type Client struct {
	cfg     Config
	logger  *zap.Logger
	updates chan *telegram.Update

	mu     sync.Mutex
	bot    *tgbot.Bot
	cancel context.CancelFunc
	done   chan struct{}
}

var _ telegram.Transport = (*Client)(nil)

// New returns a disconnected client.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &Client{
		cfg:     cfg,
		logger:  logger.OrNop(log).Named("botapi"),
		updates: make(chan *telegram.Update, cfg.BufferSize),
	}
}

// Connect creates the bot and starts long polling in the background. The
// session argument is ignored.
func (c *Client) Connect(ctx context.Context, _ []byte) error {
	if c.cfg.Token == "" {
		return errors.New("botapi: bot token cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot != nil {
		return errors.New("botapi: already connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := tgbot.New(c.cfg.Token,
		tgbot.WithSkipGetMe(),
		tgbot.WithMiddlewares(logger.Middleware(c.logger)),
		tgbot.WithDefaultHandler(c.handle),
		tgbot.WithErrorsHandler(func(err error) {
			c.logger.Warn("Bot API polling error", zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Start(runCtx)
	}()

	c.bot = b
	c.cancel = cancel
	c.done = done
	c.logger.Info("Bot API polling started")
	return nil
}

func (c *Client) handle(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	converted := convertUpdate(update)
	if converted == nil {
		return
	}
	select {
	case c.updates <- converted:
	case <-ctx.Done():
	}
}

func (c *Client) api() (*tgbot.Bot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot == nil {
		return nil, telegram.ErrNotConnected
	}
	return c.bot, nil
}

// IsAuthorized reports whether the token is accepted by getMe.
func (c *Client) IsAuthorized(ctx context.Context) (bool, error) {
	b, err := c.api()
	if err != nil {
		return false, err
	}
	me, err := b.GetMe(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get bot info: %w", err)
	}
	c.logger.Info("Retrieved bot info", zap.Int64("bot_id", me.ID), zap.String("bot_username", me.Username))
	return true, nil
}

// RequestLoginCode is unsupported for bots.
func (c *Client) RequestLoginCode(context.Context, string) (telegram.LoginToken, error) {
	return telegram.LoginToken{}, telegram.ErrLoginUnsupported
}

// SignIn is unsupported for bots.
func (c *Client) SignIn(context.Context, telegram.LoginToken, string) error {
	return telegram.ErrLoginUnsupported
}

// CheckPassword is unsupported for bots.
func (c *Client) CheckPassword(context.Context, string) error {
	return telegram.ErrLoginUnsupported
}

// NextUpdate waits for the next new message or channel post.
func (c *Client) NextUpdate(ctx context.Context, timeout time.Duration) (*telegram.Update, error) {
	if _, err := c.api(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case update := <-c.updates:
		return update, nil
	case <-timer.C:
		return nil, telegram.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Session returns nil; the token is the only credential.
func (c *Client) Session() ([]byte, error) {
	return nil, nil
}

// Close stops polling and waits for the poller to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.bot, c.cancel = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		c.logger.Info("Bot API polling stopped")
		return nil
	case <-time.After(closeTimeout):
		return errors.New("botapi: timed out waiting for poller to stop")
	}
}

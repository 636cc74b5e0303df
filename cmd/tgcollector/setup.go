package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/config"
	"github.com/edgard/tgcollector/internal/database"
	"github.com/edgard/tgcollector/internal/logger"
	"github.com/edgard/tgcollector/internal/session"
	"github.com/edgard/tgcollector/internal/telegram"
	"github.com/edgard/tgcollector/internal/telegram/botapi"
	"github.com/edgard/tgcollector/internal/telegram/mtproto"
)

// setup loads the configuration and builds the logger every command shares.
// Errors are printed here because no logger exists yet.
func setup(flags *rootFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: flags.configFile, EnvFile: flags.envFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return nil, nil, err
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, nil, err
	}
	log.Debug("Logger initialized", zap.String("level", cfg.Log.Level), zap.String("format", cfg.Log.Format))
	return cfg, log, nil
}

func poolConfig(cfg *config.Config) database.PoolConfig {
	return database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
}

// newTransport builds the transport selected by the configured credentials.
//
//nolint:ireturn // the transport is chosen at runtime
func newTransport(cfg *config.Config, log *zap.Logger) telegram.Transport {
	if cfg.Transport() == config.TransportBotAPI {
		return botapi.New(botapi.Config{Token: cfg.Telegram.BotToken, BufferSize: cfg.Ingest.BufferSize}, log)
	}
	return mtproto.New(mtproto.Config{
		AppID:      cfg.Telegram.APIID,
		AppHash:    cfg.Telegram.APIHash,
		BufferSize: cfg.Ingest.BufferSize,
	}, log)
}

// newPrompter answers login prompts from the configuration when a code is
// preset, otherwise from the terminal.
//
//nolint:ireturn // the prompter is chosen at runtime
func newPrompter(cfg *config.Config) session.Prompter {
	if cfg.Telegram.LoginCode != "" {
		return session.StaticPrompter{LoginCode: cfg.Telegram.LoginCode, LoginPassword: cfg.Telegram.Password}
	}
	return session.NewTerminalPrompter(os.Stdin, os.Stdout)
}

func newSessionManager(cfg *config.Config, log *zap.Logger) *session.Manager {
	return session.NewManager(
		session.NewFileStore(cfg.Telegram.SessionPath),
		cfg.Telegram.PhoneNumber,
		newPrompter(cfg),
		log,
	)
}

func warnMissingCredentials(cfg *config.Config, log *zap.Logger) {
	log.Warn("Telegram credentials missing, running without ingestion",
		zap.String("missing", strings.Join(cfg.MissingTelegramSettings(), ", ")))
}

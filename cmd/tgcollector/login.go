package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/errs"
)

func newLoginCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate the account and store the session, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if !cfg.IsTelegramConfigured() {
				warnMissingCredentials(cfg, log)
				return errs.NewConfigError("telegram credentials missing", nil)
			}

			transport := newTransport(cfg, log)
			sessions := newSessionManager(cfg, log)
			if err := sessions.Open(cmd.Context(), transport); err != nil {
				log.Error("Login failed", zap.Error(err))
				return err
			}
			if err := transport.Close(); err != nil {
				log.Warn("Error closing transport", zap.Error(err))
			}

			log.Info("Logged in", zap.String("session_path", cfg.Telegram.SessionPath), zap.Stringer("state", sessions.State()))
			return nil
		},
	}
}

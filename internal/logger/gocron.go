package logger

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// gocronLogger implements gocron.Logger on top of a zap logger.
type gocronLogger struct {
	log *zap.SugaredLogger
}

// NewGocronLogger returns a gocron.Logger writing through log.
//
//nolint:ireturn // Interface return is required by gocron's API contract
func NewGocronLogger(log *zap.Logger) gocron.Logger {
	return &gocronLogger{log: OrNop(log).Named("gocron").Sugar()}
}

func (l *gocronLogger) Debug(msg string, args ...any) {
	l.log.Debugw(msg, schedulerArgs(args)...)
}

func (l *gocronLogger) Error(msg string, args ...any) {
	l.log.Errorw(msg, schedulerArgs(args)...)
}

func (l *gocronLogger) Info(msg string, args ...any) {
	l.log.Infow(msg, schedulerArgs(args)...)
}

func (l *gocronLogger) Warn(msg string, args ...any) {
	l.log.Warnw(msg, schedulerArgs(args)...)
}

// schedulerArgs turns gocron's loose key/value pairs into zap-friendly ones:
// keys become strings, errors become zap.Error fields and a dangling value is
// kept under "extra".
func schedulerArgs(args []any) []any {
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out = append(out, "extra", args[i])
			break
		}

		key := fmt.Sprint(args[i])
		if err, ok := args[i+1].(error); ok && key == "error" {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, key, args[i+1])
	}
	return out
}

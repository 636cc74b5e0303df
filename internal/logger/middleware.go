package logger

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Middleware logs every Bot API update handled by the wrapped handler.
func Middleware(log *zap.Logger) bot.Middleware {
	log = OrNop(log).Named("botapi")

	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			fields := []zap.Field{zap.Int64("update_id", update.ID)}

			msg, updateType := update.Message, "message"
			if msg == nil {
				msg, updateType = update.ChannelPost, "channel_post"
			}
			if msg != nil {
				fields = append(fields,
					zap.Int("message_id", msg.ID),
					zap.Int64("chat_id", msg.Chat.ID),
				)
				if msg.From != nil {
					fields = append(fields, zap.Int64("user_id", msg.From.ID))
				}
			} else {
				updateType = "other"
			}
			fields = append(fields, zap.String("update_type", updateType))

			next(ctx, b, update)

			log.Debug("Handled update", append(fields, zap.Duration("duration", time.Since(start)))...)
		}
	}
}

// Package normalize maps transport updates onto stored users, chats and messages.
package normalize

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/database"
	"github.com/edgard/tgcollector/internal/logger"
	"github.com/edgard/tgcollector/internal/telegram"
)

// maxEpoch is the last second representable in the store's timestamp columns
// (9999-12-31T23:59:59Z).
const maxEpoch = 253402300799

// Result is the outcome of processing one update.
type Result int

// Processing outcomes.
const (
	ResultStored Result = iota
	ResultDuplicate
	ResultFailed
	ResultChatFailed
	ResultSkipped
)

func (r Result) String() string {
	switch r {
	case ResultStored:
		return "stored"
	case ResultDuplicate:
		return "duplicate"
	case ResultFailed:
		return "failed"
	case ResultChatFailed:
		return "chat_failed"
	case ResultSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Normalizer writes each update as one user upsert, one chat upsert and one
// message insert, in that order. The writes are independent: an earlier one
// is kept even when a later one fails.
type Normalizer struct {
	store  database.Store
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock sets the time used when an event timestamp is out of range.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// New returns a normalizer writing to store.
func New(store database.Store, log *zap.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		store:  store,
		logger: logger.OrNop(log).Named("normalize"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Process stores one update. Failures are logged here and reported through
// the Result; nothing is returned to the caller as an error.
func (n *Normalizer) Process(ctx context.Context, update *telegram.Update) Result {
	if update == nil || update.Message == nil {
		return ResultSkipped
	}
	m := update.Message
	log := n.logger.With(zap.Int64("chat_id", m.Chat.ID), zap.Int64("message_id", m.ID))

	var userID *string
	if m.From != nil {
		user, err := n.store.UpsertUser(ctx, userRecord(m.From))
		if err != nil {
			log.Warn("Failed to store sender, keeping message without user",
				zap.Int64("user_id", m.From.ID), zap.Error(err))
		} else {
			userID = &user.ID
		}
	}

	chat, err := n.store.UpsertChat(ctx, chatRecord(&m.Chat))
	if err != nil {
		log.Warn("Failed to store chat, dropping update", zap.Error(err))
		return ResultChatFailed
	}

	payload := Classify(m)
	record := n.messageRecord(m, payload)
	record.ChatID = chat.ID
	record.UserID = userID

	stored, err := n.store.InsertMessage(ctx, record)
	if err != nil {
		log.Warn("Failed to store message", zap.Error(err))
		return ResultFailed
	}
	if stored == nil {
		log.Info("Duplicate message ignored")
		return ResultDuplicate
	}

	log.Info("Message stored", zap.String("kind", string(payload.Kind())))
	return ResultStored
}

func userRecord(u *telegram.User) *database.User {
	// Phone numbers are not part of message events and stay unset here.
	return &database.User{
		RemoteID:     u.ID,
		Username:     optional(u.Username),
		FirstName:    optional(u.FirstName),
		LastName:     optional(u.LastName),
		LanguageCode: optional(u.LanguageCode),
		IsBot:        u.IsBot,
		IsVerified:   u.IsVerified,
		IsPremium:    u.IsPremium,
	}
}

func chatRecord(c *telegram.Chat) *database.Chat {
	record := &database.Chat{RemoteID: c.ID}

	switch c.Kind {
	case telegram.ChatPrivate:
		record.Kind = database.ChatPrivate
		record.Title = optional(PrivateTitle(c.FirstName, c.LastName))
		record.Username = optional(c.Username)
	case telegram.ChatGroup:
		record.Kind = database.ChatGroup
		record.Title = optional(c.Title)
		record.MemberCount = c.MemberCount
	case telegram.ChatSupergroup, telegram.ChatChannel:
		record.Kind = database.ChatKind(c.Kind)
		record.Title = optional(c.Title)
		record.Username = optional(c.Username)
		record.Description = optional(c.Description)
		record.MemberCount = c.MemberCount
	default:
		// The schema rejects anything else; surface it as a chat failure.
		record.Kind = database.ChatKind(c.Kind)
	}

	return record
}

// PrivateTitle joins first and last name with a space, omitting an absent
// last name, and trims the result.
func PrivateTitle(first, last string) string {
	if last == "" {
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(first + " " + last)
}

func (n *Normalizer) messageRecord(m *telegram.Message, payload Payload) *database.Message {
	record := &database.Message{
		RemoteChatID:    m.Chat.ID,
		RemoteMessageID: m.ID,
		Kind:            payload.Kind(),
		Date:            n.epoch(m.Date),
	}
	if m.EditDate != 0 {
		edited := n.epoch(m.EditDate)
		record.EditDate = &edited
	}
	if m.ReplyToMessageID != 0 {
		reply := m.ReplyToMessageID
		record.ReplyToMessageID = &reply
	}
	payload.flatten(record)
	return record
}

// epoch converts Unix seconds to UTC, falling back to the processing time
// when the value cannot be stored.
func (n *Normalizer) epoch(sec int64) time.Time {
	if sec < 0 || sec > maxEpoch {
		n.logger.Debug("Event timestamp out of range, using processing time", zap.Int64("epoch", sec))
		return n.now()
	}
	return time.Unix(sec, 0).UTC()
}

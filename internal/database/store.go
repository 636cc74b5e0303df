package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/errs"
	"github.com/edgard/tgcollector/internal/logger"
)

// Store defines the interface for database operations.
// Each operation is atomic on its own; nothing spans entity kinds.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertUser inserts a user or, when the remote id exists, overwrites its
	// mutable fields and refreshes updated_at. It returns the stored row.
	UpsertUser(ctx context.Context, user *User) (*User, error)

	// FindUserByRemoteID returns nil, nil when no user has that remote id.
	FindUserByRemoteID(ctx context.Context, remoteID int64) (*User, error)

	// UpsertChat inserts a chat or updates the existing row with the same remote id.
	UpsertChat(ctx context.Context, chat *Chat) (*Chat, error)

	// FindChatByRemoteID returns nil, nil when no chat has that remote id.
	FindChatByRemoteID(ctx context.Context, remoteID int64) (*Chat, error)

	// InsertMessage stores a message unless one with the same remote chat and
	// message id exists, in which case it returns nil, nil.
	InsertMessage(ctx context.Context, message *Message) (*Message, error)

	// FindMessage returns nil, nil when the message is not stored.
	FindMessage(ctx context.Context, remoteChatID, remoteMessageID int64) (*Message, error)

	// Stats counts rows per table.
	Stats(ctx context.Context) (*Stats, error)

	// RunMaintenance performs database maintenance tasks like VACUUM.
	RunMaintenance(ctx context.Context) error
}

// Option configures a Store.
type Option func(*sqlxStore)

// WithClock replaces the time source used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *sqlxStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the surrogate key generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *sqlxStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance; a nil logger discards output.
//
//nolint:ireturn // Store is the package's public contract
func NewStore(db *sqlx.DB, log *zap.Logger, opts ...Option) Store {
	s := &sqlxStore{
		db:     db,
		logger: logger.OrNop(log).Named("store"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.NewStorageError("database ping failed", err)
	}
	return nil
}

const userColumns = `id, remote_id, username, first_name, last_name, phone_number, language_code,
	is_bot, is_verified, is_premium, created_at, updated_at`

const upsertUserQuery = `
	INSERT INTO users (` + userColumns + `)
	VALUES (:id, :remote_id, :username, :first_name, :last_name, :phone_number, :language_code,
		:is_bot, :is_verified, :is_premium, :created_at, :updated_at)
	ON CONFLICT (remote_id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		phone_number = excluded.phone_number,
		language_code = excluded.language_code,
		is_bot = excluded.is_bot,
		is_verified = excluded.is_verified,
		is_premium = excluded.is_premium,
		updated_at = excluded.updated_at
	RETURNING ` + userColumns

// UpsertUser inserts or updates a user keyed by remote id.
func (s *sqlxStore) UpsertUser(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, errs.NewStorageError("cannot upsert nil user", nil)
	}

	now := s.now()
	row := *user
	row.ID = s.newID()
	row.CreatedAt = now
	row.UpdatedAt = now

	var stored User
	if err := s.namedGet(ctx, &stored, upsertUserQuery, &row); err != nil {
		s.logger.Error("Error upserting user", zap.Int64("remote_id", user.RemoteID), zap.Error(err))
		return nil, errs.NewStorageError(fmt.Sprintf("failed to upsert user %d", user.RemoteID), err)
	}

	s.logger.Debug("User upserted", zap.Int64("remote_id", stored.RemoteID), zap.String("id", stored.ID))
	return &stored, nil
}

// FindUserByRemoteID retrieves a user by the service-assigned id.
func (s *sqlxStore) FindUserByRemoteID(ctx context.Context, remoteID int64) (*User, error) {
	var user User
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE remote_id = ?`)
	if err := s.db.GetContext(ctx, &user, query, remoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Error("Error fetching user", zap.Int64("remote_id", remoteID), zap.Error(err))
		return nil, errs.NewStorageError(fmt.Sprintf("failed to find user %d", remoteID), err)
	}
	return &user, nil
}

const chatColumns = `id, remote_id, kind, title, username, description, invite_link, member_count,
	is_verified, is_restricted, is_scam, is_fake, created_at, updated_at`

const upsertChatQuery = `
	INSERT INTO chats (` + chatColumns + `)
	VALUES (:id, :remote_id, :kind, :title, :username, :description, :invite_link, :member_count,
		:is_verified, :is_restricted, :is_scam, :is_fake, :created_at, :updated_at)
	ON CONFLICT (remote_id) DO UPDATE SET
		kind = excluded.kind,
		title = excluded.title,
		username = excluded.username,
		description = excluded.description,
		invite_link = excluded.invite_link,
		member_count = excluded.member_count,
		is_verified = excluded.is_verified,
		is_restricted = excluded.is_restricted,
		is_scam = excluded.is_scam,
		is_fake = excluded.is_fake,
		updated_at = excluded.updated_at
	RETURNING ` + chatColumns

// UpsertChat inserts or updates a chat keyed by remote id.
func (s *sqlxStore) UpsertChat(ctx context.Context, chat *Chat) (*Chat, error) {
	if chat == nil {
		return nil, errs.NewStorageError("cannot upsert nil chat", nil)
	}

	now := s.now()
	row := *chat
	row.ID = s.newID()
	row.CreatedAt = now
	row.UpdatedAt = now

	var stored Chat
	if err := s.namedGet(ctx, &stored, upsertChatQuery, &row); err != nil {
		s.logger.Error("Error upserting chat", zap.Int64("remote_id", chat.RemoteID), zap.Error(err))
		return nil, errs.NewStorageError(fmt.Sprintf("failed to upsert chat %d", chat.RemoteID), err)
	}

	s.logger.Debug("Chat upserted", zap.Int64("remote_id", stored.RemoteID), zap.String("kind", string(stored.Kind)))
	return &stored, nil
}

// FindChatByRemoteID retrieves a chat by the service-assigned id.
func (s *sqlxStore) FindChatByRemoteID(ctx context.Context, remoteID int64) (*Chat, error) {
	var chat Chat
	query := s.db.Rebind(`SELECT ` + chatColumns + ` FROM chats WHERE remote_id = ?`)
	if err := s.db.GetContext(ctx, &chat, query, remoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Error("Error fetching chat", zap.Int64("remote_id", remoteID), zap.Error(err))
		return nil, errs.NewStorageError(fmt.Sprintf("failed to find chat %d", remoteID), err)
	}
	return &chat, nil
}

const messageColumns = `id, remote_chat_id, remote_message_id, chat_id, user_id, text, kind, date, edit_date,
	forward_from_user_id, forward_from_chat_id, forward_date, reply_to_message_id,
	media_file_id, media_file_unique_id, media_file_size, media_mime_type, media_file_name,
	location_latitude, location_longitude,
	contact_phone_number, contact_first_name, contact_last_name, created_at`

const insertMessageQuery = `
	INSERT INTO messages (` + messageColumns + `)
	VALUES (:id, :remote_chat_id, :remote_message_id, :chat_id, :user_id, :text, :kind, :date, :edit_date,
		:forward_from_user_id, :forward_from_chat_id, :forward_date, :reply_to_message_id,
		:media_file_id, :media_file_unique_id, :media_file_size, :media_mime_type, :media_file_name,
		:location_latitude, :location_longitude,
		:contact_phone_number, :contact_first_name, :contact_last_name, :created_at)
	ON CONFLICT (remote_chat_id, remote_message_id) DO NOTHING
	RETURNING ` + messageColumns

// InsertMessage stores a message, suppressing duplicates.
func (s *sqlxStore) InsertMessage(ctx context.Context, message *Message) (*Message, error) {
	if message == nil {
		return nil, errs.NewStorageError("cannot insert nil message", nil)
	}
	if message.ChatID == "" {
		return nil, errs.NewStorageError("message must reference a stored chat", nil)
	}
	if message.Date.IsZero() {
		return nil, errs.NewStorageError("message must have a non-zero date", nil)
	}

	row := *message
	row.ID = s.newID()
	row.CreatedAt = s.now()

	var stored Message
	err := s.namedGet(ctx, &stored, insertMessageQuery, &row)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("Duplicate message suppressed",
			zap.Int64("remote_chat_id", message.RemoteChatID),
			zap.Int64("remote_message_id", message.RemoteMessageID))
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Error inserting message",
			zap.Int64("remote_chat_id", message.RemoteChatID),
			zap.Int64("remote_message_id", message.RemoteMessageID),
			zap.Error(err))
		return nil, errs.NewStorageError(
			fmt.Sprintf("failed to insert message %d in chat %d", message.RemoteMessageID, message.RemoteChatID), err)
	}

	return &stored, nil
}

// FindMessage retrieves a message by its remote coordinates.
func (s *sqlxStore) FindMessage(ctx context.Context, remoteChatID, remoteMessageID int64) (*Message, error) {
	var message Message
	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages
		WHERE remote_chat_id = ? AND remote_message_id = ?`)
	if err := s.db.GetContext(ctx, &message, query, remoteChatID, remoteMessageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Error("Error fetching message",
			zap.Int64("remote_chat_id", remoteChatID),
			zap.Int64("remote_message_id", remoteMessageID),
			zap.Error(err))
		return nil, errs.NewStorageError("failed to find message", err)
	}
	return &message, nil
}

// Stats counts rows in each table.
func (s *sqlxStore) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	query := `SELECT
		(SELECT COUNT(*) FROM users) AS users,
		(SELECT COUNT(*) FROM chats) AS chats,
		(SELECT COUNT(*) FROM messages) AS messages`
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		s.logger.Error("Error counting rows", zap.Error(err))
		return nil, errs.NewStorageError("failed to collect table statistics", err)
	}
	return &stats, nil
}

// RunMaintenance reclaims space on SQLite and refreshes planner statistics on Postgres.
func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	statements := []string{"VACUUM;", "ANALYZE;"}
	if s.db.DriverName() == DriverPostgres {
		statements = []string{"ANALYZE;"}
	}

	s.logger.Info("Running SQL maintenance", zap.String("driver", s.db.DriverName()))
	start := time.Now()
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error("SQL maintenance statement failed", zap.String("statement", stmt), zap.Error(err))
			return errs.NewStorageError("failed to run "+stmt, err)
		}
	}
	s.logger.Info("SQL maintenance completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// namedGet runs a named query expected to return exactly one row into dest.
// It returns sql.ErrNoRows when the statement produced no row.
func (s *sqlxStore) namedGet(ctx context.Context, dest any, query string, arg any) error {
	stmt, err := s.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			s.logger.Warn("Error closing prepared statement", zap.Error(closeErr))
		}
	}()

	return stmt.GetContext(ctx, dest, arg)
}

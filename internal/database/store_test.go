package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/edgard/tgcollector/internal/errs"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), PoolConfig{}, nil)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { CloseDB(db, nil) })

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(db, nil, WithClock(clock.Now))
}

func strPtr(s string) *string { return &s }

func mustChat(t *testing.T, store Store, remoteID int64) *Chat {
	t.Helper()
	chat, err := store.UpsertChat(context.Background(), &Chat{RemoteID: remoteID, Kind: ChatGroup, Title: strPtr("Chat")})
	if err != nil {
		t.Fatalf("UpsertChat() error = %v", err)
	}
	return chat
}

func TestUpsertUserTwiceKeepsOneRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.UpsertUser(ctx, &User{RemoteID: 42, Username: strPtr("ana"), FirstName: strPtr("Ana")})
	if err != nil {
		t.Fatalf("first UpsertUser() error = %v", err)
	}
	second, err := store.UpsertUser(ctx, &User{RemoteID: 42, Username: strPtr("ana_b"), FirstName: strPtr("Ana Maria"), IsPremium: true})
	if err != nil {
		t.Fatalf("second UpsertUser() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("surrogate id changed on conflict: %q -> %q", first.ID, second.ID)
	}
	if second.Username == nil || *second.Username != "ana_b" {
		t.Errorf("Username = %v, want ana_b", second.Username)
	}
	if second.FirstName == nil || *second.FirstName != "Ana Maria" {
		t.Errorf("FirstName = %v, want the latest display name", second.FirstName)
	}

	stored, err := store.FindUserByRemoteID(ctx, 42)
	if err != nil || stored == nil {
		t.Fatalf("FindUserByRemoteID() = %v, %v", stored, err)
	}
	if stored.FirstName == nil || *stored.FirstName != "Ana Maria" {
		t.Errorf("stored FirstName = %v, want Ana Maria", stored.FirstName)
	}
	if !second.IsPremium {
		t.Error("IsPremium not updated")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt %v not after %v", second.UpdatedAt, first.UpdatedAt)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Users != 1 {
		t.Errorf("Users = %d, want 1", stats.Users)
	}
}

func TestUpsertChatTwiceKeepsOneRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	first := mustChat(t, store, -100)
	members := 12
	second, err := store.UpsertChat(ctx, &Chat{RemoteID: -100, Kind: ChatGroup, Title: strPtr("Renamed"), MemberCount: &members})
	if err != nil {
		t.Fatalf("UpsertChat() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("surrogate id changed on conflict: %q -> %q", first.ID, second.ID)
	}
	if second.Title == nil || *second.Title != "Renamed" {
		t.Errorf("Title = %v, want Renamed", second.Title)
	}
	if second.MemberCount == nil || *second.MemberCount != 12 {
		t.Errorf("MemberCount = %v, want 12", second.MemberCount)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt %v not after %v", second.UpdatedAt, first.UpdatedAt)
	}
}

func TestFindAbsentReturnsNil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	user, err := store.FindUserByRemoteID(ctx, 7)
	if err != nil || user != nil {
		t.Errorf("FindUserByRemoteID() = %v, %v; want nil, nil", user, err)
	}
	chat, err := store.FindChatByRemoteID(ctx, 7)
	if err != nil || chat != nil {
		t.Errorf("FindChatByRemoteID() = %v, %v; want nil, nil", chat, err)
	}
	msg, err := store.FindMessage(ctx, 7, 1)
	if err != nil || msg != nil {
		t.Errorf("FindMessage() = %v, %v; want nil, nil", msg, err)
	}
}

func TestInsertMessageSuppressesDuplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	chat := mustChat(t, store, -200)

	msg := &Message{
		RemoteChatID:    -200,
		RemoteMessageID: 5,
		ChatID:          chat.ID,
		Text:            strPtr("hello"),
		Kind:            KindText,
		Date:            time.Unix(1700000000, 0).UTC(),
	}

	stored, err := store.InsertMessage(ctx, msg)
	if err != nil || stored == nil {
		t.Fatalf("first InsertMessage() = %v, %v", stored, err)
	}

	again := *msg
	again.Text = strPtr("edited")
	dup, err := store.InsertMessage(ctx, &again)
	if err != nil {
		t.Fatalf("duplicate InsertMessage() error = %v", err)
	}
	if dup != nil {
		t.Errorf("duplicate InsertMessage() = %+v, want nil", dup)
	}

	found, err := store.FindMessage(ctx, -200, 5)
	if err != nil || found == nil {
		t.Fatalf("FindMessage() = %v, %v", found, err)
	}
	if found.Text == nil || *found.Text != "hello" {
		t.Errorf("Text = %v, want the first write", found.Text)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Messages != 1 {
		t.Errorf("Messages = %d, want 1", stats.Messages)
	}
}

func TestInsertMessageRoundTripsNulls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	chat := mustChat(t, store, -300)

	size := int64(2048)
	date := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err := store.InsertMessage(ctx, &Message{
		RemoteChatID:      -300,
		RemoteMessageID:   9,
		ChatID:            chat.ID,
		Kind:              KindPhoto,
		Date:              date,
		MediaFileID:       strPtr("file-1"),
		MediaFileUniqueID: strPtr("uniq-1"),
		MediaFileSize:     &size,
		MediaMimeType:     strPtr("image/jpeg"),
	})
	if err != nil {
		t.Fatalf("InsertMessage() error = %v", err)
	}

	got, err := store.FindMessage(ctx, -300, 9)
	if err != nil || got == nil {
		t.Fatalf("FindMessage() = %v, %v", got, err)
	}

	if got.Kind != KindPhoto {
		t.Errorf("Kind = %q, want photo", got.Kind)
	}
	if !got.Date.Equal(date) {
		t.Errorf("Date = %v, want %v", got.Date, date)
	}
	if got.MediaFileSize == nil || *got.MediaFileSize != 2048 {
		t.Errorf("MediaFileSize = %v, want 2048", got.MediaFileSize)
	}
	nilFields := map[string]bool{
		"text":                 got.Text == nil,
		"user_id":              got.UserID == nil,
		"edit_date":            got.EditDate == nil,
		"forward_from_user_id": got.ForwardFromUserID == nil,
		"forward_from_chat_id": got.ForwardFromChatID == nil,
		"forward_date":         got.ForwardDate == nil,
		"reply_to_message_id":  got.ReplyToMessageID == nil,
		"media_file_name":      got.MediaFileName == nil,
		"location_latitude":    got.LocationLatitude == nil,
		"contact_phone_number": got.ContactPhoneNumber == nil,
	}
	for name, isNil := range nilFields {
		if !isNil {
			t.Errorf("%s is not nil after round trip", name)
		}
	}
}

func TestInsertMessageRejectsMissingChat(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.InsertMessage(context.Background(), &Message{
		RemoteChatID:    -1,
		RemoteMessageID: 1,
		Kind:            KindText,
		Date:            time.Now(),
	})
	if !errs.IsStorage(err) {
		t.Errorf("InsertMessage() error = %v, want StorageError", err)
	}
}

func TestInsertMessageForeignKeyViolation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.InsertMessage(context.Background(), &Message{
		RemoteChatID:    -1,
		RemoteMessageID: 1,
		ChatID:          "no-such-chat",
		Kind:            KindText,
		Date:            time.Now(),
	})
	if !errs.IsStorage(err) {
		t.Errorf("InsertMessage() error = %v, want StorageError", err)
	}
}

func TestRunMaintenanceAndPing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := store.RunMaintenance(ctx); err != nil {
		t.Errorf("RunMaintenance() error = %v", err)
	}
}

func TestDriverForDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dsn  string
		want string
	}{
		{dsn: "collector.db", want: DriverSQLite},
		{dsn: "file:/tmp/x.db?mode=rwc", want: DriverSQLite},
		{dsn: "postgres://u:p@localhost/db", want: DriverPostgres},
		{dsn: "POSTGRESQL://localhost/db", want: DriverPostgres},
	}
	for _, tt := range tests {
		if got := DriverForDSN(tt.dsn); got != tt.want {
			t.Errorf("DriverForDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestRedactDSN(t *testing.T) {
	t.Parallel()

	if got := RedactDSN("postgres://collector:secret@db:5432/tg"); got != "postgres://collector:xxxxx@db:5432/tg" {
		t.Errorf("RedactDSN() = %q", got)
	}
	if got := RedactDSN("collector.db"); got != "collector.db" {
		t.Errorf("RedactDSN() = %q", got)
	}
}

func TestMigrationsUseTheirOwnConnection(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "v.db")
	db, err := NewDB(dsn, PoolConfig{}, nil)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer CloseDB(db, nil)

	for range 3 {
		version, dirty, err := MigrationVersion(dsn)
		if err != nil {
			t.Fatalf("MigrationVersion() error = %v", err)
		}
		if version != 1 || dirty {
			t.Errorf("MigrationVersion() = %d, %v; want 1, false", version, dirty)
		}
	}

	if inUse := db.Stats().InUse; inUse != 0 {
		t.Errorf("pool has %d connections in use after migrating, want 0", inUse)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Errorf("single-connection pool unusable after migrating: %v", err)
	}
}

func TestRollbackAndReapplyMigrations(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "r.db")
	if err := ApplyMigrations(dsn, nil); err != nil {
		t.Fatalf("ApplyMigrations() error = %v", err)
	}
	if err := RollbackMigrations(dsn, nil); err != nil {
		t.Fatalf("RollbackMigrations() error = %v", err)
	}
	if version, _, err := MigrationVersion(dsn); err != nil || version != 0 {
		t.Errorf("MigrationVersion() after rollback = %d, %v; want 0", version, err)
	}
	if err := ApplyMigrations(dsn, nil); err != nil {
		t.Fatalf("second ApplyMigrations() error = %v", err)
	}
	if err := ApplyMigrations(dsn, nil); err != nil {
		t.Errorf("ApplyMigrations() with nothing pending error = %v", err)
	}
}

package database

import "time"

// ChatKind is the closed set of conversation kinds.
type ChatKind string

// Chat kinds.
const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// MessageKind is the closed set of message content kinds.
type MessageKind string

// Message kinds, in classification precedence order.
const (
	KindText     MessageKind = "text"
	KindPhoto    MessageKind = "photo"
	KindVideo    MessageKind = "video"
	KindAudio    MessageKind = "audio"
	KindDocument MessageKind = "document"
	KindSticker  MessageKind = "sticker"
	KindLocation MessageKind = "location"
	KindContact  MessageKind = "contact"
	KindUnknown  MessageKind = "unknown"
)

// User is a participant account. RemoteID is the identity assigned by the
// messaging service and is unique; ID is the local surrogate key.
type User struct {
	ID           string    `db:"id"`
	RemoteID     int64     `db:"remote_id"`
	Username     *string   `db:"username"`
	FirstName    *string   `db:"first_name"`
	LastName     *string   `db:"last_name"`
	PhoneNumber  *string   `db:"phone_number"`
	LanguageCode *string   `db:"language_code"`
	IsBot        bool      `db:"is_bot"`
	IsVerified   bool      `db:"is_verified"`
	IsPremium    bool      `db:"is_premium"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Chat is a conversation container.
type Chat struct {
	ID           string    `db:"id"`
	RemoteID     int64     `db:"remote_id"`
	Kind         ChatKind  `db:"kind"`
	Title        *string   `db:"title"`
	Username     *string   `db:"username"`
	Description  *string   `db:"description"`
	InviteLink   *string   `db:"invite_link"`
	MemberCount  *int      `db:"member_count"`
	IsVerified   bool      `db:"is_verified"`
	IsRestricted bool      `db:"is_restricted"`
	IsScam       bool      `db:"is_scam"`
	IsFake       bool      `db:"is_fake"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Message is one persisted message. (RemoteChatID, RemoteMessageID) is unique;
// the forward columns are reserved and always nil.
type Message struct {
	ID              string      `db:"id"`
	RemoteChatID    int64       `db:"remote_chat_id"`
	RemoteMessageID int64       `db:"remote_message_id"`
	ChatID          string      `db:"chat_id"`
	UserID          *string     `db:"user_id"`
	Text            *string     `db:"text"`
	Kind            MessageKind `db:"kind"`
	Date            time.Time   `db:"date"`
	EditDate        *time.Time  `db:"edit_date"`

	ForwardFromUserID *string    `db:"forward_from_user_id"`
	ForwardFromChatID *string    `db:"forward_from_chat_id"`
	ForwardDate       *time.Time `db:"forward_date"`

	ReplyToMessageID *int64 `db:"reply_to_message_id"`

	MediaFileID       *string `db:"media_file_id"`
	MediaFileUniqueID *string `db:"media_file_unique_id"`
	MediaFileSize     *int64  `db:"media_file_size"`
	MediaMimeType     *string `db:"media_mime_type"`
	MediaFileName     *string `db:"media_file_name"`

	LocationLatitude  *float64 `db:"location_latitude"`
	LocationLongitude *float64 `db:"location_longitude"`

	ContactPhoneNumber *string `db:"contact_phone_number"`
	ContactFirstName   *string `db:"contact_first_name"`
	ContactLastName    *string `db:"contact_last_name"`

	CreatedAt time.Time `db:"created_at"`
}

// Stats holds row counts per table.
type Stats struct {
	Users    int64 `db:"users"`
	Chats    int64 `db:"chats"`
	Messages int64 `db:"messages"`
}

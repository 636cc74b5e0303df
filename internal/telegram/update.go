package telegram

// ChatKind classifies a conversation.
type ChatKind string

// Chat kinds.
const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// Update is one event from the transport. Only new messages are modelled;
// Message is nil for every other kind of event.
type Update struct {
	Message *Message
}

// Message mirrors a raw incoming message. Several payload fields may be set at
// once, exactly as Telegram delivers them; empty strings and zero numbers mean
// the attribute is absent.
type Message struct {
	ID   int64
	Chat Chat
	// From is nil for anonymous admins and channel posts.
	From *User

	// Date and EditDate are Unix seconds. EditDate is zero when never edited.
	Date     int64
	EditDate int64

	ReplyToMessageID int64

	// Text holds the message text or the media caption.
	Text string

	Photo    *File
	Video    *File
	Audio    *File
	Document *File
	Sticker  *File
	Location *Location
	Contact  *Contact
}

// Chat describes the conversation a message belongs to.
type Chat struct {
	// ID uses Bot API numbering; see PrivateChatID, GroupChatID and ChannelChatID.
	ID   int64
	Kind ChatKind

	Title string

	// FirstName and LastName are set for private chats.
	FirstName string
	LastName  string

	Username    string
	Description string

	// MemberCount is nil when the transport does not expose it.
	MemberCount *int
}

// User describes a message sender.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsBot        bool
	IsVerified   bool
	IsPremium    bool
}

// File is a media attachment.
type File struct {
	ID       string
	UniqueID string
	Size     int64
	MimeType string
	FileName string
}

// Location is a shared geographic point.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Contact is a shared phone contact.
type Contact struct {
	PhoneNumber string
	FirstName   string
	LastName    string
}

package normalize

import (
	"github.com/edgard/tgcollector/internal/database"
	"github.com/edgard/tgcollector/internal/telegram"
)

// Default mime types for media the transport does not describe.
const (
	DefaultPhotoMimeType = "image/jpeg"
	DefaultVideoMimeType = "video/mp4"
)

// Payload is the classified content of a message: exactly one of the
// concrete types below.
type Payload interface {
	Kind() database.MessageKind
	flatten(msg *database.Message)
}

// TextPayload is a plain text message, or media carrying a caption.
type TextPayload struct{ Text string }

// PhotoPayload is an uncaptioned photo.
type PhotoPayload struct{ File telegram.File }

// VideoPayload is an uncaptioned video.
type VideoPayload struct{ File telegram.File }

// AudioPayload is an audio file or voice note.
type AudioPayload struct{ File telegram.File }

// DocumentPayload is a generic file; the only kind that keeps its file name.
type DocumentPayload struct{ File telegram.File }

// StickerPayload is a sticker.
type StickerPayload struct{ File telegram.File }

// LocationPayload is a shared point.
type LocationPayload struct{ Location telegram.Location }

// ContactPayload is a shared contact card.
type ContactPayload struct{ Contact telegram.Contact }

// UnknownPayload is anything else: service messages, polls, games.
type UnknownPayload struct{}

// Classify picks the payload by precedence: text, photo, video, audio,
// document, sticker, location, contact, unknown. The first present wins.
func Classify(m *telegram.Message) Payload {
	switch {
	case m.Text != "":
		return TextPayload{Text: m.Text}
	case m.Photo != nil:
		return PhotoPayload{File: *m.Photo}
	case m.Video != nil:
		return VideoPayload{File: *m.Video}
	case m.Audio != nil:
		return AudioPayload{File: *m.Audio}
	case m.Document != nil:
		return DocumentPayload{File: *m.Document}
	case m.Sticker != nil:
		return StickerPayload{File: *m.Sticker}
	case m.Location != nil:
		return LocationPayload{Location: *m.Location}
	case m.Contact != nil:
		return ContactPayload{Contact: *m.Contact}
	default:
		return UnknownPayload{}
	}
}

func (TextPayload) Kind() database.MessageKind     { return database.KindText }
func (PhotoPayload) Kind() database.MessageKind    { return database.KindPhoto }
func (VideoPayload) Kind() database.MessageKind    { return database.KindVideo }
func (AudioPayload) Kind() database.MessageKind    { return database.KindAudio }
func (DocumentPayload) Kind() database.MessageKind { return database.KindDocument }
func (StickerPayload) Kind() database.MessageKind  { return database.KindSticker }
func (LocationPayload) Kind() database.MessageKind { return database.KindLocation }
func (ContactPayload) Kind() database.MessageKind  { return database.KindContact }
func (UnknownPayload) Kind() database.MessageKind  { return database.KindUnknown }

func (p TextPayload) flatten(msg *database.Message) {
	msg.Text = optional(p.Text)
}

func (p PhotoPayload) flatten(msg *database.Message) {
	flattenFile(msg, p.File, DefaultPhotoMimeType, false)
}

func (p VideoPayload) flatten(msg *database.Message) {
	flattenFile(msg, p.File, DefaultVideoMimeType, false)
}

func (p AudioPayload) flatten(msg *database.Message) {
	flattenFile(msg, p.File, "", false)
}

func (p DocumentPayload) flatten(msg *database.Message) {
	flattenFile(msg, p.File, "", true)
}

func (p StickerPayload) flatten(msg *database.Message) {
	flattenFile(msg, p.File, "", false)
}

func (p LocationPayload) flatten(msg *database.Message) {
	lat, long := p.Location.Latitude, p.Location.Longitude
	msg.LocationLatitude = &lat
	msg.LocationLongitude = &long
}

func (p ContactPayload) flatten(msg *database.Message) {
	msg.ContactPhoneNumber = optional(p.Contact.PhoneNumber)
	msg.ContactFirstName = optional(p.Contact.FirstName)
	msg.ContactLastName = optional(p.Contact.LastName)
}

func (UnknownPayload) flatten(*database.Message) {}

func flattenFile(msg *database.Message, f telegram.File, defaultMime string, keepName bool) {
	msg.MediaFileID = optional(f.ID)
	msg.MediaFileUniqueID = optional(f.UniqueID)
	if f.Size > 0 {
		size := f.Size
		msg.MediaFileSize = &size
	}
	mime := f.MimeType
	if mime == "" {
		mime = defaultMime
	}
	msg.MediaMimeType = optional(mime)
	if keepName {
		msg.MediaFileName = optional(f.FileName)
	}
}

// optional maps the transport's "absent" empty string to a NULL column.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

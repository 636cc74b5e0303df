package botapi

import (
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgcollector/internal/telegram"
)

// convertUpdate maps a Bot API update onto the neutral model. New messages and
// channel posts are kept; every other update yields nil.
func convertUpdate(update *models.Update) *telegram.Update {
	if update == nil {
		return nil
	}

	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil {
		return nil
	}
	return &telegram.Update{Message: convertMessage(msg)}
}

func convertMessage(msg *models.Message) *telegram.Message {
	out := &telegram.Message{
		ID:       int64(msg.ID),
		Chat:     convertChat(msg.Chat),
		Date:     int64(msg.Date),
		EditDate: int64(msg.EditDate),
		Text:     msg.Text,
	}
	if out.Text == "" {
		out.Text = msg.Caption
	}
	if msg.From != nil {
		out.From = convertUser(msg.From)
	}
	if msg.ReplyToMessage != nil {
		out.ReplyToMessageID = int64(msg.ReplyToMessage.ID)
	}

	if len(msg.Photo) > 0 {
		out.Photo = largestPhoto(msg.Photo)
	}
	if v := msg.Video; v != nil {
		out.Video = &telegram.File{
			ID:       v.FileID,
			UniqueID: v.FileUniqueID,
			Size:     int64(v.FileSize),
			MimeType: v.MimeType,
			FileName: v.FileName,
		}
	}
	switch {
	case msg.Audio != nil:
		a := msg.Audio
		out.Audio = &telegram.File{
			ID:       a.FileID,
			UniqueID: a.FileUniqueID,
			Size:     int64(a.FileSize),
			MimeType: a.MimeType,
			FileName: a.FileName,
		}
	case msg.Voice != nil:
		v := msg.Voice
		out.Audio = &telegram.File{
			ID:       v.FileID,
			UniqueID: v.FileUniqueID,
			Size:     int64(v.FileSize),
			MimeType: v.MimeType,
		}
	}
	if d := msg.Document; d != nil {
		out.Document = &telegram.File{
			ID:       d.FileID,
			UniqueID: d.FileUniqueID,
			Size:     int64(d.FileSize),
			MimeType: d.MimeType,
			FileName: d.FileName,
		}
	}
	if s := msg.Sticker; s != nil {
		out.Sticker = &telegram.File{
			ID:       s.FileID,
			UniqueID: s.FileUniqueID,
			Size:     int64(s.FileSize),
		}
	}
	if l := msg.Location; l != nil {
		out.Location = &telegram.Location{Latitude: l.Latitude, Longitude: l.Longitude}
	}
	if c := msg.Contact; c != nil {
		out.Contact = &telegram.Contact{
			PhoneNumber: c.PhoneNumber,
			FirstName:   c.FirstName,
			LastName:    c.LastName,
		}
	}
	return out
}

// convertChat keeps the Bot API chat id, which already follows the neutral
// numbering.
func convertChat(chat models.Chat) telegram.Chat {
	out := telegram.Chat{
		ID:        chat.ID,
		Title:     chat.Title,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
		Username:  chat.Username,
	}
	switch chat.Type {
	case models.ChatTypePrivate:
		out.Kind = telegram.ChatPrivate
	case models.ChatTypeGroup:
		out.Kind = telegram.ChatGroup
	case models.ChatTypeSupergroup:
		out.Kind = telegram.ChatSupergroup
	case models.ChatTypeChannel:
		out.Kind = telegram.ChatChannel
	}
	return out
}

func convertUser(u *models.User) *telegram.User {
	return &telegram.User{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
		IsBot:        u.IsBot,
		IsPremium:    u.IsPremium,
	}
}

// largestPhoto picks the rendition with the biggest file size, preferring the
// last one on ties.
func largestPhoto(sizes []models.PhotoSize) *telegram.File {
	best := sizes[len(sizes)-1]
	for _, s := range sizes {
		if s.FileSize > best.FileSize {
			best = s
		}
	}
	return &telegram.File{
		ID:       best.FileID,
		UniqueID: best.FileUniqueID,
		Size:     int64(best.FileSize),
	}
}

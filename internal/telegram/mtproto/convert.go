package mtproto

import (
	"strconv"

	"github.com/gotd/td/tg"

	"github.com/edgard/tgcollector/internal/telegram"
)

// convertMessage maps a raw MTProto message onto the neutral model. It returns
// nil for service and empty messages.
func convertMessage(e tg.Entities, raw tg.MessageClass) *telegram.Message {
	msg, ok := raw.(*tg.Message)
	if !ok {
		return nil
	}

	out := &telegram.Message{
		ID:   int64(msg.ID),
		Chat: convertChat(e, msg.PeerID),
		From: convertSender(e, msg),
		Date: int64(msg.Date),
		Text: msg.Message,
	}
	if edit, ok := msg.GetEditDate(); ok {
		out.EditDate = int64(edit)
	}
	if reply, ok := msg.GetReplyTo(); ok {
		if header, ok := reply.(*tg.MessageReplyHeader); ok {
			if id, ok := header.GetReplyToMsgID(); ok {
				out.ReplyToMessageID = int64(id)
			}
		}
	}
	if media, ok := msg.GetMedia(); ok {
		applyMedia(out, media)
	}
	return out
}

// convertSender resolves who wrote msg. Incoming private messages carry no
// from_id; the peer is the sender then.
func convertSender(e tg.Entities, msg *tg.Message) *telegram.User {
	var userID int64
	if from, ok := msg.GetFromID(); ok {
		peer, isUser := from.(*tg.PeerUser)
		if !isUser {
			return nil
		}
		userID = peer.UserID
	} else if peer, isUser := msg.PeerID.(*tg.PeerUser); isUser && !msg.Out {
		userID = peer.UserID
	} else {
		return nil
	}

	user := &telegram.User{ID: userID}
	if u, ok := e.Users[userID]; ok {
		user.Username = u.Username
		user.FirstName = u.FirstName
		user.LastName = u.LastName
		user.LanguageCode = u.LangCode
		user.IsBot = u.Bot
		user.IsVerified = u.Verified
		user.IsPremium = u.Premium
	}
	return user
}

func convertChat(e tg.Entities, peer tg.PeerClass) telegram.Chat {
	switch p := peer.(type) {
	case *tg.PeerUser:
		chat := telegram.Chat{ID: telegram.PrivateChatID(p.UserID), Kind: telegram.ChatPrivate}
		if u, ok := e.Users[p.UserID]; ok {
			chat.FirstName = u.FirstName
			chat.LastName = u.LastName
			chat.Username = u.Username
		}
		return chat
	case *tg.PeerChat:
		chat := telegram.Chat{ID: telegram.GroupChatID(p.ChatID), Kind: telegram.ChatGroup}
		if c, ok := e.Chats[p.ChatID]; ok {
			chat.Title = c.Title
			count := c.ParticipantsCount
			chat.MemberCount = &count
		}
		return chat
	case *tg.PeerChannel:
		chat := telegram.Chat{ID: telegram.ChannelChatID(p.ChannelID), Kind: telegram.ChatChannel}
		if c, ok := e.Channels[p.ChannelID]; ok {
			if c.Megagroup {
				chat.Kind = telegram.ChatSupergroup
			}
			chat.Title = c.Title
			chat.Username = c.Username
			if count, ok := c.GetParticipantsCount(); ok {
				chat.MemberCount = &count
			}
		}
		return chat
	default:
		return telegram.Chat{}
	}
}

func applyMedia(out *telegram.Message, media tg.MessageMediaClass) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		if photo, ok := m.GetPhoto(); ok {
			if p, ok := photo.(*tg.Photo); ok {
				out.Photo = &telegram.File{
					ID:   strconv.FormatInt(p.ID, 10),
					Size: largestPhotoSize(p.Sizes),
				}
			}
		}
	case *tg.MessageMediaDocument:
		if doc, ok := m.GetDocument(); ok {
			if d, ok := doc.(*tg.Document); ok {
				applyDocument(out, d)
			}
		}
	case *tg.MessageMediaGeo:
		out.Location = geoLocation(m.Geo)
	case *tg.MessageMediaGeoLive:
		out.Location = geoLocation(m.Geo)
	case *tg.MessageMediaVenue:
		out.Location = geoLocation(m.Geo)
	case *tg.MessageMediaContact:
		out.Contact = &telegram.Contact{
			PhoneNumber: m.PhoneNumber,
			FirstName:   m.FirstName,
			LastName:    m.LastName,
		}
	}
}

// applyDocument sorts a document into sticker, video, audio or plain document
// by its attributes.
func applyDocument(out *telegram.Message, d *tg.Document) {
	file := &telegram.File{
		ID:       strconv.FormatInt(d.ID, 10),
		Size:     int64(d.Size),
		MimeType: d.MimeType,
	}

	var isSticker, isVideo, isAudio bool
	for _, attr := range d.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeFilename:
			file.FileName = a.FileName
		case *tg.DocumentAttributeSticker:
			isSticker = true
		case *tg.DocumentAttributeVideo:
			isVideo = true
		case *tg.DocumentAttributeAudio:
			isAudio = true
		}
	}

	switch {
	case isSticker:
		out.Sticker = file
	case isVideo:
		out.Video = file
	case isAudio:
		out.Audio = file
	default:
		out.Document = file
	}
}

func geoLocation(geo tg.GeoPointClass) *telegram.Location {
	point, ok := geo.(*tg.GeoPoint)
	if !ok {
		return nil
	}
	return &telegram.Location{Latitude: point.Lat, Longitude: point.Long}
}

func largestPhotoSize(sizes []tg.PhotoSizeClass) int64 {
	var largest int64
	for _, size := range sizes {
		switch s := size.(type) {
		case *tg.PhotoSize:
			largest = max(largest, int64(s.Size))
		case *tg.PhotoSizeProgressive:
			for _, n := range s.Sizes {
				largest = max(largest, int64(n))
			}
		}
	}
	return largest
}

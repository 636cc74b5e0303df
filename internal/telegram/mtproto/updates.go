package mtproto

import (
	"context"
	"sync"

	gotd "github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
)

var _ gotd.UpdateHandler = (*updateHandler)(nil)

// pushFunc receives every new message together with the entities it references.
type pushFunc func(ctx context.Context, e tg.Entities, raw tg.MessageClass)

// updateHandler feeds incoming updates to a tg.UpdateDispatcher. Telegram
// delivers most private and basic group messages as updateShortMessage and
// updateShortChatMessage, which the dispatcher ignores; those are expanded
// into updateNewMessage first. Users and chats seen in full updates are
// remembered so the expanded messages still resolve names.
type updateHandler struct {
	dispatcher tg.UpdateDispatcher

	mu    sync.Mutex
	users map[int64]tg.UserClass
	chats map[int64]tg.ChatClass
}

func newUpdateHandler(push pushFunc) *updateHandler {
	h := &updateHandler{
		dispatcher: tg.NewUpdateDispatcher(),
		users:      make(map[int64]tg.UserClass),
		chats:      make(map[int64]tg.ChatClass),
	}
	h.dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		push(ctx, e, u.Message)
		return nil
	})
	h.dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		push(ctx, e, u.Message)
		return nil
	})
	return h
}

// Handle implements telegram.UpdateHandler.
func (h *updateHandler) Handle(ctx context.Context, u tg.UpdatesClass) error {
	switch u := u.(type) {
	case *tg.Updates:
		h.remember(u.Users, u.Chats)
	case *tg.UpdatesCombined:
		h.remember(u.Users, u.Chats)
	case *tg.UpdateShortMessage:
		return h.dispatcher.Handle(ctx, h.expand(shortMessage(u), []int64{u.UserID}, nil))
	case *tg.UpdateShortChatMessage:
		return h.dispatcher.Handle(ctx, h.expand(shortChatMessage(u), []int64{u.FromID}, []int64{u.ChatID}))
	}
	return h.dispatcher.Handle(ctx, u)
}

func (h *updateHandler) remember(users []tg.UserClass, chats []tg.ChatClass) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, user := range users {
		if _, ok := user.(*tg.User); ok {
			h.users[user.GetID()] = user
		}
	}
	for _, chat := range chats {
		switch chat.(type) {
		case *tg.Chat, *tg.Channel:
			h.chats[chat.GetID()] = chat
		}
	}
}

// expand wraps msg into a full update carrying the cached entities it names.
func (h *updateHandler) expand(msg *tg.Message, userIDs, chatIDs []int64) *tg.Updates {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := &tg.Updates{
		Updates: []tg.UpdateClass{&tg.UpdateNewMessage{Message: msg}},
		Date:    msg.Date,
	}
	for _, id := range userIDs {
		if user, ok := h.users[id]; ok {
			out.Users = append(out.Users, user)
		}
	}
	for _, id := range chatIDs {
		if chat, ok := h.chats[id]; ok {
			out.Chats = append(out.Chats, chat)
		}
	}
	return out
}

// shortMessage rebuilds a private message. The peer is the other party; an
// incoming message carries no from_id, matching full private updates.
func shortMessage(u *tg.UpdateShortMessage) *tg.Message {
	msg := &tg.Message{
		ID:      u.ID,
		Out:     u.Out,
		PeerID:  &tg.PeerUser{UserID: u.UserID},
		Date:    u.Date,
		Message: u.Message,
	}
	if reply, ok := u.GetReplyTo(); ok {
		msg.SetReplyTo(reply)
	}
	return msg
}

func shortChatMessage(u *tg.UpdateShortChatMessage) *tg.Message {
	msg := &tg.Message{
		ID:      u.ID,
		Out:     u.Out,
		PeerID:  &tg.PeerChat{ChatID: u.ChatID},
		Date:    u.Date,
		Message: u.Message,
	}
	msg.SetFromID(&tg.PeerUser{UserID: u.FromID})
	if reply, ok := u.GetReplyTo(); ok {
		msg.SetReplyTo(reply)
	}
	return msg
}

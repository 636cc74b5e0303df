package telegram

// channelIDOffset is the Bot API offset applied to supergroup and channel ids.
const channelIDOffset = 1_000_000_000_000

// PrivateChatID returns the chat id of a one-to-one conversation with a user.
func PrivateChatID(userID int64) int64 {
	return userID
}

// GroupChatID returns the chat id of a basic group.
func GroupChatID(rawID int64) int64 {
	return -rawID
}

// ChannelChatID returns the chat id of a supergroup or channel.
func ChannelChatID(rawID int64) int64 {
	return -(channelIDOffset + rawID)
}

// SplitChatID recovers the peer kind and raw id from a Bot API chat id.
// Supergroups and channels share one numbering, so both report ChatChannel.
func SplitChatID(chatID int64) (ChatKind, int64) {
	switch {
	case chatID > 0:
		return ChatPrivate, chatID
	case chatID <= -channelIDOffset:
		return ChatChannel, -chatID - channelIDOffset
	default:
		return ChatGroup, -chatID
	}
}

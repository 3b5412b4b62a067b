package comments

import (
	"time"

	"twitch-chat-viewer/model"
)

// Kind — тип события в логе.
type Kind int

const (
	KindSystem Kind = iota
	KindChat
	KindDebug
)

func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindChat:
		return "chat"
	case KindDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Event — неизменяемая запись лога. Для KindSystem и KindDebug заполнен Text,
// для KindChat — Chat и FirstChat.
type Event struct {
	No        uint64
	Kind      Kind
	Text      string
	Chat      model.ChatMessage
	FirstChat bool
	ArrivedAt time.Time
}

func newTextEvent(no uint64, kind Kind, text string, at time.Time) *Event {
	return &Event{No: no, Kind: kind, Text: text, ArrivedAt: at}
}

func newChatEvent(no uint64, chat model.ChatMessage, first bool, at time.Time) *Event {
	return &Event{No: no, Kind: KindChat, Chat: chat, FirstChat: first, ArrivedAt: at}
}

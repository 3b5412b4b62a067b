package model

import (
	"strconv"
	"strings"
	"time"
)

// Tier — категория автора сообщения чата.
type Tier int

const (
	TierOrdinary            Tier = 0
	TierPremium             Tier = 1
	TierSystem              Tier = 2
	TierBroadcaster         Tier = 3
	TierOperator            Tier = 6
	TierRelay               Tier = 7
	TierOrdinaryTransparent Tier = 24
)

// IsUser сообщает, что автор — обычный зритель (в том числе премиум и «прозрачный»).
func (t Tier) IsUser() bool {
	switch t {
	case TierOrdinary, TierPremium, TierOrdinaryTransparent:
		return true
	}
	return false
}

// IsSystem сообщает, что сообщение пришло от системы, стримера или оператора.
func (t Tier) IsSystem() bool {
	switch t {
	case TierSystem, TierBroadcaster, TierOperator:
		return true
	}
	return false
}

func (t Tier) String() string {
	switch t {
	case TierOrdinary:
		return "ordinary"
	case TierPremium:
		return "premium"
	case TierSystem:
		return "system"
	case TierBroadcaster:
		return "broadcaster"
	case TierOperator:
		return "operator"
	case TierRelay:
		return "relay"
	case TierOrdinaryTransparent:
		return "ordinary-transparent"
	default:
		return "unknown"
	}
}

// RoomPosition — комната, из которой пришло сообщение. У Twitch есть только арена.
type RoomPosition int

const (
	RoomArena RoomPosition = iota
	RoomStore1
	RoomStore2
	RoomStore3
	RoomStore4
	RoomStore5
	RoomStore6
	RoomStore7
	RoomStore8
	RoomStore9
	RoomStore10
)

// ShortLabel возвращает короткую метку комнаты для отрисовки.
func (p RoomPosition) ShortLabel() string {
	if p == RoomArena {
		return "A"
	}
	if p >= RoomStore1 && p <= RoomStore10 {
		return strconv.Itoa(int(p))
	}
	return "?"
}

func (p RoomPosition) String() string {
	switch p {
	case RoomArena:
		return "arena"
	case RoomStore1, RoomStore2, RoomStore3, RoomStore4, RoomStore5,
		RoomStore6, RoomStore7, RoomStore8, RoomStore9, RoomStore10:
		return "store" + strconv.Itoa(int(p))
	default:
		return "unknown"
	}
}

// emotionPrefix — slash-команда эмоции-стикера.
const emotionPrefix = "/emotion "

// ChatMessage — нормализованная модель сообщения чата.
type ChatMessage struct {
	ID          string
	Channel     string
	No          int
	UserID      string
	Username    string
	DisplayName string
	Text        string
	Tier        Tier
	Room        RoomPosition
	Badges      map[string]int
	Color       string
	Bits        int
	EmoteOnly   bool
	Action      bool
	SentAt      time.Time
}

// IsUserComment сообщает, что сообщение написано обычным зрителем.
func (m ChatMessage) IsUserComment() bool {
	return m.Tier.IsUser()
}

// IsEmotion сообщает, что сообщение — эмоция: slash-команда /emotion или сообщение только из эмоутов.
func (m ChatMessage) IsEmotion() bool {
	return m.EmoteOnly || strings.HasPrefix(m.Text, emotionPrefix)
}

// Name возвращает отображаемое имя автора, а при его отсутствии — логин или ID.
func (m ChatMessage) Name() string {
	switch {
	case m.DisplayName != "":
		return m.DisplayName
	case m.Username != "":
		return m.Username
	default:
		return m.UserID
	}
}

// Notice описывает notice-событие, полученное от Twitch.
type Notice struct {
	Channel  string
	ID       string
	Message  string
	Tags     map[string]string
	NoticeAt time.Time
}

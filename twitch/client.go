package twitch

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"

	"twitch-chat-viewer/config"
	"twitch-chat-viewer/model"
)

// Handler принимает Twitch-события, преобразованные в доменные модели.
type Handler interface {
	HandleJoin(ctx context.Context, channel string)
	HandleChat(ctx context.Context, msg model.ChatMessage)
	HandleNotice(ctx context.Context, notice model.Notice)
	HandleDebug(ctx context.Context, text string)
}

// Client оборачивает go-twitch-irc и настраивает обработчики.
type Client struct {
	client  *twitchirc.Client
	handler Handler
	channel string
	seq     atomic.Int64
	baseCtx context.Context
}

// NewClient инициализирует IRC-клиент и регистрирует колбэки.
func NewClient(cfg config.TwitchConfig, handler Handler) *Client {
	var client *twitchirc.Client
	if cfg.Anonymous() {
		client = twitchirc.NewAnonymousClient()
	} else {
		client = twitchirc.NewClient(cfg.Username, cfg.OAuthToken)
	}

	c := &Client{
		client:  client,
		handler: handler,
		channel: cfg.Channel,
	}

	client.OnPrivateMessage(func(m twitchirc.PrivateMessage) {
		c.handler.HandleChat(c.context(), toChatMessage(m, int(c.seq.Add(1))))
	})

	client.OnConnect(func() {
		log.Printf("twitch: подключено, подписка на канал: %s", c.channel)
		c.handler.HandleDebug(c.context(), "connected to twitch irc")
		client.Join(c.channel)
	})

	client.OnSelfJoinMessage(func(m twitchirc.UserJoinMessage) {
		c.handler.HandleJoin(c.context(), normalizeChannel(m.Channel))
	})

	client.OnReconnectMessage(func(message twitchirc.ReconnectMessage) {
		log.Printf("twitch: сервер запросил RECONNECT: %+v", message)
		c.handler.HandleDebug(c.context(), "server requested reconnect")
	})

	client.OnNoticeMessage(func(msg twitchirc.NoticeMessage) {
		c.handler.HandleNotice(c.context(), toNotice(msg))
	})

	client.OnUserNoticeMessage(func(msg twitchirc.UserNoticeMessage) {
		c.handler.HandleNotice(c.context(), userNotice(msg))
	})

	client.OnClearChatMessage(func(msg twitchirc.ClearChatMessage) {
		c.handler.HandleDebug(c.context(), clearChatText(msg))
	})

	return c
}

// Run подключает клиента и блокируется до отмены контекста или ошибки.
func (c *Client) Run(ctx context.Context) error {
	c.baseCtx = ctx
	errCh := make(chan error, 1)

	go func() {
		errCh <- c.client.Connect()
	}()

	select {
	case <-ctx.Done():
		c.client.Disconnect()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func toChatMessage(m twitchirc.PrivateMessage, no int) model.ChatMessage {
	badges := make(map[string]int, len(m.User.Badges))
	for k, v := range m.User.Badges {
		badges[k] = v
	}

	sentAt := m.Time
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	return model.ChatMessage{
		ID:          m.ID,
		Channel:     normalizeChannel(m.Channel),
		No:          no,
		UserID:      m.User.ID,
		Username:    m.User.Name,
		DisplayName: m.User.DisplayName,
		Text:        m.Message,
		Tier:        tierFromBadges(badges),
		Room:        model.RoomArena,
		Badges:      badges,
		Color:       m.User.Color,
		Bits:        m.Bits,
		EmoteOnly:   m.Tags["emote-only"] == "1",
		Action:      m.Action,
		SentAt:      sentAt,
	}
}

// tierFromBadges сводит бейджи Twitch к категориям автора.
func tierFromBadges(badges map[string]int) model.Tier {
	switch {
	case badges["broadcaster"] > 0:
		return model.TierBroadcaster
	case badges["staff"] > 0, badges["admin"] > 0, badges["global_mod"] > 0:
		return model.TierOperator
	case badges["moderator"] > 0, badges["vip"] > 0, badges["subscriber"] > 0:
		return model.TierPremium
	default:
		return model.TierOrdinary
	}
}

func toNotice(msg twitchirc.NoticeMessage) model.Notice {
	return model.Notice{
		Channel:  normalizeChannel(msg.Channel),
		ID:       msg.MsgID,
		Message:  msg.Message,
		Tags:     msg.Tags,
		NoticeAt: noticeTimestamp(msg.Tags),
	}
}

// userNotice превращает USERNOTICE (подписки, рейды) в системное сообщение.
func userNotice(msg twitchirc.UserNoticeMessage) model.Notice {
	text := msg.SystemMsg
	if msg.Message != "" {
		text = strings.TrimSpace(text + " " + msg.Message)
	}
	return model.Notice{
		Channel:  normalizeChannel(msg.Channel),
		ID:       msg.MsgID,
		Message:  text,
		Tags:     msg.Tags,
		NoticeAt: noticeTimestamp(msg.Tags),
	}
}

func clearChatText(msg twitchirc.ClearChatMessage) string {
	switch {
	case msg.TargetUsername == "":
		return "chat cleared by moderator"
	case msg.BanDuration > 0:
		return fmt.Sprintf("%s (%s) timed out for %ds", msg.TargetUsername, msg.TargetUserID, msg.BanDuration)
	default:
		return fmt.Sprintf("%s (%s) banned", msg.TargetUsername, msg.TargetUserID)
	}
}

func noticeTimestamp(tags map[string]string) time.Time {
	if ts := tags["tmi-sent-ts"]; ts != "" {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	}

	return time.Now().UTC()
}

func normalizeChannel(ch string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
}

func (c *Client) context() context.Context {
	if c.baseCtx != nil {
		return c.baseCtx
	}
	return context.Background()
}

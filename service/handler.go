package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"twitch-chat-viewer/comments"
	"twitch-chat-viewer/model"
	"twitch-chat-viewer/render"
)

// Handler реализует twitch.Handler и складывает события в Store.
type Handler struct {
	store   *comments.Store
	printer *render.Printer

	mu      sync.Mutex
	channel string
	session string
}

// NewHandler собирает Handler, используемый Twitch колбэками.
func NewHandler(store *comments.Store, printer *render.Printer) *Handler {
	return &Handler{store: store, printer: printer}
}

// Session возвращает идентификатор текущей сессии трансляции.
func (h *Handler) Session() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// HandleJoin начинает новую сессию при входе в другой канал; повторный
// вход в тот же канал после переподключения лог не сбрасывает.
func (h *Handler) HandleJoin(_ context.Context, channel string) {
	h.mu.Lock()
	if channel != h.channel {
		h.store.RemoveAll()
		h.channel = channel
		h.session = uuid.NewString()
		log.Printf("сессия: канал #%s, сессия %s", channel, h.session)
	}
	session := h.session
	h.mu.Unlock()

	h.appendSystem(fmt.Sprintf("joined #%s (session %s)", channel, session))
}

// HandleChat добавляет сообщение чата.
func (h *Handler) HandleChat(_ context.Context, msg model.ChatMessage) {
	if ev, appended := h.store.AppendChatEvent(msg); appended {
		h.printer.Event(ev)
	}
}

// HandleNotice добавляет notice-событие как системное сообщение.
func (h *Handler) HandleNotice(_ context.Context, notice model.Notice) {
	h.appendSystem(notice.Message)
}

// HandleDebug добавляет отладочное сообщение.
func (h *Handler) HandleDebug(_ context.Context, text string) {
	if ev, appended := h.store.AppendDebugEvent(text); appended {
		h.printer.Event(ev)
	}
}

func (h *Handler) appendSystem(text string) {
	if ev, appended := h.store.AppendSystemEvent(text); appended {
		h.printer.Event(ev)
	}
}

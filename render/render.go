// Package render выводит события чата в текстовом виде.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"twitch-chat-viewer/comments"
)

const timeLayout = "15:04:05"

// Format возвращает однострочное представление события.
func Format(ev comments.Event) string {
	prefix := fmt.Sprintf("[%5d %s]", ev.No, ev.ArrivedAt.Format(timeLayout))

	switch ev.Kind {
	case comments.KindSystem:
		return prefix + " * " + ev.Text
	case comments.KindDebug:
		return prefix + " debug: " + ev.Text
	case comments.KindChat:
		chat := ev.Chat
		mark := " "
		if ev.FirstChat {
			mark = "+"
		}
		text := chat.Text
		if chat.Action {
			text = "*" + text + "*"
		}
		return fmt.Sprintf("%s %s%s %s(%s) [%s]: %s",
			prefix, mark, chat.Room.ShortLabel(), chat.Name(), chat.UserID, chat.Tier, text)
	default:
		return prefix + " ?"
	}
}

// Printer построчно пишет события в w; безопасен для конкурентного использования.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter создаёт Printer поверх w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Event печатает одно событие.
func (p *Printer) Event(ev comments.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w, Format(ev))
}

// Section печатает заголовок и список событий одним блоком.
func (p *Printer) Section(title string, events []comments.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "--- %s (%d) ---\n", title, len(events))
	for _, ev := range events {
		fmt.Fprintln(p.w, Format(ev))
	}
}

// Linef печатает произвольную служебную строку.
func (p *Printer) Linef(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w, strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// View печатает последние n событий отфильтрованного вида через Count/At.
func (p *Printer) View(store *comments.Store, n int) {
	count := store.Count()
	from := count - n
	if from < 0 {
		from = 0
	}

	events := make([]comments.Event, 0, count-from)
	for i := from; i < count; i++ {
		ev, ok := store.At(i)
		if !ok {
			break
		}
		events = append(events, ev)
	}
	p.Section(fmt.Sprintf("view %d-%d of %d", from, from+len(events), count), events)
}

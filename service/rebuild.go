package service

import (
	"log"
	"sync/atomic"

	"twitch-chat-viewer/comments"
	"twitch-chat-viewer/render"
)

// viewTail — сколько строк вида перепечатывать после перестроения.
const viewTail = 20

// rebuilder запрашивает перестроение вида. Store отклоняет запрос, пока идёт
// предыдущее перестроение, поэтому отклонённый запрос остаётся pending и
// повторяется по завершении текущего или на следующем тике.
type rebuilder struct {
	store   *comments.Store
	printer *render.Printer
	pending atomic.Bool
}

func newRebuilder(store *comments.Store, printer *render.Printer) *rebuilder {
	return &rebuilder{store: store, printer: printer}
}

// Request помечает вид устаревшим и пытается запустить перестроение.
func (r *rebuilder) Request() {
	r.pending.Store(true)
	r.Retry()
}

// Retry запускает перестроение, если есть отложенный запрос. Запрос,
// отклонённый занятым Store, подберёт done текущего перестроения; если оно
// успело завершиться, Retry повторяет попытку сам.
func (r *rebuilder) Retry() {
	for r.pending.CompareAndSwap(true, false) {
		if r.store.Rebuild(r.done) {
			return
		}
		r.pending.Store(true)
		if r.store.Rebuilding() {
			log.Printf("вид: перестроение занято, повторим позже")
			return
		}
	}
}

func (r *rebuilder) done() {
	if r.printer != nil {
		r.printer.View(r.store, viewTail)
	}
	r.Retry()
}

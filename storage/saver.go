package storage

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"twitch-chat-viewer/comments"
)

// SaverConfig задаёт периодичность и таймаут записи настроек.
type SaverConfig struct {
	ChanBuffer   int
	FlushEvery   time.Duration
	FlushTimeout time.Duration
}

type ruleWriter interface {
	Save(ctx context.Context, rs comments.RuleSet) error
}

// Saver асинхронно сохраняет правила фильтрации; из серии изменений
// между флашами записывается только последнее.
type Saver struct {
	input   chan comments.RuleSet
	config  SaverConfig
	writer  ruleWriter
	dropped atomic.Uint64
	saved   atomic.Uint64
}

// NewSaver создаёт Saver и запускает фоновые флаши.
func NewSaver(ctx context.Context, prefs *Preferences, cfg SaverConfig) *Saver {
	return newSaver(ctx, prefs, cfg)
}

func newSaver(ctx context.Context, writer ruleWriter, cfg SaverConfig) *Saver {
	if cfg.ChanBuffer <= 0 {
		cfg.ChanBuffer = 16
	}
	s := &Saver{
		input:  make(chan comments.RuleSet, cfg.ChanBuffer),
		config: cfg,
		writer: writer,
	}

	go s.run(ctx)

	return s
}

// Enqueue ставит правила на запись; при переполнении очереди возвращает false.
func (s *Saver) Enqueue(rs comments.RuleSet) bool {
	select {
	case s.input <- rs:
		return true
	default:
		dropped := s.dropped.Add(1)
		log.Printf("настройки: очередь записи заполнена, всего отброшено %d", dropped)
		return false
	}
}

// Dropped возвращает число изменений, отброшенных из-за переполнения.
func (s *Saver) Dropped() uint64 {
	return s.dropped.Load()
}

// Saved возвращает число успешных записей.
func (s *Saver) Saved() uint64 {
	return s.saved.Load()
}

func (s *Saver) run(ctx context.Context) {
	flushTicker := time.NewTicker(s.config.FlushEvery)
	defer flushTicker.Stop()

	var pending *comments.RuleSet

	flush := func() {
		if pending == nil {
			return
		}

		dbCtx, cancel := context.WithTimeout(context.Background(), s.config.FlushTimeout)
		defer cancel()

		if err := s.writer.Save(dbCtx, *pending); err != nil {
			// оставляем pending: повторим на следующем тике
			log.Printf("настройки: ошибка записи: %v", err)
			return
		}
		s.saved.Add(1)
		pending = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			log.Printf("настройки: контекст отменён, всего записей = %d", s.saved.Load())
			return
		case <-flushTicker.C:
			flush()
		case rs := <-s.input:
			pending = &rs
		}
	}
}

package service

import (
	"context"
	"log"
	"sync"

	"twitch-chat-viewer/comments"
)

// RuleStore — хранилище правил фильтрации.
type RuleStore interface {
	Load(ctx context.Context) (comments.RuleSet, bool, error)
	Save(ctx context.Context, rs comments.RuleSet) error
}

// maxLocal ограничивает число запомненных локальных правок.
const maxLocal = 64

// syncer применяет к Rules правила, изменённые в хранилище, и
// запрашивает перестроение вида. Правки пульта проходят через Enqueue:
// их запись в хранилище не считается внешним изменением.
type syncer struct {
	repo      RuleStore
	rules     *comments.Rules
	rebuilder *rebuilder
	saver     RuleSaver

	mu         sync.Mutex
	lastLoaded comments.RuleSet
	loaded     bool
	// local — локальные правки в порядке постановки на запись, ещё не
	// прочитанные обратно из хранилища.
	local []comments.RuleSet
}

func newSyncer(repo RuleStore, rules *comments.Rules, rb *rebuilder, saver RuleSaver) *syncer {
	return &syncer{repo: repo, rules: rules, rebuilder: rb, saver: saver}
}

// Enqueue запоминает локальную правку и передаёт её на запись.
func (s *syncer) Enqueue(rs comments.RuleSet) bool {
	s.mu.Lock()
	s.local = append(s.local, rs)
	if len(s.local) > maxLocal {
		s.local = s.local[len(s.local)-maxLocal:]
	}
	s.mu.Unlock()

	if s.saver == nil {
		return false
	}
	return s.saver.Enqueue(rs)
}

// ownIndex ищет rs среди локальных правок, начиная с последней.
func (s *syncer) ownIndex(rs comments.RuleSet) int {
	for i := len(s.local) - 1; i >= 0; i-- {
		if s.local[i].Equal(rs) {
			return i
		}
	}
	return -1
}

// Init загружает правила при старте. Если хранилище пустое, в него
// записываются текущие правила (из окружения).
func (s *syncer) Init(ctx context.Context) error {
	rs, found, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !found {
		current := s.rules.Current()
		if err := s.repo.Save(ctx, current); err != nil {
			return err
		}
		s.lastLoaded, s.loaded = current, true
		return nil
	}

	s.lastLoaded, s.loaded = rs, true
	s.rules.Set(rs)
	return nil
}

// Sync перечитывает хранилище. Правила применяются, только если изменились
// в хранилище с прошлой загрузки, чтобы не затирать ещё не записанные правки.
func (s *syncer) Sync(ctx context.Context) {
	defer s.rebuilder.Retry()

	rs, _, err := s.repo.Load(ctx)
	if err != nil {
		log.Printf("настройки: ошибка загрузки: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && rs.Equal(s.lastLoaded) {
		return
	}
	s.lastLoaded, s.loaded = rs, true

	// записана наша правка; более ранние уже перекрыты ею
	if i := s.ownIndex(rs); i >= 0 {
		s.local = s.local[i+1:]
		return
	}
	s.local = nil

	if rs.Equal(s.rules.Current()) {
		return
	}
	s.rules.Set(rs)
	log.Printf("настройки: правила изменены извне, перестраиваем вид")
	s.rebuilder.pending.Store(true)
}

package comments

import "log"

// Rebuild перестраивает отфильтрованный вид по текущим правилам в фоне и
// вызывает done по завершении. Если перестроение уже идёт, запрос
// отклоняется и возвращается false; повторить его — забота вызывающего.
//
// Первая фаза фильтрует префикс лога без блокировки. Вторая под блокировкой
// подменяет вид и досчитывает события, пришедшие за время первой фазы.
func (s *Store) Rebuild(done func()) bool {
	if !s.tryAcquire(flagRebuilding, flagRebuilding) {
		log.Printf("comments: перестроение уже выполняется, запрос отклонён")
		return false
	}

	f := s.rules.load()
	src, session := s.snapshot()

	go func() {
		working := make([]*Event, 0, len(src))
		for _, ev := range src {
			if f.allows(ev) {
				working = append(working, ev)
			}
		}

		if s.afterScan != nil {
			s.afterScan()
		}

		s.install(f, working, len(src), session)
		s.release(flagRebuilding)

		if done != nil {
			done()
		}
	}()

	return true
}

// install — вторая фаза перестроения.
func (s *Store) install(f *filter, working []*Event, scanned int, session uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != session {
		log.Printf("comments: лог сброшен во время перестроения, результат отброшен")
		return
	}

	delta := s.source[scanned:]
	for _, ev := range delta {
		if f.allows(ev) {
			working = append(working, ev)
		}
	}
	s.filtered = working

	log.Printf("comments: вид перестроен, показано %d из %d событий (досчитано %d)",
		len(s.filtered), len(s.source), len(delta))
}

package comments

import "time"

// ActiveCount в фоне считает число разных зрителей, писавших за последнее
// окно, и передаёт результат в done. Если идёт перестроение или другой
// подсчёт, done сразу получает ok == false, как и при сбросе лога во время подсчёта.
// Перестроение, начатое после старта подсчёта, результат не отменяет: лог
// при перестроении не меняется.
func (s *Store) ActiveCount(done func(active int, ok bool)) {
	if done == nil {
		done = func(int, bool) {}
	}
	if !s.tryAcquire(flagEstimating, flagEstimating|flagRebuilding) {
		done(0, false)
		return
	}

	src, session := s.snapshot()
	cutoff := s.now().Add(-s.window)

	go func() {
		active := countActive(src, cutoff)

		if s.afterCount != nil {
			s.afterCount()
		}

		s.mu.Lock()
		stale := s.session != session
		s.mu.Unlock()

		s.release(flagEstimating)
		done(active, !stale)
	}()
}

// countActive идёт от новых событий к старым и останавливается на первом
// событии старше cutoff: лог упорядочен по времени поступления.
func countActive(src []*Event, cutoff time.Time) int {
	seen := make(map[string]struct{})
	for i := len(src) - 1; i >= 0; i-- {
		ev := src[i]
		if ev.ArrivedAt.Before(cutoff) {
			break
		}
		if ev.Kind != KindChat || !ev.Chat.IsUserComment() {
			continue
		}
		seen[ev.Chat.UserID] = struct{}{}
	}
	return len(seen)
}

package comments

// Флаги фоновых задач. Перестроение исключает оценку активности,
// но не наоборот: перестроение не трогает source.
const (
	flagRebuilding uint32 = 1 << iota
	flagEstimating
)

// tryAcquire атомарно выставляет flag, если не выставлен ни один из blockedBy.
func (s *Store) tryAcquire(flag, blockedBy uint32) bool {
	for {
		cur := s.busy.Load()
		if cur&blockedBy != 0 {
			return false
		}
		if s.busy.CompareAndSwap(cur, cur|flag) {
			return true
		}
	}
}

func (s *Store) release(flag uint32) {
	for {
		cur := s.busy.Load()
		if s.busy.CompareAndSwap(cur, cur&^flag) {
			return
		}
	}
}

// Rebuilding сообщает, идёт ли перестроение отфильтрованного вида.
func (s *Store) Rebuilding() bool {
	return s.busy.Load()&flagRebuilding != 0
}

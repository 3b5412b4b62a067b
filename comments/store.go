package comments

import (
	"sync"
	"sync/atomic"
	"time"

	"twitch-chat-viewer/model"
)

// DefaultActiveWindow — окно, в котором автор считается активным.
const DefaultActiveWindow = 5 * time.Minute

// Store — потокобезопасный журнал событий одной трансляции.
//
// source хранит все события в порядке поступления и только растёт; filtered —
// подпоследовательность source, удовлетворяющая Rules. Элементы source не
// перезаписываются: фоновые задачи читают префикс source без блокировки.
type Store struct {
	rules  *Rules
	now    func() time.Time
	window time.Duration

	mu        sync.Mutex
	source    []*Event
	filtered  []*Event
	firstChat map[string]bool
	nextNo    uint64
	session   uint64

	busy atomic.Uint32

	// afterScan вызывается между фазами перестроения, afterCount — после
	// подсчёта активных до проверки сессии; используются в тестах.
	afterScan  func()
	afterCount func()
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени поступления событий.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithActiveWindow задаёт окно для ActiveCount.
func WithActiveWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.window = d
		}
	}
}

// NewStore создаёт пустой Store, фильтрующий события по rules.
func NewStore(rules *Rules, opts ...Option) *Store {
	if rules == nil {
		rules = NewRules(RuleSet{})
	}
	s := &Store{
		rules:     rules,
		now:       time.Now,
		window:    DefaultActiveWindow,
		firstChat: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules возвращает правила, по которым Store фильтрует события.
func (s *Store) Rules() *Rules {
	return s.rules
}

// AppendSystem добавляет системное сообщение.
func (s *Store) AppendSystem(text string) (appended bool, count int) {
	_, appended, count = s.appendSystem(text)
	return appended, count
}

// AppendSystemEvent как AppendSystem, но возвращает копию добавленного события.
func (s *Store) AppendSystemEvent(text string) (Event, bool) {
	ev, appended, _ := s.appendSystem(text)
	return ev, appended
}

// AppendChat добавляет сообщение чата и отмечает первое сообщение зрителя за сессию.
func (s *Store) AppendChat(chat model.ChatMessage) (appended bool, count int) {
	_, appended, count = s.appendChat(chat)
	return appended, count
}

// AppendChatEvent как AppendChat, но возвращает копию добавленного события.
func (s *Store) AppendChatEvent(chat model.ChatMessage) (Event, bool) {
	ev, appended, _ := s.appendChat(chat)
	return ev, appended
}

// AppendDebug добавляет отладочное сообщение.
func (s *Store) AppendDebug(text string) (appended bool, count int) {
	_, appended, count = s.appendDebug(text)
	return appended, count
}

// AppendDebugEvent как AppendDebug, но возвращает копию добавленного события.
func (s *Store) AppendDebugEvent(text string) (Event, bool) {
	ev, appended, _ := s.appendDebug(text)
	return ev, appended
}

func (s *Store) appendSystem(text string) (Event, bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.append(newTextEvent(s.nextNo, KindSystem, text, s.now()))
}

func (s *Store) appendChat(chat model.ChatMessage) (Event, bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := false
	if chat.IsUserComment() && !s.firstChat[chat.UserID] {
		s.firstChat[chat.UserID] = true
		first = true
	}
	return s.append(newChatEvent(s.nextNo, chat, first, s.now()))
}

func (s *Store) appendDebug(text string) (Event, bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.append(newTextEvent(s.nextNo, KindDebug, text, s.now()))
}

// append требует удержания s.mu.
func (s *Store) append(ev *Event) (Event, bool, int) {
	s.nextNo++
	s.source = append(s.source, ev)

	appended := false
	if s.rules.load().allows(ev) {
		s.filtered = append(s.filtered, ev)
		appended = true
	}
	return *ev, appended, len(s.filtered)
}

// Count возвращает число событий в отфильтрованном виде.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.filtered)
}

// At возвращает событие отфильтрованного вида по индексу. Вид может
// смениться между Count и At, поэтому выход за границы не паникует.
func (s *Store) At(index int) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.filtered) {
		return Event{}, false
	}
	return *s.filtered[index], true
}

// Tail возвращает до n последних событий отфильтрованного вида.
func (s *Store) Tail(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.filtered) {
		n = len(s.filtered)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Event, 0, n)
	for _, ev := range s.filtered[len(s.filtered)-n:] {
		out = append(out, *ev)
	}
	return out
}

// MessagesFrom возвращает все сообщения автора из полного лога, без учёта фильтров.
func (s *Store) MessagesFrom(userID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, ev := range s.source {
		if ev.Kind == KindChat && ev.Chat.UserID == userID {
			out = append(out, *ev)
		}
	}
	return out
}

// FirstChatSeen сообщает, писал ли зритель в текущей сессии.
func (s *Store) FirstChatSeen(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.firstChat[userID]
}

// Len возвращает размер полного лога.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.source)
}

// RemoveAll сбрасывает лог, вид, отметки первых сообщений и нумерацию.
// Незавершённые фоновые задачи прошлой сессии завершаются без эффекта.
func (s *Store) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// nil, а не source[:0]: старый массив может читаться фоновой задачей
	s.source = nil
	s.filtered = nil
	s.firstChat = make(map[string]bool)
	s.nextNo = 0
	s.session++
}

// snapshot возвращает префикс лога, безопасный для чтения без блокировки.
func (s *Store) snapshot() (src []*Event, session uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.source[:len(s.source):len(s.source)], s.session
}

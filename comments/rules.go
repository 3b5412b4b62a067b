package comments

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"twitch-chat-viewer/model"
)

// RuleSet — снимок правил фильтрации отображаемого чата.
type RuleSet struct {
	MuteUserIDsEnabled bool
	MutedUserIDs       []string
	MuteWordsEnabled   bool
	MutedWords         []string
	SuppressEmotion    bool
	ShowDebug          bool
}

// Equal сравнивает два набора правил с учётом порядка списков.
func (r RuleSet) Equal(o RuleSet) bool {
	return r.MuteUserIDsEnabled == o.MuteUserIDsEnabled &&
		r.MuteWordsEnabled == o.MuteWordsEnabled &&
		r.SuppressEmotion == o.SuppressEmotion &&
		r.ShowDebug == o.ShowDebug &&
		slices.Equal(r.MutedUserIDs, o.MutedUserIDs) &&
		slices.Equal(r.MutedWords, o.MutedWords)
}

func (r RuleSet) clone() RuleSet {
	r.MutedUserIDs = slices.Clone(r.MutedUserIDs)
	r.MutedWords = slices.Clone(r.MutedWords)
	return r
}

// filter — скомпилированный RuleSet: множество ID и слова в нижнем регистре.
type filter struct {
	rules      RuleSet
	userIDs    map[string]struct{}
	lowerWords []string
}

func compile(rs RuleSet) *filter {
	f := &filter{
		rules:      rs.clone(),
		userIDs:    make(map[string]struct{}, len(rs.MutedUserIDs)),
		lowerWords: make([]string, 0, len(rs.MutedWords)),
	}
	for _, id := range rs.MutedUserIDs {
		f.userIDs[id] = struct{}{}
	}
	for _, w := range rs.MutedWords {
		// пустая строка — подстрока любого текста, её пропускаем
		if w = strings.ToLower(w); w != "" {
			f.lowerWords = append(f.lowerWords, w)
		}
	}
	return f
}

func (f *filter) allows(ev *Event) bool {
	switch ev.Kind {
	case KindSystem:
		return true
	case KindDebug:
		return f.rules.ShowDebug
	case KindChat:
		return f.allowsChat(ev.Chat)
	default:
		return false
	}
}

func (f *filter) allowsChat(chat model.ChatMessage) bool {
	if f.rules.MuteUserIDsEnabled {
		if _, muted := f.userIDs[chat.UserID]; muted {
			return false
		}
	}
	if f.rules.SuppressEmotion && chat.IsEmotion() {
		return false
	}
	if f.rules.MuteWordsEnabled && len(f.lowerWords) > 0 {
		text := strings.ToLower(chat.Text)
		for _, w := range f.lowerWords {
			if strings.Contains(text, w) {
				return false
			}
		}
	}
	return true
}

// Rules — изменяемые правила фильтрации, которыми владеет слой настроек.
// Store читает их в момент проверки события; изменение само по себе не
// перестраивает отфильтрованный вид, для этого нужен Store.Rebuild.
type Rules struct {
	mu      sync.Mutex
	current atomic.Pointer[filter]
}

// NewRules создаёт правила с начальным набором rs.
func NewRules(rs RuleSet) *Rules {
	r := &Rules{}
	r.current.Store(compile(rs))
	return r
}

// Current возвращает копию действующего набора правил.
func (r *Rules) Current() RuleSet {
	return r.load().rules.clone()
}

// Set заменяет набор правил целиком.
func (r *Rules) Set(rs RuleSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Store(compile(rs))
}

// Update применяет fn к копии текущих правил и сохраняет результат.
// Возвращает true, если правила изменились.
func (r *Rules) Update(fn func(*RuleSet)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.load().rules
	next := before.clone()
	fn(&next)
	if next.Equal(before) {
		return false
	}
	r.current.Store(compile(next))
	return true
}

func (r *Rules) load() *filter {
	if f := r.current.Load(); f != nil {
		return f
	}
	return compile(RuleSet{})
}

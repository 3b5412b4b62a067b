package comments

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"twitch-chat-viewer/model"
)

func userChat(userID, text string) model.ChatMessage {
	return model.ChatMessage{UserID: userID, Username: userID, Text: text, Tier: model.TierOrdinary}
}

func rebuildAndWait(t *testing.T, s *Store) {
	t.Helper()
	done := make(chan struct{})
	if !s.Rebuild(func() { close(done) }) {
		t.Fatalf("rebuild was rejected")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("rebuild did not complete")
	}
}

func activeAndWait(t *testing.T, s *Store) (int, bool) {
	t.Helper()
	type result struct {
		active int
		ok     bool
	}
	ch := make(chan result, 1)
	s.ActiveCount(func(active int, ok bool) { ch <- result{active, ok} })
	select {
	case r := <-ch:
		return r.active, r.ok
	case <-time.After(2 * time.Second):
		t.Fatalf("active count did not complete")
	}
	return 0, false
}

// assertConsistent проверяет, что вид — упорядоченная подпоследовательность лога.
func assertConsistent(t *testing.T, s *Store) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	j := 0
	for _, ev := range s.filtered {
		for j < len(s.source) && s.source[j] != ev {
			j++
		}
		if j == len(s.source) {
			t.Fatalf("filtered event #%d is not an ordered member of the source log", ev.No)
		}
		j++
	}
}

func TestAppendFiltersMutedWords(t *testing.T) {
	s := NewStore(NewRules(RuleSet{MuteWordsEnabled: true, MutedWords: []string{"spam"}}))

	s.AppendSystem("Welcome")
	if appended, count := s.AppendChat(userChat("U1", "hi")); !appended || count != 2 {
		t.Fatalf("expected U1 chat appended with count 2, got %v %d", appended, count)
	}
	if appended, count := s.AppendChat(userChat("U2", "SPAM here")); appended || count != 2 {
		t.Fatalf("expected U2 chat filtered with count 2, got %v %d", appended, count)
	}

	if s.Count() != 2 {
		t.Fatalf("expected 2 visible events, got %d", s.Count())
	}
	for i := 0; i < s.Count(); i++ {
		ev, _ := s.At(i)
		if ev.Kind == KindChat && ev.Chat.UserID == "U2" {
			t.Fatalf("muted chat is visible at %d", i)
		}
	}

	fromU2 := s.MessagesFrom("U2")
	if len(fromU2) != 1 || fromU2[0].Chat.Text != "SPAM here" {
		t.Fatalf("expected U2 transcript to contain the muted chat, got %+v", fromU2)
	}
}

func TestAppendFiltersMutedUserIDs(t *testing.T) {
	s := NewStore(NewRules(RuleSet{MuteUserIDsEnabled: true, MutedUserIDs: []string{"U2"}}))

	for i := 0; i < 3; i++ {
		s.AppendChat(userChat("U1", fmt.Sprintf("u1 #%d", i)))
		s.AppendChat(userChat("U2", fmt.Sprintf("u2 #%d", i)))
	}

	if s.Count() != 3 {
		t.Fatalf("expected 3 visible chats, got %d", s.Count())
	}
	for i := 0; i < 3; i++ {
		ev, ok := s.At(i)
		if !ok || ev.Chat.UserID != "U1" {
			t.Fatalf("expected U1 chat at %d, got %+v", i, ev)
		}
	}
}

func TestMuteTogglesDisabledIgnoreLists(t *testing.T) {
	s := NewStore(NewRules(RuleSet{
		MutedUserIDs: []string{"U1"},
		MutedWords:   []string{"hi", ""},
	}))

	if appended, _ := s.AppendChat(userChat("U1", "hi")); !appended {
		t.Fatalf("lists without enabled toggles must not mute")
	}

	s.Rules().Update(func(rs *RuleSet) {
		rs.MuteWordsEnabled = true
		rs.MutedWords = []string{""}
	})
	if appended, _ := s.AppendChat(userChat("U3", "anything")); !appended {
		t.Fatalf("empty mute word must not mute everything")
	}
}

func TestDebugVisibilityFollowsRebuild(t *testing.T) {
	rules := NewRules(RuleSet{ShowDebug: false})
	s := NewStore(rules)

	s.AppendDebug("trace")
	s.AppendSystem("notice")
	if s.Count() != 1 {
		t.Fatalf("expected only the system notice visible, got %d", s.Count())
	}
	if ev, _ := s.At(0); ev.Kind != KindSystem || ev.Text != "notice" {
		t.Fatalf("unexpected visible event %+v", ev)
	}

	rules.Update(func(rs *RuleSet) { rs.ShowDebug = true })
	if s.Count() != 1 {
		t.Fatalf("rule change alone must not rebuild the view")
	}

	rebuildAndWait(t, s)
	if s.Count() != 2 {
		t.Fatalf("expected 2 visible events after rebuild, got %d", s.Count())
	}
	if ev, _ := s.At(0); ev.Kind != KindDebug {
		t.Fatalf("expected debug event first after rebuild, got %s", ev.Kind)
	}
}

func TestSuppressEmotion(t *testing.T) {
	s := NewStore(NewRules(RuleSet{SuppressEmotion: true}))

	s.AppendChat(userChat("U1", "/emotion clap"))
	s.AppendChat(model.ChatMessage{UserID: "U1", Text: "Kappa", EmoteOnly: true})
	s.AppendChat(userChat("U1", "hello"))

	if s.Count() != 1 {
		t.Fatalf("expected emotions suppressed, got %d visible", s.Count())
	}
}

func TestSequenceNumbersUnderConcurrentAppends(t *testing.T) {
	s := NewStore(NewRules(RuleSet{MuteWordsEnabled: true, MutedWords: []string{"odd"}}))

	const workers, perWorker = 8, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				switch i % 3 {
				case 0:
					s.AppendSystem("sys")
				case 1:
					s.AppendChat(userChat(fmt.Sprintf("w%d", w), "odd one"))
				default:
					s.AppendDebug("dbg")
				}
			}
		}(w)
	}
	wg.Wait()

	if s.Len() != workers*perWorker {
		t.Fatalf("expected %d events, got %d", workers*perWorker, s.Len())
	}

	s.mu.Lock()
	for i, ev := range s.source {
		if ev.No != uint64(i) {
			s.mu.Unlock()
			t.Fatalf("event at %d has sequence number %d", i, ev.No)
		}
	}
	s.mu.Unlock()

	assertConsistent(t, s)
}

func TestRebuildIncludesEventsAppendedDuringScan(t *testing.T) {
	rules := NewRules(RuleSet{})
	s := NewStore(rules)

	text := func(i int) string {
		if i%10 == 0 {
			return fmt.Sprintf("comment %d mute", i)
		}
		return fmt.Sprintf("comment %d", i)
	}

	for i := 0; i < 1000; i++ {
		s.AppendChat(userChat(fmt.Sprintf("U%d", i%7), text(i)))
	}
	if s.Count() != 1000 {
		t.Fatalf("expected 1000 visible chats, got %d", s.Count())
	}

	rules.Update(func(rs *RuleSet) {
		rs.MuteWordsEnabled = true
		rs.MutedWords = []string{"MUTE"}
	})

	s.afterScan = func() {
		for i := 1000; i < 1050; i++ {
			s.AppendChat(userChat("late", text(i)))
		}
	}
	rebuildAndWait(t, s)

	if s.Len() != 1050 {
		t.Fatalf("expected 1050 events in log, got %d", s.Len())
	}
	if s.Count() != 945 {
		t.Fatalf("expected 945 visible chats, got %d", s.Count())
	}

	var prev uint64
	for i := 0; i < s.Count(); i++ {
		ev, _ := s.At(i)
		if i > 0 && ev.No <= prev {
			t.Fatalf("view out of order at %d: %d after %d", i, ev.No, prev)
		}
		prev = ev.No
	}
	assertConsistent(t, s)
}

func TestRebuildWithConcurrentProducers(t *testing.T) {
	rules := NewRules(RuleSet{})
	s := NewStore(rules)
	for i := 0; i < 500; i++ {
		s.AppendChat(userChat("U1", fmt.Sprintf("m%d", i)))
	}

	rules.Update(func(rs *RuleSet) {
		rs.MuteUserIDsEnabled = true
		rs.MutedUserIDs = []string{"U1"}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.AppendChat(userChat("U1", "more"))
			s.AppendChat(userChat("U2", "other"))
		}
	}()
	rebuildAndWait(t, s)
	wg.Wait()

	if s.Count() != 200 {
		t.Fatalf("expected only U2 chats visible, got %d", s.Count())
	}
	assertConsistent(t, s)
}

func TestRebuildRejectedWhileInFlight(t *testing.T) {
	s := NewStore(NewRules(RuleSet{}))
	s.AppendSystem("one")

	release := make(chan struct{})
	s.afterScan = func() { <-release }

	done := make(chan struct{})
	if !s.Rebuild(func() { close(done) }) {
		t.Fatalf("first rebuild must be accepted")
	}
	if !s.Rebuilding() {
		t.Fatalf("expected rebuilding state")
	}
	if s.Rebuild(nil) {
		t.Fatalf("second rebuild must be rejected while the first is in flight")
	}
	if _, ok := activeAndWait(t, s); ok {
		t.Fatalf("active count must be unavailable during rebuild")
	}
	if appended, count := s.AppendSystem("two"); !appended || count != 2 {
		t.Fatalf("appends must proceed during rebuild, got %v %d", appended, count)
	}

	close(release)
	<-done

	s.afterScan = nil
	rebuildAndWait(t, s)
	if s.Count() != 2 {
		t.Fatalf("expected 2 visible events, got %d", s.Count())
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	s := NewStore(NewRules(RuleSet{MuteWordsEnabled: true, MutedWords: []string{"x"}}))
	for i := 0; i < 50; i++ {
		text := fmt.Sprintf("comment %d", i)
		if i%3 == 0 {
			text += " x"
		}
		s.AppendChat(userChat("U1", text))
	}

	rebuildAndWait(t, s)
	first := s.Tail(s.Count())
	rebuildAndWait(t, s)
	second := s.Tail(s.Count())

	if len(first) != len(second) {
		t.Fatalf("rebuild changed view size: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].No != second[i].No {
			t.Fatalf("rebuild changed view at %d", i)
		}
	}
}

func TestRemoveAllDuringRebuildDiscardsResult(t *testing.T) {
	s := NewStore(NewRules(RuleSet{}))
	for i := 0; i < 10; i++ {
		s.AppendSystem("old")
	}

	s.afterScan = func() {
		s.RemoveAll()
		s.AppendSystem("new session")
	}
	rebuildAndWait(t, s)

	if s.Count() != 1 {
		t.Fatalf("expected only the new session event, got %d", s.Count())
	}
	ev, _ := s.At(0)
	if ev.Text != "new session" || ev.No != 0 {
		t.Fatalf("unexpected event after reset: %+v", ev)
	}
}

func TestFirstChatMarkedOnce(t *testing.T) {
	now := time.Now()
	s := NewStore(NewRules(RuleSet{}), WithClock(func() time.Time { return now }))

	s.AppendChat(userChat("U1", "hello"))
	now = now.Add(5 * time.Second)
	s.AppendChat(userChat("U1", "again"))
	s.AppendChat(model.ChatMessage{UserID: "caster", Text: "hi all", Tier: model.TierBroadcaster})

	first, _ := s.At(0)
	second, _ := s.At(1)
	third, _ := s.At(2)
	if !first.FirstChat || second.FirstChat {
		t.Fatalf("expected only the first chat marked, got %v %v", first.FirstChat, second.FirstChat)
	}
	if third.FirstChat || s.FirstChatSeen("caster") {
		t.Fatalf("non-user tiers must not be marked as first chat")
	}
	if !s.FirstChatSeen("U1") {
		t.Fatalf("expected U1 to be seen")
	}

	s.RemoveAll()
	if s.FirstChatSeen("U1") || s.Count() != 0 || s.Len() != 0 {
		t.Fatalf("expected empty store after RemoveAll")
	}
	if _, ok := s.At(0); ok {
		t.Fatalf("At must report out of range on an empty view")
	}
	s.AppendChat(userChat("U1", "new session"))
	if ev, _ := s.At(0); !ev.FirstChat || ev.No != 0 {
		t.Fatalf("expected first chat and sequence reset after RemoveAll, got %+v", ev)
	}
}

func TestActiveCountWindow(t *testing.T) {
	now := time.Now()
	clock := now.Add(-6 * time.Minute)
	s := NewStore(NewRules(RuleSet{}), WithClock(func() time.Time { return clock }))

	s.AppendChat(userChat("U1", "old"))
	s.AppendChat(userChat("U2", "old too"))
	clock = now
	s.AppendChat(userChat("U1", "recent"))
	s.AppendSystem("notice")
	s.AppendChat(model.ChatMessage{UserID: "op", Text: "rules", Tier: model.TierOperator})

	active, ok := activeAndWait(t, s)
	if !ok {
		t.Fatalf("expected active count to be available")
	}
	if active != 1 {
		t.Fatalf("expected 1 active user, got %d", active)
	}
}

func TestActiveCountRejectsOverlap(t *testing.T) {
	s := NewStore(NewRules(RuleSet{}))
	s.AppendChat(userChat("U1", "hi"))

	if !s.tryAcquire(flagEstimating, flagEstimating|flagRebuilding) {
		t.Fatalf("expected to acquire estimating flag")
	}
	if _, ok := activeAndWait(t, s); ok {
		t.Fatalf("overlapping active count must be unavailable")
	}
	s.release(flagEstimating)

	if active, ok := activeAndWait(t, s); !ok || active != 1 {
		t.Fatalf("expected 1 active user, got %d %v", active, ok)
	}
}

func TestActiveCountUnavailableAfterRemoveAll(t *testing.T) {
	s := NewStore(NewRules(RuleSet{}))
	s.AppendChat(userChat("U1", "hi"))
	s.AppendChat(userChat("U2", "hey"))

	s.afterCount = func() {
		s.RemoveAll()
		s.AppendChat(userChat("U3", "new session"))
	}
	if active, ok := activeAndWait(t, s); ok {
		t.Fatalf("count from a reset session must be unavailable, got %d", active)
	}

	s.afterCount = nil
	if active, ok := activeAndWait(t, s); !ok || active != 1 {
		t.Fatalf("expected 1 active user in the new session, got %d %v", active, ok)
	}
}

func TestAppendEventReturnsAppendedCopy(t *testing.T) {
	s := NewStore(NewRules(RuleSet{MuteWordsEnabled: true, MutedWords: []string{"spam"}}))

	s.AppendSystemEvent("welcome")
	ev, ok := s.AppendChatEvent(userChat("U1", "hi"))
	if !ok || ev.No != 1 || ev.Chat.Text != "hi" || !ev.FirstChat {
		t.Fatalf("unexpected appended chat: %+v %v", ev, ok)
	}

	// вид заменён, но возвращённое событие то же
	s.RemoveAll()
	if ev.Chat.Text != "hi" {
		t.Fatalf("returned event changed after RemoveAll: %+v", ev)
	}

	ev, ok = s.AppendChatEvent(userChat("U2", "spam here"))
	if ok || ev.No != 0 {
		t.Fatalf("expected filtered chat with sequence 0, got %+v %v", ev, ok)
	}
	if ev, ok := s.AppendDebugEvent("trace"); ok || ev.Kind != KindDebug {
		t.Fatalf("expected hidden debug event, got %+v %v", ev, ok)
	}
}

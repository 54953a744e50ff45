package agent

import (
	"fmt"
	"testing"

	"github.com/jungtaeinn/open-persona/pkg/llms"
)

func TestHistoryStore_AppendAndGet(t *testing.T) {
	store := NewHistoryStore(5)

	store.Append("p1", llms.UserMessage("hi"), llms.AssistantMessage("hello", nil))
	store.Append("p2", llms.UserMessage("other persona"))

	got := store.Get("p1")
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Content != "hi" || got[1].Content != "hello" {
		t.Errorf("unexpected messages: %+v", got)
	}
	if len(store.Get("p2")) != 1 {
		t.Error("sessions must be isolated per persona")
	}
	if store.Get("unknown") != nil && len(store.Get("unknown")) != 0 {
		t.Error("unknown persona should have empty history")
	}
}

func TestHistoryStore_GetReturnsCopy(t *testing.T) {
	store := NewHistoryStore(5)
	store.Append("p1", llms.UserMessage("original"))

	got := store.Get("p1")
	got[0].Content = "mutated"

	if store.Get("p1")[0].Content != "original" {
		t.Error("Get must return a copy")
	}
}

func TestHistoryStore_EvictsOldestBeyondTurnBound(t *testing.T) {
	store := NewHistoryStore(3)

	for i := 0; i < 10; i++ {
		store.Append("p1",
			llms.UserMessage(fmt.Sprintf("q%d", i)),
			llms.AssistantMessage(fmt.Sprintf("a%d", i), nil))
	}

	got := store.Get("p1")
	if len(got) != 6 {
		t.Fatalf("got %d messages, want 6 (3 turns)", len(got))
	}
	if got[0].Content != "q7" {
		t.Errorf("oldest kept = %q, want q7", got[0].Content)
	}
	if got[5].Content != "a9" {
		t.Errorf("newest = %q, want a9", got[5].Content)
	}
}

func TestHistoryStore_Clear(t *testing.T) {
	store := NewHistoryStore(5)
	store.Append("p1", llms.UserMessage("hi"))
	store.Append("p2", llms.UserMessage("keep me"))

	store.Clear("p1")

	if len(store.Get("p1")) != 0 {
		t.Error("history not cleared")
	}
	if len(store.Get("p2")) != 1 {
		t.Error("Clear must only affect the named persona")
	}
}

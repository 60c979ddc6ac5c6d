package conversation_test

import (
	"strings"
	"testing"

	model "github.com/structai/structai/backend/internal/model/conversation"
	conversation "github.com/structai/structai/backend/internal/service/conversation"
	"github.com/structai/structai/backend/internal/storage"
)

func TestApplyNewEntryPrependsNewestFirst(t *testing.T) {
	store := storage.NewMemoryStore(nil)
	svc := conversation.NewService(store)

	first := svc.NewEntry("Explain hash maps", "A hash map...", "digraph {A->B}", model.StyleVisual, false)
	svc.ApplyNewEntry(first)

	second := svc.NewEntry("Explain heaps", "A heap...", "", model.StyleConcise, false)
	entries := svc.ApplyNewEntry(second)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Question != "Explain heaps" {
		t.Fatalf("expected newest entry first, got %q", entries[0].Question)
	}
	if entries[1].Question != "Explain hash maps" {
		t.Fatalf("expected oldest entry last, got %q", entries[1].Question)
	}
	if store.PersistCalls != 2 {
		t.Fatalf("expected one persist per mutation, got %d", store.PersistCalls)
	}
}

func TestNewEntryIDsStrictlyIncrease(t *testing.T) {
	svc := conversation.NewService(storage.NewMemoryStore(nil))

	prev := svc.NewEntry("q", "a", "", model.StyleVisual, false).ID
	for i := 0; i < 50; i++ {
		id := svc.NewEntry("q", "a", "", model.StyleVisual, false).ID
		if id <= prev {
			t.Fatalf("expected strictly increasing ids, got %d after %d", id, prev)
		}
		prev = id
	}
}

func TestApplyFollowUpMergesMatchedEntry(t *testing.T) {
	store := storage.NewMemoryStore(nil)
	svc := conversation.NewService(store)

	entry := svc.NewEntry("Q1", "A1", "", model.StyleStepByStep, false)
	svc.ApplyNewEntry(entry)

	ctx := model.FollowUpContext{EntryID: entry.ID, Question: "Q1", Answer: "A1"}
	entries, merged, ok := svc.ApplyFollowUp(ctx, "Q2", "A2")
	if !ok {
		t.Fatal("expected follow-up to match")
	}
	if merged.ID != entry.ID {
		t.Fatalf("merged entry id mismatch: got %d want %d", merged.ID, entry.ID)
	}
	if len(entries) != 1 {
		t.Fatalf("follow-up must not change history length, got %d", len(entries))
	}

	want := "A1\n\n**Follow-up Question:** Q2\n\n**Answer:** A2"
	if entries[0].Answer != want {
		t.Fatalf("unexpected merged answer:\ngot  %q\nwant %q", entries[0].Answer, want)
	}
	if entries[0].ID != entry.ID {
		t.Fatalf("follow-up must not reassign id: got %d want %d", entries[0].ID, entry.ID)
	}
	if store.PersistCalls != 2 {
		t.Fatalf("expected persist after merge, got %d calls", store.PersistCalls)
	}
}

func TestApplyFollowUpMatchesByValueWithoutID(t *testing.T) {
	svc := conversation.NewService(storage.NewMemoryStore(nil))
	entry := svc.NewEntry("Q1", "A1", "", model.StyleVisual, false)
	svc.ApplyNewEntry(entry)

	// Contexts hydrated from older persisted state carry no entry id.
	entries, _, ok := svc.ApplyFollowUp(model.FollowUpContext{Question: "Q1", Answer: "A1"}, "Q2", "A2")
	if !ok {
		t.Fatal("expected value-equality match")
	}
	if !strings.Contains(entries[0].Answer, "**Follow-up Question:** Q2") {
		t.Fatalf("merged answer missing follow-up section: %q", entries[0].Answer)
	}
}

func TestApplyFollowUpMissLeavesHistoryUntouched(t *testing.T) {
	store := storage.NewMemoryStore(nil)
	svc := conversation.NewService(store)
	svc.ApplyNewEntry(svc.NewEntry("Q1", "A1", "", model.StyleVisual, false))
	persisted := store.PersistCalls

	entries, _, ok := svc.ApplyFollowUp(model.FollowUpContext{Question: "other", Answer: "other"}, "Q2", "A2")
	if ok {
		t.Fatal("expected merge miss")
	}
	if len(entries) != 1 || entries[0].Answer != "A1" {
		t.Fatalf("history changed on merge miss: %+v", entries)
	}
	if store.PersistCalls != persisted {
		t.Fatalf("merge miss must not persist, got %d extra calls", store.PersistCalls-persisted)
	}
}

func TestEmptyHistoryIsNeverPersisted(t *testing.T) {
	store := storage.NewMemoryStore(nil)
	conversation.NewService(store)

	if store.PersistCalls != 0 {
		t.Fatalf("hydrating an empty history must not persist, got %d calls", store.PersistCalls)
	}
}

func TestHydrateSeedsHistoryAndIDCounter(t *testing.T) {
	seeded := storage.NewMemoryStore([]model.Entry{
		{ID: 42, Question: "Q1", Answer: "A1", LearningStyle: model.StyleVisual},
	})
	svc := conversation.NewService(seeded)

	entries := svc.Entries()
	if len(entries) != 1 || entries[0].ID != 42 {
		t.Fatalf("unexpected hydrated history: %+v", entries)
	}

	next := svc.NewEntry("Q2", "A2", "", model.StyleConcise, false)
	if next.ID <= 42 {
		t.Fatalf("new ids must stay above hydrated ids, got %d", next.ID)
	}
}

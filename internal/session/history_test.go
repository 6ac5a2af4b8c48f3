package session

import (
	"reflect"
	"testing"
)

func TestHistoryEvictsOldestBeyondBound(t *testing.T) {
	h := NewHistory(2) // two exchanges = four turns

	for _, turn := range []Turn{
		{RoleUser, "q1"}, {RoleAssistant, "a1"},
		{RoleUser, "q2"}, {RoleAssistant, "a2"},
		{RoleUser, "q3"}, {RoleAssistant, "a3"},
	} {
		h.Append(turn)
	}

	want := []Turn{
		{RoleUser, "q2"}, {RoleAssistant, "a2"},
		{RoleUser, "q3"}, {RoleAssistant, "a3"},
	}
	if got := h.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	if h.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", h.Len())
	}
}

func TestHistoryOnUpdateSeesEveryMutation(t *testing.T) {
	h := NewHistory(2)
	var sizes []int
	h.OnUpdate(func(turns []Turn) { sizes = append(sizes, len(turns)) })

	h.Append(Turn{RoleUser, "hello"})
	h.Append(Turn{RoleAssistant, "hi"})

	if !reflect.DeepEqual(sizes, []int{1, 2}) {
		t.Fatalf("update sizes = %v, want [1 2]", sizes)
	}
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistory(2)
	h.Append(Turn{RoleUser, "hello"})
	snap := h.Snapshot()
	snap[0].Content = "mutated"
	if h.Snapshot()[0].Content != "hello" {
		t.Fatal("snapshot aliases internal storage")
	}
}

func TestHistoryMinimumCapacity(t *testing.T) {
	h := NewHistory(0)
	h.Append(Turn{RoleUser, "q1"})
	h.Append(Turn{RoleAssistant, "a1"})
	h.Append(Turn{RoleUser, "q2"})
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
}

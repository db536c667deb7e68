package conversations

import (
	"testing"
	"time"

	"github.com/crewplan/crewplan/pkg/models"
)

func TestAppendAndGet(t *testing.T) {
	s := NewStore(0)

	id := s.Append("", "org-1", "u-1",
		models.ChatTurn{Role: "user", Content: "move Ryan's hours"},
		models.ChatTurn{Role: "assistant", Content: "which project?"},
	)
	if id == "" {
		t.Fatal("Append returned empty id")
	}

	conv, ok := s.Get(id)
	if !ok {
		t.Fatal("Get returned false for fresh conversation")
	}
	if len(conv.Turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(conv.Turns))
	}
	if conv.OrgID != "org-1" || conv.UserID != "u-1" {
		t.Errorf("conv = %+v, want org-1/u-1", conv)
	}

	// Appending with the same id continues the dialogue.
	got := s.Append(id, "org-1", "u-1", models.ChatTurn{Role: "user", Content: "the Acme one"})
	if got != id {
		t.Errorf("Append returned %q, want same id %q", got, id)
	}
	conv, _ = s.Get(id)
	if len(conv.Turns) != 3 {
		t.Errorf("got %d turns, want 3", len(conv.Turns))
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore(0)
	id := s.Append("", "org-1", "u-1", models.ChatTurn{Role: "user", Content: "hello"})

	conv, _ := s.Get(id)
	conv.Turns[0].Content = "mutated"

	again, _ := s.Get(id)
	if again.Turns[0].Content != "hello" {
		t.Error("stored turn was mutated through a Get copy")
	}
}

func TestUnknownIDCreatesNewConversation(t *testing.T) {
	s := NewStore(0)
	id := s.Append("no-such-id", "org-1", "u-1", models.ChatTurn{Role: "user", Content: "hi"})
	if id == "no-such-id" {
		t.Error("unknown id was adopted instead of replaced")
	}
	if _, ok := s.Get(id); !ok {
		t.Error("new conversation not retrievable")
	}
}

func TestExpiryOnGet(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s := NewStoreAt(30*time.Minute, func() time.Time { return now })

	id := s.Append("", "org-1", "u-1", models.ChatTurn{Role: "user", Content: "hi"})

	now = now.Add(29 * time.Minute)
	if _, ok := s.Get(id); !ok {
		t.Fatal("conversation expired before TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := s.Get(id); ok {
		t.Fatal("conversation survived past TTL")
	}
}

func TestAppendRefreshesTTL(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s := NewStoreAt(30*time.Minute, func() time.Time { return now })

	id := s.Append("", "org-1", "u-1", models.ChatTurn{Role: "user", Content: "hi"})

	now = now.Add(20 * time.Minute)
	s.Append(id, "org-1", "u-1", models.ChatTurn{Role: "user", Content: "still here"})

	now = now.Add(20 * time.Minute)
	if _, ok := s.Get(id); !ok {
		t.Fatal("refreshed conversation expired 20 minutes after last turn")
	}
}

func TestSweepEvictsOnlyExpired(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s := NewStoreAt(30*time.Minute, func() time.Time { return now })

	old := s.Append("", "org-1", "u-1", models.ChatTurn{Role: "user", Content: "old"})
	now = now.Add(45 * time.Minute)
	fresh := s.Append("", "org-1", "u-1", models.ChatTurn{Role: "user", Content: "fresh"})

	if n := s.sweep(); n != 1 {
		t.Fatalf("sweep evicted %d, want 1", n)
	}
	if _, ok := s.Get(old); ok {
		t.Error("expired conversation survived sweep")
	}
	if _, ok := s.Get(fresh); !ok {
		t.Error("fresh conversation evicted by sweep")
	}
}

func TestClear(t *testing.T) {
	s := NewStore(0)
	id := s.Append("", "org-1", "u-1", models.ChatTurn{Role: "user", Content: "hi"})
	s.Clear(id)
	if _, ok := s.Get(id); ok {
		t.Error("cleared conversation still retrievable")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

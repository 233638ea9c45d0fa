package convmem

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/askmynotes/backend/internal/domain"
)

func TestCreateAndBindSubject(t *testing.T) {
	s := New(10, 30*time.Minute)
	id := s.CreateSession("geo")
	if id == "" {
		t.Fatal("empty session id")
	}
	subject, ok := s.GetSubjectID(id)
	if !ok || subject != "geo" {
		t.Fatalf("GetSubjectID = %q, %v; want geo, true", subject, ok)
	}
	if hist := s.GetHistory(id); len(hist) != 0 {
		t.Fatalf("fresh session has history: %v", hist)
	}
}

func TestAddTurnTrimsOldestFirst(t *testing.T) {
	s := New(10, 30*time.Minute)
	id := s.CreateSession("geo")

	for i := 1; i <= 12; i++ {
		s.AddTurn(id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	hist := s.GetHistory(id)
	if len(hist) != 20 {
		t.Fatalf("history length = %d, want 20", len(hist))
	}
	// Turns 1-2 evicted: the first remaining message is turn 3's user text.
	if hist[0].Role != domain.RoleUser || hist[0].Content != "q3" {
		t.Errorf("first message = %+v, want user q3", hist[0])
	}
	if last := hist[len(hist)-1]; last.Role != domain.RoleAssistant || last.Content != "a12" {
		t.Errorf("last message = %+v, want assistant a12", last)
	}
	// Relative order preserved.
	for i := 0; i < len(hist); i += 2 {
		turn := i/2 + 3
		if hist[i].Content != fmt.Sprintf("q%d", turn) || hist[i+1].Content != fmt.Sprintf("a%d", turn) {
			t.Fatalf("order broken at message %d: %+v %+v", i, hist[i], hist[i+1])
		}
	}
}

func TestAddTurnUnknownSessionIsNoop(t *testing.T) {
	s := New(10, 30*time.Minute)
	s.AddTurn("nope", "q", "a")
	if hist := s.GetHistory("nope"); len(hist) != 0 {
		t.Fatalf("unknown session has history: %v", hist)
	}
}

func TestExpiryOnGC(t *testing.T) {
	s := New(10, 30*time.Minute)
	current := time.Unix(1000, 0)
	s.now = func() time.Time { return current }

	stale := s.CreateSession("geo")
	current = current.Add(31 * time.Minute)
	// Creating a session runs the opportunistic GC pass.
	fresh := s.CreateSession("math")

	if _, ok := s.GetSubjectID(stale); ok {
		t.Error("expired session still present")
	}
	if hist := s.GetHistory(stale); len(hist) != 0 {
		t.Errorf("expired session returned history: %v", hist)
	}
	if subject, ok := s.GetSubjectID(fresh); !ok || subject != "math" {
		t.Errorf("fresh session missing: %q, %v", subject, ok)
	}
}

func TestReadRefreshesActivity(t *testing.T) {
	s := New(10, 30*time.Minute)
	current := time.Unix(1000, 0)
	s.now = func() time.Time { return current }

	id := s.CreateSession("geo")
	current = current.Add(20 * time.Minute)
	_ = s.GetHistory(id) // refresh
	current = current.Add(20 * time.Minute)
	s.CreateSession("other") // GC pass; id was active 20m ago, within TTL

	if _, ok := s.GetSubjectID(id); !ok {
		t.Error("refreshed session was evicted")
	}
}

func TestDeleteSessionIdempotent(t *testing.T) {
	s := New(10, 30*time.Minute)
	id := s.CreateSession("geo")
	s.DeleteSession(id)
	s.DeleteSession(id)
	if _, ok := s.GetSubjectID(id); ok {
		t.Error("deleted session still present")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(10, 30*time.Minute)
	id := s.CreateSession("geo")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.AddTurn(id, "q", "a")
				_ = s.GetHistory(id)
				_, _ = s.GetSubjectID(id)
			}
		}(i)
	}
	wg.Wait()

	if hist := s.GetHistory(id); len(hist) != 20 {
		t.Fatalf("history length = %d, want capped at 20", len(hist))
	}
}

package history

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecord_NewSession(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Record(context.Background(), "", "what is the spindle speed", "10000 RPM", 0.85)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated session ID")
	}

	msgs, err := s.Messages(context.Background(), id)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].Question != "what is the spindle speed" || msgs[0].Confidence != 0.85 {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
}

func TestRecord_AppendsToExistingSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Record(ctx, "", "first question", "first answer", 0.5)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	id2, err := s.Record(ctx, id, "second question", "second answer", 0.7)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id2 != id {
		t.Errorf("session ID changed: %s vs %s", id, id2)
	}

	msgs, err := s.Messages(ctx, id)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Question != "first question" || msgs[1].Question != "second question" {
		t.Error("messages out of order")
	}

	n, err := s.CountSessions(ctx)
	if err != nil {
		t.Fatalf("CountSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
}

func TestMessages_UnknownSession(t *testing.T) {
	s := newTestStore(t)
	msgs, err := s.Messages(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages = %d, want 0", len(msgs))
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := first.Record(context.Background(), "", "q", "a", 0.4)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	msgs, err := second.Messages(context.Background(), id)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("messages after reopen = %d, want 1", len(msgs))
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"kb-relay/internal/domain"
	"kb-relay/internal/repository"
)

type mockSessionRepo struct {
	sessions map[string]domain.ConversationSession
	getErr   error
	putErr   error
	puts     []domain.ConversationSession
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]domain.ConversationSession)}
}

func (m *mockSessionRepo) Get(_ context.Context, userID string) (domain.ConversationSession, error) {
	if m.getErr != nil {
		return domain.ConversationSession{}, m.getErr
	}
	s, ok := m.sessions[userID]
	if !ok {
		return domain.ConversationSession{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionRepo) Put(_ context.Context, session domain.ConversationSession) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts = append(m.puts, session)
	m.sessions[session.UserID] = session
	return nil
}

func newTestSessionService(repo repository.SessionRepository, now time.Time) *SessionService {
	svc := NewSessionService(repo, zap.NewNop(), DefaultSessionTTL)
	svc.now = func() time.Time { return now }
	return svc
}

func TestSessionService_ExpiryBoundary(t *testing.T) {
	written := time.Unix(1_700_000_000, 0)
	repo := newMockSessionRepo()

	writer := newTestSessionService(repo, written)
	if err := writer.Set(context.Background(), "U1", "sess-1"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	t.Run("present at t+86399", func(t *testing.T) {
		svc := newTestSessionService(repo, written.Add(86399*time.Second))
		id, ok := svc.Get(context.Background(), "U1")
		if !ok || id != "sess-1" {
			t.Fatalf("expected live session, got %q,%v", id, ok)
		}
	})

	t.Run("absent at t+86400", func(t *testing.T) {
		svc := newTestSessionService(repo, written.Add(86400*time.Second))
		if id, ok := svc.Get(context.Background(), "U1"); ok {
			t.Fatalf("expected expired session, got %q", id)
		}
		if _, stillStored := repo.sessions["U1"]; !stillStored {
			t.Fatalf("expired read must not delete the record")
		}
	})
}

func TestSessionService_MissingAndStorageErrors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("missing record", func(t *testing.T) {
		svc := newTestSessionService(newMockSessionRepo(), now)
		if _, ok := svc.Get(context.Background(), "U1"); ok {
			t.Fatalf("expected absent session")
		}
	})

	t.Run("read error degrades to absent", func(t *testing.T) {
		repo := newMockSessionRepo()
		repo.getErr = errors.New("dynamodb unavailable")
		svc := newTestSessionService(repo, now)
		if _, ok := svc.Get(context.Background(), "U1"); ok {
			t.Fatalf("expected absent session on storage error")
		}
	})

	t.Run("write error is returned", func(t *testing.T) {
		repo := newMockSessionRepo()
		repo.putErr = errors.New("conditional write failed")
		svc := newTestSessionService(repo, now)
		if err := svc.Set(context.Background(), "U1", "sess-1"); !errors.Is(err, repo.putErr) {
			t.Fatalf("expected put error, got %v", err)
		}
	})

	t.Run("empty user id", func(t *testing.T) {
		svc := newTestSessionService(newMockSessionRepo(), now)
		if _, ok := svc.Get(context.Background(), "  "); ok {
			t.Fatalf("expected absent session for empty user")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		var svc *SessionService
		if _, ok := svc.Get(context.Background(), "U1"); ok {
			t.Fatalf("expected absent session for nil service")
		}
		if err := svc.Set(context.Background(), "U1", "x"); !errors.Is(err, ErrRelayNotConfigured) {
			t.Fatalf("expected ErrRelayNotConfigured, got %v", err)
		}
	})
}

func TestSessionService_SetOverwritesWithCurrentTimestamp(t *testing.T) {
	repo := newMockSessionRepo()
	first := newTestSessionService(repo, time.Unix(100, 0))
	_ = first.Set(context.Background(), "U1", "old")

	second := newTestSessionService(repo, time.Unix(200, 0))
	_ = second.Set(context.Background(), "U1", "new")

	got := repo.sessions["U1"]
	if got.SessionID != "new" || got.CreatedAt != 200 {
		t.Fatalf("expected overwritten session, got %+v", got)
	}
}

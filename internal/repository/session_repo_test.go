package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"kb-relay/internal/domain"
)

type mockPgQuerier struct {
	lastSQL  string
	lastArgs []any
	row      mockPgRow
	execErr  error
}

func (m *mockPgQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.lastSQL = sql
	m.lastArgs = args
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockPgQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.lastSQL = sql
	m.lastArgs = args
	return m.row
}

type mockPgRow struct {
	session domain.ConversationSession
	err     error
}

func (r mockPgRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.session.UserID
	*dest[1].(*string) = r.session.SessionID
	*dest[2].(*int64) = r.session.CreatedAt
	return nil
}

func TestPgSessionRepository_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := &mockPgQuerier{row: mockPgRow{session: domain.ConversationSession{UserID: "U1", SessionID: "sess-1", CreatedAt: 1_700_000_000}}}
		repo := newPgSessionRepository(db, "SlackBotSessionTable")

		got, err := repo.Get(context.Background(), "U1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.SessionID != "sess-1" || got.CreatedAt != 1_700_000_000 {
			t.Fatalf("unexpected session %+v", got)
		}
		if !strings.Contains(db.lastSQL, `FROM "SlackBotSessionTable"`) || db.lastArgs[0] != "U1" {
			t.Fatalf("unexpected query %q %v", db.lastSQL, db.lastArgs)
		}
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		repo := newPgSessionRepository(&mockPgQuerier{row: mockPgRow{err: pgx.ErrNoRows}}, "sessions")
		if _, err := repo.Get(context.Background(), "U1"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		repo := newPgSessionRepository(&mockPgQuerier{row: mockPgRow{err: dbErr}}, "sessions")
		_, err := repo.Get(context.Background(), "U1")
		if !errors.Is(err, dbErr) || errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected raw db error, got %v", err)
		}
	})
}

func TestPgSessionRepository_PutUpserts(t *testing.T) {
	db := &mockPgQuerier{}
	repo := newPgSessionRepository(db, "SlackBotSessionTable")

	err := repo.Put(context.Background(), domain.ConversationSession{UserID: "U1", SessionID: "sess-2", CreatedAt: 1_700_000_100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, fragment := range []string{
		`INSERT INTO "SlackBotSessionTable"`,
		"ON CONFLICT (user_id) DO UPDATE",
		"session_id = EXCLUDED.session_id",
		"created_at = EXCLUDED.created_at",
	} {
		if !strings.Contains(db.lastSQL, fragment) {
			t.Fatalf("expected %q in upsert, got %q", fragment, db.lastSQL)
		}
	}
	if len(db.lastArgs) != 3 || db.lastArgs[0] != "U1" || db.lastArgs[1] != "sess-2" || db.lastArgs[2] != int64(1_700_000_100) {
		t.Fatalf("unexpected args %v", db.lastArgs)
	}

	db.execErr = errors.New("disk full")
	if err := repo.Put(context.Background(), domain.ConversationSession{UserID: "U1"}); !errors.Is(err, db.execErr) {
		t.Fatalf("expected exec error, got %v", err)
	}
}

func TestPgSessionRepository_EnsureSchemaQuotesTable(t *testing.T) {
	db := &mockPgQuerier{}
	repo := newPgSessionRepository(db, `bad"name; DROP TABLE x`)

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.lastSQL, `CREATE TABLE IF NOT EXISTS "bad""name; DROP TABLE x"`) {
		t.Fatalf("expected sanitized identifier, got %q", db.lastSQL)
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kb-relay/internal/domain"
)

// ErrSessionNotFound indica que no existe registro para el usuario.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persiste como máximo una sesión por usuario.
type SessionRepository interface {
	Get(ctx context.Context, userID string) (domain.ConversationSession, error)
	Put(ctx context.Context, session domain.ConversationSession) error
}

// pgQuerier es la parte de pgxpool.Pool que usa el repositorio.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgSessionRepository struct {
	db    pgQuerier
	table string
}

func NewPgSessionRepository(pool *pgxpool.Pool, table string) *PgSessionRepository {
	return newPgSessionRepository(pool, table)
}

func newPgSessionRepository(db pgQuerier, table string) *PgSessionRepository {
	return &PgSessionRepository{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

// EnsureSchema crea la tabla de sesiones si todavía no existe.
func (r *PgSessionRepository) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			user_id    TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)
	`, r.table)
	_, err := r.db.Exec(ctx, query)
	return err
}

func (r *PgSessionRepository) Get(ctx context.Context, userID string) (domain.ConversationSession, error) {
	query := fmt.Sprintf(`
		SELECT user_id, session_id, created_at
		FROM %s
		WHERE user_id = $1
	`, r.table)
	var session domain.ConversationSession
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&session.UserID,
		&session.SessionID,
		&session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ConversationSession{}, ErrSessionNotFound
	}
	return session, err
}

func (r *PgSessionRepository) Put(ctx context.Context, session domain.ConversationSession) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, session_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET session_id = EXCLUDED.session_id, created_at = EXCLUDED.created_at
	`, r.table)
	_, err := r.db.Exec(ctx, query,
		session.UserID,
		session.SessionID,
		session.CreatedAt,
	)
	return err
}

// physicalTTL es cuánto tiempo se conserva un registro en backends con expiración nativa.
func physicalTTL(logical time.Duration) time.Duration {
	return 2 * logical
}

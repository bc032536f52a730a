package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"kb-relay/internal/domain"
	"kb-relay/internal/repository"
)

// DefaultSessionTTL es la vigencia lógica de una sesión de conversación.
const DefaultSessionTTL = 24 * time.Hour

// SessionService lee y escribe el session id vigente de cada usuario.
// Los errores de almacenamiento nunca bloquean la respuesta al usuario.
type SessionService struct {
	repo   repository.SessionRepository
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(repo repository.SessionRepository, logger *zap.Logger, ttl time.Duration) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		repo:   repo,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get devuelve el session id vigente, o ok=false si no existe, expiró o falló el almacenamiento.
func (s *SessionService) Get(ctx context.Context, userID string) (string, bool) {
	userID = strings.TrimSpace(userID)
	if s == nil || s.repo == nil || userID == "" {
		return "", false
	}

	session, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Error("error retrieving session id", zap.String("user_id", userID), zap.Error(err))
		}
		return "", false
	}
	if session.SessionID == "" || !session.IsLive(s.now(), s.ttl) {
		s.logger.Debug("session expired", zap.String("user_id", userID), zap.Int64("timestamp", session.CreatedAt))
		return "", false
	}

	s.logger.Info("retrieved session id", zap.String("user_id", userID), zap.String("session_id", session.SessionID))
	return session.SessionID, true
}

// Set sobrescribe la sesión del usuario con el timestamp actual.
func (s *SessionService) Set(ctx context.Context, userID, sessionID string) error {
	if s == nil || s.repo == nil {
		return ErrRelayNotConfigured
	}
	session := domain.ConversationSession{
		UserID:    strings.TrimSpace(userID),
		SessionID: sessionID,
		CreatedAt: s.now().Unix(),
	}
	if err := s.repo.Put(ctx, session); err != nil {
		s.logger.Error("error storing session id", zap.String("user_id", session.UserID), zap.Error(err))
		return err
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"kb-relay/internal/chat"
	"kb-relay/internal/domain"
	"kb-relay/internal/knowledge"
	"kb-relay/internal/metrics"
)

var (
	ErrRelayNotConfigured = errors.New("relay service not configured")
	ErrRateLimited        = errors.New("user rate limited")
)

const defaultRateLimitedMessage = "You're sending messages faster than I can answer them. Please wait a minute and try again."

// RelayService responde un mensaje directo: sesión, consulta, persistencia y respuesta.
type RelayService struct {
	logger             *zap.Logger
	sessions           *SessionService
	knowledge          knowledge.Client
	sender             chat.Sender
	limiter            UserRateLimiter
	metrics            *metrics.Metrics
	fallbackMessage    string
	rateLimitedMessage string
	now                func() time.Time
}

type RelayOption func(*RelayService)

func WithRateLimiter(l UserRateLimiter) RelayOption {
	return func(s *RelayService) { s.limiter = l }
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(s *RelayService) { s.metrics = m }
}

// WithFallbackMessage define el texto enviado cuando falla la base de conocimiento; vacío desactiva el aviso.
func WithFallbackMessage(msg string) RelayOption {
	return func(s *RelayService) { s.fallbackMessage = msg }
}

func NewRelayService(
	logger *zap.Logger,
	sessions *SessionService,
	knowledgeClient knowledge.Client,
	sender chat.Sender,
	opts ...RelayOption,
) *RelayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RelayService{
		logger:             logger,
		sessions:           sessions,
		knowledge:          knowledgeClient,
		sender:             sender,
		rateLimitedMessage: defaultRateLimitedMessage,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage procesa un mensaje elegible. Solo devuelve error si no hubo respuesta útil;
// los fallos de sesión y de envío se registran y se absorben aquí.
func (s *RelayService) HandleMessage(ctx context.Context, ev domain.SlackMessageEvent) error {
	if s == nil || s.knowledge == nil || s.sender == nil {
		return ErrRelayNotConfigured
	}
	logger := s.logger.With(zap.String("user_id", ev.User), zap.String("channel_id", ev.Channel))

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		logger.Debug("empty message ignored")
		return nil
	}

	if s.limiter != nil && !s.limiter.Allow(RateLimitKey(ev.Team, ev.User)) {
		s.metrics.ObserveRateLimited()
		logger.Warn("user rate limited")
		s.reply(ctx, logger, ev.Channel, s.rateLimitedMessage)
		return ErrRateLimited
	}

	sessionID, continued := s.sessions.Get(ctx, ev.User)

	start := s.now()
	answer, err := s.knowledge.Query(ctx, text, sessionID)
	s.metrics.ObserveQuery(err, continued, s.now().Sub(start))
	if err != nil {
		logger.Error("knowledge query failed", zap.Bool("continued", continued), zap.Error(err))
		if s.fallbackMessage != "" {
			s.reply(ctx, logger, ev.Channel, s.fallbackMessage)
		}
		return err
	}

	if answer.SessionID != "" && answer.SessionID != sessionID {
		werr := s.sessions.Set(ctx, ev.User, answer.SessionID)
		s.metrics.ObserveSessionWrite(werr)
	}

	s.reply(ctx, logger, ev.Channel, answer.Text)
	return nil
}

func (s *RelayService) reply(ctx context.Context, logger *zap.Logger, channelID, text string) {
	err := s.sender.PostMessage(ctx, channelID, text)
	s.metrics.ObserveReply(err)
	if err != nil {
		logger.Error("error posting message", zap.Error(err))
	}
}

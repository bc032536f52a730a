package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kb-relay/internal/domain"
	"kb-relay/internal/metrics"
	"kb-relay/internal/service"
)

// MessageRelay procesa un mensaje directo elegible.
type MessageRelay interface {
	HandleMessage(ctx context.Context, ev domain.SlackMessageEvent) error
}

// EventsHandler recibe los webhooks de Slack y aplica dedup y elegibilidad.
type EventsHandler struct {
	logger       *zap.Logger
	dedup        service.EventDeduplicator
	relay        MessageRelay
	metrics      *metrics.Metrics
	botUserID    string
	async        bool
	asyncTimeout time.Duration
}

// NewEventsHandler crea el handler. Con async=true se responde a Slack antes de consultar la base.
func NewEventsHandler(
	logger *zap.Logger,
	dedup service.EventDeduplicator,
	relay MessageRelay,
	m *metrics.Metrics,
	botUserID string,
	async bool,
	asyncTimeout time.Duration,
) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if asyncTimeout <= 0 {
		asyncTimeout = time.Minute
	}
	return &EventsHandler{
		logger:       logger,
		dedup:        dedup,
		relay:        relay,
		metrics:      m,
		botUserID:    botUserID,
		async:        async,
		asyncTimeout: asyncTimeout,
	}
}

// HandleEvents maneja POST /slack/events.
func (h *EventsHandler) HandleEvents(c *gin.Context) {
	body, err := rawBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var envelope domain.SlackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Warn("invalid slack payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	logger := h.logger.With(zap.String("event_id", envelope.EventID))
	logger.Debug("received slack payload", zap.String("type", envelope.Type), zap.String("retry_num", c.GetHeader("X-Slack-Retry-Num")))

	if envelope.Type == domain.EnvelopeURLVerification {
		h.metrics.ObserveEvent(metrics.OutcomeVerified)
		c.JSON(http.StatusOK, gin.H{"challenge": envelope.Challenge})
		return
	}

	if envelope.EventID != "" && h.dedup != nil {
		first, err := h.dedup.MarkSeen(c.Request.Context(), envelope.EventID)
		if err != nil {
			logger.Warn("dedup check failed, processing anyway", zap.Error(err))
			first = true
		}
		if !first {
			logger.Debug("duplicate event detected")
			h.metrics.ObserveEvent(metrics.OutcomeDuplicate)
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
	}

	ev, err := envelope.MessageEvent()
	if err != nil || !ev.IsEligibleDM(h.botUserID) {
		if err != nil && !errors.Is(err, domain.ErrNoInnerEvent) {
			logger.Debug("unsupported inner event", zap.Error(err))
		}
		h.metrics.ObserveEvent(metrics.OutcomeIgnored)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "page": "events"})
		return
	}

	if ev.Team == "" {
		ev.Team = envelope.TeamID
	}
	h.metrics.ObserveEvent(metrics.OutcomeProcessing)
	if h.async {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.asyncTimeout)
		go func(ev domain.SlackMessageEvent) {
			defer cancel()
			h.process(ctx, logger, ev)
		}(*ev)
	} else {
		h.process(c.Request.Context(), logger, *ev)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "page": "events"})
}

func (h *EventsHandler) process(ctx context.Context, logger *zap.Logger, ev domain.SlackMessageEvent) {
	if h.relay == nil {
		logger.Error("relay not configured")
		return
	}
	err := h.relay.HandleMessage(ctx, ev)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrRateLimited):
		logger.Info("message dropped by rate limiter", zap.String("user_id", ev.User))
	default:
		logger.Error("message processing failed", zap.String("user_id", ev.User), zap.Error(err))
	}
}

// HandleInteract maneja POST /slack/interact; por ahora solo confirma la recepción.
func (h *EventsHandler) HandleInteract(c *gin.Context) {
	body, _ := rawBody(c)
	h.logger.Debug("received interaction", zap.Int("bytes", len(body)))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "page": "interact"})
}

// Health maneja GET /.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

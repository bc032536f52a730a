package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kb-relay/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	eventsH *EventsHandler,
	m *metrics.Metrics,
	signingSecret string,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: request id, logging y recovery.
	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/", jsonContentTypeMiddleware(), Health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// Slack firma cada request; /events y /interact quedan como alias sin prefijo.
	slackRoutes := []struct{ events, interact string }{
		{events: "/slack/events", interact: "/slack/interact"},
		{events: "/events", interact: "/interact"},
	}
	for _, routes := range slackRoutes {
		r.POST(routes.events, SlackSignatureMiddleware(signingSecret, logger), jsonContentTypeMiddleware(), eventsH.HandleEvents)
		r.POST(routes.interact, SlackSignatureMiddleware(signingSecret, logger), jsonContentTypeMiddleware(), eventsH.HandleInteract)
	}

	return r
}

// requestIDMiddleware propaga X-Request-ID o genera uno nuevo.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// RequestIDFromContext devuelve el request id asignado por el middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", RequestIDFromContext(c.Request.Context())),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

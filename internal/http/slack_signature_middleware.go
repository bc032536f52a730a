package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

const rawBodyKey = "raw_body"

// SlackSignatureMiddleware valida X-Slack-Signature con el signing secret y deja el body
// disponible para el handler. Con secret vacío no verifica nada.
func SlackSignatureMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(rawBodyKey, body)

		if secret == "" {
			c.Next()
			return
		}

		verifier, err := slack.NewSecretsVerifier(c.Request.Header, secret)
		if err != nil {
			logger.Warn("missing slack signature headers", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			c.Abort()
			return
		}
		if _, err := verifier.Write(body); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			c.Abort()
			return
		}
		if err := verifier.Ensure(); err != nil {
			logger.Warn("slack signature mismatch", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// rawBody obtiene el body leído por el middleware, o lo lee si no pasó por él.
func rawBody(c *gin.Context) ([]byte, error) {
	if v, ok := c.Get(rawBodyKey); ok {
		if body, ok := v.([]byte); ok {
			return body, nil
		}
	}
	return c.GetRawData()
}

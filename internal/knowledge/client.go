package knowledge

import (
	"context"
	"errors"
)

// ErrKnowledgeService envuelve cualquier fallo de la llamada retrieve-and-generate.
var ErrKnowledgeService = errors.New("knowledge service error")

// Answer es la respuesta ya anotada con citas junto al session id devuelto por el servicio.
type Answer struct {
	Text      string
	SessionID string
}

// Client consulta la base de conocimiento. Un sessionID vacío inicia una conversación nueva.
type Client interface {
	Query(ctx context.Context, message, sessionID string) (Answer, error)
}

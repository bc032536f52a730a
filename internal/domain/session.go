package domain

import "time"

// ConversationSession asocia un usuario con el token de conversación emitido por la base de conocimiento.
type ConversationSession struct {
	UserID    string `json:"user_id" dynamodbav:"userId"`
	SessionID string `json:"session_id" dynamodbav:"sessionId"`
	// CreatedAt son segundos desde epoch del último write.
	CreatedAt int64 `json:"timestamp" dynamodbav:"timestamp"`
	// ExpiresAt solo lo usa el TTL nativo de DynamoDB; la vigencia se decide al leer.
	ExpiresAt int64 `json:"expires_at,omitempty" dynamodbav:"expiresAt,omitempty"`
}

// IsLive reporta si la sesión sigue vigente en now para el ttl dado.
//
// Una sesión escrita en t vence exactamente en t+ttl. Un lector de la misma tabla que
// expire con "edad > ttl" la sigue viendo viva durante ese segundo; el desacuerdo dura
// un segundo y solo provoca que se abra una sesión nueva un poco antes.
func (s ConversationSession) IsLive(now time.Time, ttl time.Duration) bool {
	age := now.Unix() - s.CreatedAt
	return age < int64(ttl/time.Second)
}

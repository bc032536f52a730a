package knowledge

import "context"

// MockClient permite correr el relay sin llamar a Bedrock.
type MockClient struct {
	Answer Answer
	Err    error
}

func (m *MockClient) Query(ctx context.Context, message, sessionID string) (Answer, error) {
	return m.Answer, m.Err
}

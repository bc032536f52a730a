package chat

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// WriterSender escribe las respuestas en un io.Writer; lo usa el cliente de terminal.
type WriterSender struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

func NewWriterSender(w io.Writer, prefix string) *WriterSender {
	return &WriterSender{w: w, prefix: prefix}
}

func (s *WriterSender) PostMessage(_ context.Context, _ string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s%s\n", s.prefix, text)
	return err
}

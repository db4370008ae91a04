package channels

import (
	"context"
	"sync"

	"github.com/aatumaykin/quotebot/internal/logger"
)

// LogSink is a dry-run destination: it logs each quote instead of sending it.
type LogSink struct {
	logger *logger.Logger

	mu   sync.Mutex
	sent []string
}

// NewLogSink creates a LogSink writing to log.
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSink{logger: log}
}

// Send logs text. It fails only when ctx is already done.
func (s *LogSink) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.sent = append(s.sent, text)
	n := len(s.sent)
	s.mu.Unlock()

	s.logger.InfoCtx(ctx, "quote delivered (dry run)",
		logger.Field{Key: "text", Value: text},
		logger.Field{Key: "count", Value: n})
	return nil
}

// Sent returns the texts delivered so far, oldest first.
func (s *LogSink) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

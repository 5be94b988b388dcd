package host

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier is a Notifier that writes notifications to the log. Used when
// no browser is attached to show them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, title, message string) error {
	n.logger.Info("notification", zap.String("title", title), zap.String("message", message))
	return nil
}

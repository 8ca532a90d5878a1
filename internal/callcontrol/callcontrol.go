// Package callcontrol defines the native call-control capability.
// The decision engine invokes exactly one of these operations per
// resolved call; the host platform supplies the real implementation.
package callcontrol

import (
	"context"
	"log/slog"
)

// Controller applies a resolved action to a live incoming call.
type Controller interface {
	AllowCall(ctx context.Context, number string) error
	SilenceCall(ctx context.Context, number string) error
	TerminateCall(ctx context.Context, number string) error
}

// LogController is a Controller that only logs. It stands in for the
// native binding on the server side, where the verdict is returned to
// the device over the API and the device enforces it.
type LogController struct {
	logger *slog.Logger
}

// NewLogController creates a logging call controller.
func NewLogController(logger *slog.Logger) *LogController {
	return &LogController{logger: logger}
}

func (l *LogController) AllowCall(ctx context.Context, number string) error {
	l.logger.Debug("call allowed", "number", number)
	return nil
}

func (l *LogController) SilenceCall(ctx context.Context, number string) error {
	l.logger.Info("call silenced", "number", number)
	return nil
}

func (l *LogController) TerminateCall(ctx context.Context, number string) error {
	l.logger.Info("call terminated", "number", number)
	return nil
}

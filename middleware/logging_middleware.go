package middleware

import (
	"context"
	"errors"
	"time"

	"mini-heos/command"
	"mini-heos/message"

	"go.uber.org/zap"
)

// LoggingMiddleware logs every command with its duration. Device
// rejections are logged at info, transport faults at warn.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, p command.Payload) (*message.CommandResponse, error) {
			start := time.Now()
			resp, err := next(ctx, p)
			fields := []zap.Field{zap.String("command", p.Name()), zap.Duration("duration", time.Since(start))}

			var cerr *message.CommandError
			switch {
			case err == nil:
				logger.Debug("command done", fields...)
			case errors.As(err, &cerr):
				logger.Info("command rejected", append(fields, zap.Int("eid", cerr.Message.Code.Code()), zap.String("text", cerr.Message.Text))...)
			default:
				logger.Warn("command failed", append(fields, zap.Error(err))...)
			}
			return resp, err
		}
	}
}

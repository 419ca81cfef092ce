package sse

import (
	"context"
	"log/slog"
	"time"
)

// KeepAliveWriter writes one keep-alive comment to the client
type KeepAliveWriter interface {
	WriteKeepAlive() error
}

// KeepAlive pings w every interval until ctx is done or a write fails,
// which means the client went away. The returned channel closes when the
// pinger has exited, so the caller can wait before writing the final event.
//
// Chat turns can sit silent for a long time while an image task is polled;
// without pings, proxies drop the idle connection.
func KeepAlive(ctx context.Context, w KeepAliveWriter, interval time.Duration, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.WriteKeepAlive(); err != nil {
					logger.Debug("keep-alive stopped", "error", err)
					return
				}
			}
		}
	}()

	return done
}

package drivers

import (
	"context"
	"log/slog"

	"github.com/Comcast/rxfsm/stream"
)

// Log logs every request at the given level.  Its source never emits.
func Log(logger *slog.Logger, level slog.Level, name string) Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, requests stream.Stream) stream.Stream {
		sub := requests.Subscribe(stream.Funcs{
			OnNext: func(x interface{}) {
				logger.Log(ctx, level, "request", "driver", name, "value", x)
			},
		})
		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
		}()
		return stream.Never()
	}
}

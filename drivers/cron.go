package drivers

import (
	"fmt"
	"time"

	"github.com/Comcast/rxfsm/stream"

	"github.com/gorhill/cronexpr"
)

// Cron returns a stream that emits the time (RFC3339, UTC) at every
// instant the cron expression gives.  Each subscription has its own
// timer.
func Cron(expr string) (stream.Stream, error) {
	c, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("bad cron expression %q: %w", expr, err)
	}
	return stream.Func(func(o stream.Observer) stream.Subscription {
		stop := make(chan bool)
		go func() {
			for {
				next := c.Next(time.Now())
				if next.IsZero() {
					o.Complete()
					return
				}
				timer := time.NewTimer(time.Until(next))
				select {
				case <-stop:
					timer.Stop()
					return
				case t := <-timer.C:
					o.Next(t.UTC().Format(time.RFC3339))
				}
			}
		}()
		return stream.SubscriptionFunc(func() { close(stop) })
	}), nil
}

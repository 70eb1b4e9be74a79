package room

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
)

// errCountdownDone stops the underlying ticker after the zero tick.
var errCountdownDone = errors.New("countdown complete")

// Countdown is a cancellable repeating-tick task. At most one exists per
// room at any time; its presence is the room's sole "is counting" signal.
type Countdown struct {
	cancel context.CancelFunc
}

// StartCountdown ticks once per interval, invoking onTick with the
// decremented remaining value (seconds-1 down to 0). After the zero tick it
// calls onExpire and stops. Ticks are strictly ordered: quartz runs the
// callback to completion before scheduling the next tick, so a subscriber
// never observes gaps or reordering.
func StartCountdown(clock quartz.Clock, seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	ctx, cancel := context.WithCancel(context.Background())
	cd := &Countdown{cancel: cancel}

	remaining := seconds
	clock.TickerFunc(ctx, interval, func() error {
		remaining--
		onTick(remaining)
		if remaining <= 0 {
			onExpire()
			return errCountdownDone
		}
		return nil
	}, "countdown")

	return cd
}

// Stop cancels the countdown. It is idempotent and safe to call after the
// countdown has already expired naturally.
func (cd *Countdown) Stop() {
	cd.cancel()
}

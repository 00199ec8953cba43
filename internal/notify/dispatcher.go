package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"presence_monitor/internal/logger"
)

// DefaultSendTimeout bounds a single channel attempt so one hung transport
// cannot stall the whole dispatch.
const DefaultSendTimeout = 5 * time.Second

// Dispatcher fans one message out to N channels in parallel. Each channel is
// attempted exactly once per Send call; a channel that fails, blocks, panics
// or times out yields delivered:false for that channel only.
type Dispatcher struct {
	timeout time.Duration
	log     *logger.Logger
}

// NewDispatcher returns a dispatcher with the given per-channel timeout.
func NewDispatcher(timeout time.Duration, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{timeout: timeout, log: log}
}

// Send delivers message on every channel concurrently and joins the results.
// It returns once every channel has reported or timed out; a channel adapter
// that ignores its context keeps running on its own goroutine but no longer
// delays the result map.
func (d *Dispatcher) Send(ctx context.Context, message string, channels []Channel) map[ChannelID]ChannelResult {
	results := make(map[ChannelID]ChannelResult, len(channels))
	if len(channels) == 0 {
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, ch := range channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			res := d.attempt(ctx, ch, message)
			mu.Lock()
			results[res.Channel] = res
			mu.Unlock()
		}(ch)
	}
	wg.Wait()
	return results
}

// attempt runs one bounded delivery on one channel.
func (d *Dispatcher) attempt(ctx context.Context, ch Channel, message string) ChannelResult {
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("%w: %v", ErrSendPanic, r)
			}
		}()
		errc <- ch.Send(cctx, message)
	}()

	var err error
	select {
	case err = <-errc:
	case <-cctx.Done():
		err = ErrSendTimeout
	}

	if err != nil {
		if d.log != nil {
			d.log.Warnw("channel_delivery_failed", "channel", ch.ID(), "err", err)
		}
		return ChannelResult{Channel: ch.ID(), Delivered: false, Err: err}
	}
	return ChannelResult{Channel: ch.ID(), Delivered: true}
}

package notify

import (
	"context"
	"errors"
)

// ChannelID names one configured notification transport.
type ChannelID string

// Channel is a single notification transport (SMS gateway, chat push, speech
// synthesis, local audio...). The dispatcher treats all channels uniformly:
// one Send attempt per dispatch, success or a per-channel error, nothing else.
// Implementations should honor ctx; a channel that ignores it is still cut
// off by the dispatcher's timeout.
type Channel interface {
	ID() ChannelID
	Send(ctx context.Context, message string) error
}

// ChannelResult records the outcome of one delivery attempt on one channel.
// Results are consumed immediately by the caller and never persisted.
type ChannelResult struct {
	Channel   ChannelID `json:"channel"`
	Delivered bool      `json:"delivered"`
	Err       error     `json:"-"`
}

// Per-channel delivery errors. They are isolated to the failing channel's
// result and never propagated as a dispatch failure.
var (
	ErrSendTimeout = errors.New("notify: send timed out")
	ErrSendPanic   = errors.New("notify: channel panicked")
)

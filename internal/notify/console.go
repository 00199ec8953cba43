package notify

import (
	"context"

	"presence_monitor/internal/logger"
)

// ConsoleChannel writes the message to the process log. Always available;
// useful as the last-resort transport and in development.
type ConsoleChannel struct {
	id  ChannelID
	log *logger.Logger
}

func NewConsoleChannel(log *logger.Logger) *ConsoleChannel {
	return &ConsoleChannel{id: "console", log: log}
}

func (c *ConsoleChannel) ID() ChannelID { return c.id }

func (c *ConsoleChannel) Send(_ context.Context, message string) error {
	c.log.Infow("notification", "channel", c.id, "message", message)
	return nil
}

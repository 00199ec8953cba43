package notify

import (
	"context"
	"fmt"
	"os/exec"
)

// CommandChannel hands the message to a local program as its last argument.
// Covers speech synthesis ("say", "espeak") and audio playback wrappers.
type CommandChannel struct {
	id   ChannelID
	name string
	args []string
}

func NewCommandChannel(id ChannelID, name string, args ...string) *CommandChannel {
	return &CommandChannel{id: id, name: name, args: args}
}

func (c *CommandChannel) ID() ChannelID { return c.id }

func (c *CommandChannel) Send(ctx context.Context, message string) error {
	args := append(append([]string(nil), c.args...), message)
	cmd := exec.CommandContext(ctx, c.name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("command %s: %w (output: %s)", c.id, err, out)
	}
	return nil
}

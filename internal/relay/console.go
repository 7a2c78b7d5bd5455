package relay

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Console is a Relay that prints to a writer. Used by simulate mode.
type Console struct {
	out   io.Writer
	Ended bool
}

// NewConsole creates a console relay.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Speak prints the bot line.
func (c *Console) Speak(text string, interruptible bool) error {
	fmt.Fprintf(c.out, "%s %s\n", color.CyanString("bot>"), text)
	return nil
}

// SendDTMF prints the digits.
func (c *Console) SendDTMF(digits string) error {
	fmt.Fprintf(c.out, "%s [dtmf %s]\n", color.CyanString("bot>"), digits)
	return nil
}

// EndCall prints the hangup and marks the relay ended.
func (c *Console) EndCall(payload map[string]any) error {
	c.Ended = true
	if len(payload) > 0 {
		fmt.Fprintf(c.out, "%s [call ended: %v]\n", color.YellowString("sys>"), payload)
	} else {
		fmt.Fprintf(c.out, "%s [call ended]\n", color.YellowString("sys>"))
	}
	return nil
}

// SendSMS prints the message instead of sending it.
func (c *Console) SendSMS(_ context.Context, to, body string) error {
	fmt.Fprintf(c.out, "%s [sms to %s] %s\n", color.YellowString("sys>"), to, body)
	return nil
}

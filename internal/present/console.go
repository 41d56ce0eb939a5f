// Package present provides a reference console presenter. Real deployments
// replace this with their own rendering surface; the core only requires
// the notify.Presenter contract.
package present

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"calwatch/internal/model"
)

// Console renders alerts as colored banners on a terminal.
type Console struct {
	out io.Writer
}

// NewConsole constructs a Console writing to the color-aware stdout.
func NewConsole() *Console {
	return &Console{out: color.Output}
}

// NewConsoleWriter constructs a Console writing to w. Used in tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// ShowAlert renders one alert banner. Fire-and-forget: dismissal flows
// back through the engine, not through this call.
func (c *Console) ShowAlert(event model.CalendarEvent, kind model.NotificationKind) {
	var header string
	switch kind {
	case model.KindWarning:
		minutes := int(time.Until(event.Start).Minutes())
		header = color.YellowString("UPCOMING EVENT: starts in %d minutes", minutes)
	case model.KindStart:
		header = color.RedString("EVENT STARTING NOW")
	default:
		header = "Event notification"
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, header)
	fmt.Fprintln(c.out, color.New(color.Bold).Sprint(event.Title))
	fmt.Fprintln(c.out, event.DisplayTime)
	if event.Location != "" {
		fmt.Fprintln(c.out, event.Location)
	}
	fmt.Fprintln(c.out, color.New(color.Faint).Sprint("press enter to dismiss"))
}

// HideAlert clears the current rendering.
func (c *Console) HideAlert() {
	fmt.Fprintln(c.out, color.New(color.Faint).Sprint("(alert dismissed)"))
}

package output

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme holds the color functions of the table formatter.
type ColorScheme struct {
	Target   func(format string, a ...interface{}) string
	Success  func(format string, a ...interface{}) string
	Error    func(format string, a ...interface{}) string
	Header   func(format string, a ...interface{}) string
	Disabled bool
}

// NewColorScheme returns a colored scheme when w is a terminal and noColor is
// false, and a plain one otherwise.
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	if noColor || !isTTY(w) {
		plain := color.New()
		plain.DisableColor()
		return &ColorScheme{
			Target:   plain.Sprintf,
			Success:  plain.Sprintf,
			Error:    plain.Sprintf,
			Header:   plain.Sprintf,
			Disabled: true,
		}
	}

	return &ColorScheme{
		Target:  newColor(color.FgCyan).Sprintf,
		Success: newColor(color.FgGreen).Sprintf,
		Error:   newColor(color.FgRed, color.Bold).Sprintf,
		Header:  newColor(color.Bold).Sprintf,
	}
}

func newColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// StatusColor picks Error or Success.
func (cs *ColorScheme) StatusColor(failed bool) func(format string, a ...interface{}) string {
	if failed {
		return cs.Error
	}
	return cs.Success
}

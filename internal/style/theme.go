// Package style defines the look of nitro's terminal output.
//
// Call Init(colorEnabled) once at startup. After that, use the exported
// styles and helper functions freely.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ─── Colour palette ──────────────────────────────────────────────────────────

var (
	Teal   = lipgloss.Color("#14B8A6")
	Cyan   = lipgloss.Color("#00B4D8")
	Indigo = lipgloss.Color("#6366F1")

	Green  = lipgloss.Color("#22C55E")
	Yellow = lipgloss.Color("#FACC15")
	Red    = lipgloss.Color("#EF4444")

	White  = lipgloss.Color("#FAFAFA")
	Dim    = lipgloss.Color("#6B7280")
	Subtle = lipgloss.Color("#374151")
)

// ─── Text styles ─────────────────────────────────────────────────────────────

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal).
		PaddingBottom(1)

	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	Success = lipgloss.NewStyle().
		Foreground(Green).
		Bold(true)

	Warning = lipgloss.NewStyle().
		Foreground(Yellow)

	Error = lipgloss.NewStyle().
		Foreground(Red).
		Bold(true)

	DimText = lipgloss.NewStyle().
		Foreground(Dim)

	// Code is used for identifiers such as storage and repository names.
	Code = lipgloss.NewStyle().
		Foreground(Indigo)

	Bold = lipgloss.NewStyle().Bold(true)

	SpinnerColor = Cyan
)

// Banner is printed when the server starts in a terminal.
func Banner() string {
	banner := `
 _ __  (_) | |_  _ __  ___
| '_ \ | | | __|| '__|/ _ \
| | | || | | |_ | |  | (_) |
|_| |_||_|  \__||_|   \___/`

	return lipgloss.NewStyle().Foreground(Teal).Bold(true).Render(banner)
}

// Enabled tracks whether styles should render ANSI output.
// When false, all styles degrade to plain text.
var Enabled = true

// Init configures the style package. Call once at startup.
func Init(colorEnabled bool) {
	Enabled = colorEnabled
	if colorEnabled {
		lipgloss.SetColorProfile(termenv.ColorProfile())
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// SuccessIcon returns a themed check mark.
func SuccessIcon() string {
	if Enabled {
		return Success.Render("✓")
	}
	return "OK"
}

// ErrorIcon returns a themed X mark.
func ErrorIcon() string {
	if Enabled {
		return Error.Render("✗")
	}
	return "ERROR"
}

// WarningIcon returns a themed warning indicator.
func WarningIcon() string {
	if Enabled {
		return Warning.Render("!")
	}
	return "WARN"
}

// Hint renders a "next step" hint message.
func Hint(msg string) string {
	return DimText.Render("→ " + msg)
}

// Status renders the health of a storage: "ok" or the failure.
func Status(err error) string {
	if err == nil {
		return SuccessIcon() + " ok"
	}
	return ErrorIcon() + " " + err.Error()
}

// Done renders a success line such as "✓ Created storage main".
func Done(msg string) string {
	if Enabled {
		return Success.Render("✓ " + msg)
	}
	return msg
}

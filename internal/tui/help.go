// Package tui holds the interactive pieces of the nitro CLI: prompts,
// spinners and the styled help template.
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/nitro-repo/nitro-repo/internal/style"
)

// StyledHelpTemplate returns a Cobra usage template with coloured headings.
// Dynamic content is left unstyled since Cobra's template engine cannot call
// lipgloss. Returns "" when colour is disabled so Cobra keeps its default.
func StyledHelpTemplate() string {
	if !style.Enabled {
		return ""
	}

	heading := lipgloss.NewStyle().Bold(true).Foreground(style.Teal).Render
	dim := lipgloss.NewStyle().Foreground(style.Dim).Render

	return heading("Usage") + `:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}
{{if gt (len .Aliases) 0}}
` + heading("Aliases") + `:
  {{.NameAndAliases}}
{{end}}{{if .HasExample}}
` + heading("Examples") + `:
{{.Example}}
{{end}}{{if .HasAvailableSubCommands}}
` + heading("Available Commands") + `:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }}  {{.Short}}{{end}}{{end}}
{{end}}{{if .HasAvailableLocalFlags}}
` + heading("Flags") + `:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableInheritedFlags}}
` + heading("Global Flags") + `:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableSubCommands}}
` + dim(`Use "{{.CommandPath}} [command] --help" for more information about a command.`) + `
{{end}}`
}

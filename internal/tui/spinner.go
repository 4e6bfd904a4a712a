package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nitro-repo/nitro-repo/internal/style"
)

type spinnerDoneMsg[T any] struct {
	result T
	err    error
}

// spinnerModel shows a spinner while fn runs in the background.
type spinnerModel[T any] struct {
	spinner  spinner.Model
	title    string
	fn       func() (T, error)
	done     bool
	quitting bool
	result   T
	err      error
}

func newSpinnerModel[T any](title string, fn func() (T, error)) spinnerModel[T] {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.SpinnerColor)
	return spinnerModel[T]{spinner: s, title: title, fn: fn}
}

func (m spinnerModel[T]) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			result, err := m.fn()
			return spinnerDoneMsg[T]{result: result, err: err}
		},
	)
}

func (m spinnerModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case spinnerDoneMsg[T]:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel[T]) View() string {
	if m.quitting {
		return ""
	}
	if m.done {
		if m.err != nil {
			return style.Error.Render(fmt.Sprintf("✗ %s: %v", m.title, m.err)) + "\n"
		}
		return style.Success.Render("✓ "+m.title) + "\n"
	}
	return m.spinner.View() + " " + m.title + "...\n"
}

// RunWithSpinner runs fn while showing a spinner. When interactive is false
// fn simply runs in the foreground.
func RunWithSpinner[T any](interactive bool, title string, fn func() (T, error)) (T, error) {
	if !interactive {
		return fn()
	}
	final, err := tea.NewProgram(newSpinnerModel(title, fn)).Run()
	if err != nil {
		var zero T
		return zero, err
	}
	m := final.(spinnerModel[T])
	if m.quitting {
		var zero T
		return zero, ErrCancelled
	}
	return m.result, m.err
}

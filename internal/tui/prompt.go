package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/nitro-repo/nitro-repo/internal/style"
)

// ErrCancelled is returned when the user declines a prompt.
var ErrCancelled = errors.New("cancelled")

// ConfirmDeletion shows a confirmation prompt for destructive operations.
// Returns true only if the user explicitly confirms.
func ConfirmDeletion(resourceType, resourceName, consequence string) (bool, error) {
	var confirmed bool

	fmt.Println(style.Warning.Render(fmt.Sprintf(
		"⚠  You are about to delete %s %s",
		resourceType,
		style.Bold.Render(resourceName),
	)))
	fmt.Println()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s %q?", resourceType, resourceName)).
				Description(consequence).
				Affirmative("Yes, delete").
				Negative("No, cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

// PromptPassword asks for a new password twice and returns it once both
// entries agree.
func PromptPassword(username string) (string, error) {
	var password, repeat string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s", username)).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password cannot be empty")
					}
					return nil
				}).
				Value(&password),
			huh.NewInput().
				Title("Repeat password").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s != password {
						return errors.New("passwords do not match")
					}
					return nil
				}).
				Value(&repeat),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	return password, nil
}

// PromptSelect shows a selection prompt and returns the chosen value.
func PromptSelect(title, description string, options []string) (string, error) {
	var value string

	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Description(description).
				Options(opts...).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	return value, nil
}

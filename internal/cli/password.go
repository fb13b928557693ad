package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"vaultcore/internal/secret"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordEmpty    = errors.New("password cannot be empty")
)

// isTerminal returns true if stdin is a terminal (not piped/redirected).
func isTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// readPasswordSecure reads a password from stdin without echo, returning it
// as a zeroizable Password rather than a string so the caller never has to
// hold the raw bytes in an immutable Go string longer than necessary.
func readPasswordSecure(prompt string) (*secret.Password, error) {
	fmt.Fprint(os.Stderr, prompt)

	if !isTerminal() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		pw := secret.NewPasswordFromString(line)
		return pw, nil
	}

	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	pw := secret.NewPassword(raw)
	secret.Zero(raw)
	return pw, nil
}

// ReadPasswordInteractive prompts for a password, confirming it with a
// second prompt when confirm is true (used by init, never by unlock/panic).
func ReadPasswordInteractive(label string, confirm bool) (*secret.Password, error) {
	pw, err := readPasswordSecure(label + ": ")
	if err != nil {
		return nil, err
	}
	if pw.Len() == 0 {
		pw.Close()
		return nil, ErrPasswordEmpty
	}

	if confirm {
		again, err := readPasswordSecure("Confirm " + label + ": ")
		if err != nil {
			pw.Close()
			return nil, err
		}
		defer again.Close()
		if !pw.Equal(again) {
			pw.Close()
			return nil, ErrPasswordMismatch
		}
	}

	return pw, nil
}

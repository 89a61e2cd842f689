package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadValue reads a value from stdin. On a terminal it prompts and reads
// without echo; otherwise it reads all of stdin and strips one trailing
// newline.
func ReadValue(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return "", fmt.Errorf("failed to read value: %w", err)
		}
		return strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // New line after the hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return string(value), nil
}

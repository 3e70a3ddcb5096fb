package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is swapped out in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

var stdin = bufio.NewReader(os.Stdin)

// secret returns flagValue when set. Otherwise it prompts on stderr and reads
// a password without echo, or a plain line when stdin is not a terminal.
func secret(flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(stdin)
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := readPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// readLine reads one line from r. A final line without a newline is accepted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// optional returns a pointer to value when the flag was given, nil otherwise.
func optional[T any](changed bool, value T) *T {
	if !changed {
		return nil
	}
	return &value
}

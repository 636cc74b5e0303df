package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter supplies the human-provided login inputs.
type Prompter interface {
	// Code returns the login code sent to phone.
	Code(ctx context.Context, phone string) (string, error)
	// Password returns the two-factor password. hint may be empty.
	Password(ctx context.Context, hint string) (string, error)
}

// ErrNoInput is returned when a prompter has no value to give.
var ErrNoInput = errors.New("session: no login input available")

// TerminalPrompter asks on a console. The password is read without echo when
// the input is a terminal.
type TerminalPrompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

// NewTerminalPrompter prompts on out and reads answers from in.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, reader: bufio.NewReader(in), out: out}
}

// Code prints a prompt and reads one line.
func (p *TerminalPrompter) Code(ctx context.Context, phone string) (string, error) {
	fmt.Fprintf(p.out, "\nEnter the login code sent to %s: ", phone)
	return p.readLine(ctx)
}

// Password prints a prompt and reads the password.
func (p *TerminalPrompter) Password(ctx context.Context, hint string) (string, error) {
	if hint != "" {
		fmt.Fprintf(p.out, "\nEnter your two-factor password (hint: %s): ", hint)
	} else {
		fmt.Fprint(p.out, "\nEnter your two-factor password: ")
	}

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		type result struct {
			pw  []byte
			err error
		}
		done := make(chan result, 1)
		go func() {
			pw, err := term.ReadPassword(int(f.Fd()))
			done <- result{pw, err}
		}()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r := <-done:
			fmt.Fprintln(p.out)
			if r.err != nil {
				return "", fmt.Errorf("failed to read password: %w", r.err)
			}
			return strings.TrimSpace(string(r.pw)), nil
		}
	}

	return p.readLine(ctx)
}

func (p *TerminalPrompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := p.reader.ReadString('\n')
		done <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		line := strings.TrimSpace(r.line)
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", r.err)
		}
		if line == "" {
			return "", ErrNoInput
		}
		return line, nil
	}
}

// StaticPrompter answers with fixed values, for non-interactive runs and tests.
type StaticPrompter struct {
	LoginCode     string
	LoginPassword string
}

// Code returns the configured login code.
func (p StaticPrompter) Code(context.Context, string) (string, error) {
	if p.LoginCode == "" {
		return "", ErrNoInput
	}
	return p.LoginCode, nil
}

// Password returns the configured password.
func (p StaticPrompter) Password(context.Context, string) (string, error) {
	if p.LoginPassword == "" {
		return "", ErrNoInput
	}
	return p.LoginPassword, nil
}

package gateways

import (
	"os"

	"golang.org/x/term"
)

// StdinTerminal reports whether standard input is an interactive terminal
type StdinTerminal struct{}

// NewStdinTerminal creates the terminal probe
func NewStdinTerminal() *StdinTerminal {
	return &StdinTerminal{}
}

// StdinIsTerminal reports whether a human can answer prompts on stdin
func (StdinTerminal) StdinIsTerminal() bool {
	//nolint:gosec // G115: file descriptors fit in int
	return term.IsTerminal(int(os.Stdin.Fd()))
}

package gateways

import (
	"context"
	"strings"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// recordingRunner records commands and answers from a table keyed by command line
type recordingRunner struct {
	commands []gateways.Command
	results  map[string]*gateways.CommandResult
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{results: make(map[string]*gateways.CommandResult)}
}

func (r *recordingRunner) on(line string, result *gateways.CommandResult) {
	r.results[line] = result
}

func (r *recordingRunner) Run(_ context.Context, c gateways.Command) *gateways.CommandResult {
	r.commands = append(r.commands, c)
	if result, ok := r.results[commandString(c)]; ok {
		return result
	}
	return &gateways.CommandResult{Success: true, Started: true}
}

func (r *recordingRunner) lines() []string {
	out := make([]string, len(r.commands))
	for i, c := range r.commands {
		out[i] = commandString(c)
	}
	return out
}

func commandString(c gateways.Command) string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

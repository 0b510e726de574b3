package gateways

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
)

// ProcessLister reads running process names from the process table
type ProcessLister struct {
	logger interfaces.Logger
}

// NewProcessLister creates a gopsutil-backed process lister
func NewProcessLister(logger interfaces.Logger) *ProcessLister {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ProcessLister{logger: logger}
}

// ProcessNames returns the names of all processes it can inspect.
// Processes that vanish or deny access while listing are skipped.
func (l *ProcessLister) ProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			l.logger.Debug("Skipping process", interfaces.F("pid", p.Pid), interfaces.F("error", err))
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

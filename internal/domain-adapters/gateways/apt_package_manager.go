package gateways

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// AptPackageManager drives dpkg and apt on Debian-family hosts
type AptPackageManager struct {
	runner gateways.CommandRunner
	logger interfaces.Logger
	now    func() time.Time
}

// NewAptPackageManager creates an apt-backed package manager
func NewAptPackageManager(runner gateways.CommandRunner, logger interfaces.Logger) *AptPackageManager {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &AptPackageManager{runner: runner, logger: logger, now: time.Now}
}

// Snapshot captures the installed package listing (dpkg -l)
func (m *AptPackageManager) Snapshot(ctx context.Context) (*entities.PackageSnapshot, error) {
	result := m.runner.Run(ctx, gateways.Command{
		Name:        "dpkg",
		Args:        []string{"-l"},
		Description: "list installed packages",
	})
	if err := result.Failure("dpkg -l"); err != nil {
		return nil, err
	}
	return entities.NewPackageSnapshot(result.Stdout, m.now()), nil
}

// IsAvailable reports whether the package index offers a package of exactly that name
func (m *AptPackageManager) IsAvailable(ctx context.Context, pkg string) (bool, error) {
	result := m.runner.Run(ctx, gateways.Command{
		Name:        "apt-cache",
		Args:        []string{"search", pkg},
		Description: "search package index for " + pkg,
	})
	if err := result.Failure("apt-cache search " + pkg); err != nil {
		return false, err
	}

	re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(pkg) + `\b`)
	return re.MatchString(result.Stdout), nil
}

// Install refreshes the index, installs all packages in one transaction and cleans the cache
func (m *AptPackageManager) Install(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}

	steps := []gateways.Command{
		{Name: "apt-get", Args: []string{"update"}, Description: "apt-get update"},
		{Name: "apt-get", Args: append([]string{"install", "-y"}, pkgs...), Description: "apt-get install"},
		{Name: "apt-get", Args: []string{"clean"}, Description: "apt-get clean"},
		// sh expands the glob under sudo; rm alone would receive it literally
		{Name: "sh", Args: []string{"-c", "rm -rf /var/lib/apt/lists/*"}, Description: "remove apt lists"},
	}

	for _, step := range steps {
		step.Privileged = true
		result := m.runner.Run(ctx, step)
		if err := result.Failure(step.Description); err != nil {
			return fmt.Errorf("failed to install %v: %w", pkgs, err)
		}
	}

	m.logger.Debug("Installed apt packages", interfaces.F("packages", pkgs))
	return nil
}

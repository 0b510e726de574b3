package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// vendorInstallScript is the installer entry point inside the unpacked archive
const vendorInstallScript = "install"

// InstallerRunner unpacks the installer archive and runs the vendor install routine
type InstallerRunner struct {
	profile   *entities.Profile
	extractor gateways.Extractor
	host      gateways.Host
	runner    gateways.CommandRunner
	logger    interfaces.Logger
}

// NewInstallerRunner creates a new installer runner
func NewInstallerRunner(profile *entities.Profile, extractor gateways.Extractor, host gateways.Host, runner gateways.CommandRunner, logger interfaces.Logger) *InstallerRunner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &InstallerRunner{profile: profile, extractor: extractor, host: host, runner: runner, logger: logger}
}

// Install unpacks the artifact and installs into the install root. A nil artifact is a no-op.
func (r *InstallerRunner) Install(ctx context.Context, artifact *entities.InstallArtifact) error {
	if artifact == nil {
		r.logger.Debug("No installer artifact, skipping installation")
		return nil
	}

	if err := r.extractor.ExtractTarGz(artifact.Path, artifact.Dir); err != nil {
		return entities.NewExternalToolFailure("unpack installer", 0, "", err)
	}

	root := r.profile.Paths.InstallRoot
	if err := r.host.MkdirAll(ctx, root); err != nil {
		return fmt.Errorf("failed to create install root: %w", err)
	}

	r.logger.Info(fmt.Sprintf("Installing Stata %d into %s", artifact.Version, root))
	result := r.runner.Run(ctx, gateways.Command{
		Name:        filepath.Join(artifact.Dir, vendorInstallScript),
		Dir:         root,
		Stdin:       &yesStream{},
		Privileged:  true,
		Timeout:     30 * time.Minute,
		Description: "vendor installer",
	})

	switch {
	case result == nil || !result.Started:
		return result.Failure("vendor installer")
	case ctx.Err() != nil:
		return ctx.Err()
	case result.ExitCode < 0:
		// killed or timed out; not the known spurious status
		return result.Failure("vendor installer")
	case !result.Success:
		// Vendor quirk: the install script exits non-zero even when it
		// succeeds. Only this step ignores its exit status.
		r.logger.Debug("Ignoring vendor installer exit status", interfaces.F("exit_code", result.ExitCode))
	}

	r.logger.Info("Stata installed")
	return nil
}

// yesStream answers every confirmation prompt with "y", like yes(1)
type yesStream struct {
	offset int
}

func (y *yesStream) Read(p []byte) (int, error) {
	const line = "y\n"
	for i := range p {
		p[i] = line[y.offset%len(line)]
		y.offset++
	}
	return len(p), nil
}

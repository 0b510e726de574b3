package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// upgradeScript asks the product to check for and apply minor updates, then exit
const upgradeScript = "\nupdate query\nupdate all, exit\n"

// upgradeRuns is how many times the updater is invoked.
// Vendor quirk: a single run does not reach the latest minor release; the
// second run converges. Do not reuse as a general retry.
const upgradeRuns = 2

// Finalizer cleans up after installation, upgrades the product and maintains PATH links
type Finalizer struct {
	profile *entities.Profile
	host    gateways.Host
	runner  gateways.CommandRunner
	logger  interfaces.Logger
}

// NewFinalizer creates a new environment finalizer
func NewFinalizer(profile *entities.Profile, host gateways.Host, runner gateways.CommandRunner, logger interfaces.Logger) *Finalizer {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Finalizer{profile: profile, host: host, runner: runner, logger: logger}
}

// Finalize removes the download directory, opens up the install root, runs
// the upgrade unless skipped, then links the edition's executables into the
// bin directory. Only the links are maintained for a cached install.
func (f *Finalizer) Finalize(ctx context.Context, installSource entities.InstallSource, edition entities.Edition, skipUpgrade bool, report *entities.DependencyReport) error {
	links, err := entities.EditionLinks(edition)
	if err != nil {
		return err
	}
	stale, err := entities.StaleLinks(edition)
	if err != nil {
		return err
	}

	if installSource != entities.InstallFromCache {
		if err := f.cleanAndUpgrade(ctx, skipUpgrade); err != nil {
			return err
		}
	}

	if err := f.link(ctx, links, stale); err != nil {
		return err
	}

	f.checkThemeShim(report)
	return nil
}

func (f *Finalizer) cleanAndUpgrade(ctx context.Context, skipUpgrade bool) error {
	root := f.profile.Paths.InstallRoot

	if err := f.host.RemoveAll(ctx, f.profile.Paths.TempDir); err != nil {
		return fmt.Errorf("failed to remove installer files: %w", err)
	}

	if err := f.host.Chmod(ctx, root, gateways.AllReadable, true); err != nil {
		return fmt.Errorf("failed to make install root readable: %w", err)
	}

	if skipUpgrade {
		f.logger.Debug("Skipping upgrade")
		return nil
	}

	f.logger.Info("Upgrading Stata to the latest minor release")
	return withPermissions(ctx, f.host, root, gateways.OthersWritable, gateways.OthersReadOnly, true, func() error {
		for run := 1; run <= upgradeRuns; run++ {
			result := f.runner.Run(ctx, gateways.Command{
				Name:        f.profile.ExecutablePath(entities.GenericPrimaryLink),
				Dir:         root,
				Stdin:       strings.NewReader(upgradeScript),
				Timeout:     30 * time.Minute,
				Description: fmt.Sprintf("upgrade run %d/%d", run, upgradeRuns),
			})
			if err := result.Failure("upgrade"); err != nil {
				return err
			}
			f.logger.Debug("Upgrade run finished", interfaces.F("run", run), interfaces.F("duration", result.Duration))
		}
		return nil
	})
}

// link creates the edition's links and removes the other editions' specific links
func (f *Finalizer) link(ctx context.Context, links map[string]string, stale []string) error {
	bin := f.profile.Paths.BinDir

	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := f.profile.ExecutablePath(links[name])
		if err := f.host.Symlink(ctx, target, filepath.Join(bin, name)); err != nil {
			return fmt.Errorf("failed to link %s: %w", name, err)
		}
	}

	stalePaths := make([]string, len(stale))
	for i, name := range stale {
		stalePaths[i] = filepath.Join(bin, name)
	}
	if err := f.host.Remove(ctx, stalePaths...); err != nil {
		f.logger.Warn("Could not remove links of other editions", interfaces.F("error", err))
	}

	f.logger.Info("Linked Stata into " + bin)
	return nil
}

// checkThemeShim warns when the GUI link exists but its theme engine was never installed
func (f *Finalizer) checkThemeShim(report *entities.DependencyReport) {
	shim := f.profile.Dependencies.ThemeShim
	if report == nil || shim == "" || report.Present(shim) {
		return
	}
	f.logger.Warn(fmt.Sprintf("%s is not installed; the %s window may render without theme support", shim, entities.GenericAlternateLink))
}

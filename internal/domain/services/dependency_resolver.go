package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// DependencyResolver makes sure the shared libraries and helper packages the
// installer needs are present, installing missing ones in one transaction
type DependencyResolver struct {
	deps      entities.ProfileDependencies
	packages  gateways.PackageManager
	processes gateways.ProcessLister
	logger    interfaces.Logger
}

// NewDependencyResolver creates a new dependency resolver
func NewDependencyResolver(profile *entities.Profile, packages gateways.PackageManager, processes gateways.ProcessLister, logger interfaces.Logger) *DependencyResolver {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &DependencyResolver{
		deps:      profile.Dependencies,
		packages:  packages,
		processes: processes,
		logger:    logger,
	}
}

// Resolve captures the package snapshot once, queues what is missing and installs it
func (r *DependencyResolver) Resolve(ctx context.Context, installSource entities.InstallSource, licenseSource entities.LicenseSource, forceEncryptionHelper bool) (*entities.DependencyReport, error) {
	snapshot, err := r.packages.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed packages: %w", err)
	}

	report := &entities.DependencyReport{Snapshot: snapshot}

	for _, pkg := range r.deps.Required {
		if snapshot.Has(pkg) {
			r.logger.Debug("Dependency already installed", interfaces.F("package", pkg))
			continue
		}
		available, err := r.packages.IsAvailable(ctx, pkg)
		if err != nil {
			return nil, fmt.Errorf("failed to search for %s: %w", pkg, err)
		}
		if !available {
			r.logger.Warn(fmt.Sprintf("Package %s is not available from the package index; Stata may fail to start", pkg))
			report.Missing = append(report.Missing, pkg)
			continue
		}
		report.Queued = append(report.Queued, pkg)
	}

	needsHelper := forceEncryptionHelper ||
		installSource == entities.InstallFromDecrypt ||
		licenseSource == entities.LicenseFromDecrypt
	if needsHelper && r.deps.EncryptionHelper != "" && !snapshot.Has(r.deps.EncryptionHelper) {
		report.Queued = append(report.Queued, r.deps.EncryptionHelper)
	}

	if r.deps.ThemeShim != "" && !snapshot.Has(r.deps.ThemeShim) && r.windowManagerPresent(ctx, snapshot) {
		report.Queued = append(report.Queued, r.deps.ThemeShim)
	}

	if len(report.Queued) == 0 {
		r.logger.Debug("No system packages to install")
		return report, nil
	}

	r.logger.Info("Installing system packages: " + strings.Join(report.Queued, " "))
	if err := r.packages.Install(ctx, report.Queued); err != nil {
		return nil, err
	}
	return report, nil
}

// windowManagerPresent matches the allow-list against installed packages and running processes
func (r *DependencyResolver) windowManagerPresent(ctx context.Context, snapshot *entities.PackageSnapshot) bool {
	if len(r.deps.WindowManagers) == 0 {
		return false
	}
	if snapshot.MatchesAny(r.deps.WindowManagers) {
		return true
	}
	if r.processes == nil {
		return false
	}

	names, err := r.processes.ProcessNames(ctx)
	if err != nil {
		r.logger.Debug("Cannot list processes, relying on package listing", interfaces.F("error", err))
		return false
	}

	quoted := make([]string, len(r.deps.WindowManagers))
	for i, wm := range r.deps.WindowManagers {
		quoted[i] = regexp.QuoteMeta(wm)
	}
	re := regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	for _, name := range names {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

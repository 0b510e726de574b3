// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
)

// SourceChecker fails fast when a selected source lacks its inputs
type SourceChecker interface {
	CheckSources(cfg entities.InstallConfig, workingDir string) error
}

// DependencyResolver installs missing system packages
type DependencyResolver interface {
	Resolve(ctx context.Context, installSource entities.InstallSource, licenseSource entities.LicenseSource, forceEncryptionHelper bool) (*entities.DependencyReport, error)
}

// InstallerFetcher obtains the installer archive
type InstallerFetcher interface {
	FetchInstaller(ctx context.Context, source entities.InstallSource, version int) (*entities.InstallArtifact, error)
}

// Installer runs the vendor install routine
type Installer interface {
	Install(ctx context.Context, artifact *entities.InstallArtifact) error
}

// LicenseApplier places the license
type LicenseApplier interface {
	ApplyLicense(ctx context.Context, source entities.LicenseSource, workingDir string) error
}

// EnvironmentFinalizer upgrades the product and maintains PATH links
type EnvironmentFinalizer interface {
	Finalize(ctx context.Context, installSource entities.InstallSource, edition entities.Edition, skipUpgrade bool, report *entities.DependencyReport) error
}

// AddonInstaller installs optional extensions
type AddonInstaller interface {
	InstallAddons(ctx context.Context, requests *entities.AddonRequestList, workingDir string) error
}

// ProvisionOrchestrator runs the provisioning steps in their fixed order
type ProvisionOrchestrator struct {
	preflight SourceChecker
	resolver  DependencyResolver
	fetcher   InstallerFetcher
	installer Installer
	licenser  LicenseApplier
	finalizer EnvironmentFinalizer
	addons    AddonInstaller
	logger    interfaces.Logger
}

// NewProvisionOrchestrator creates a new provision orchestrator
func NewProvisionOrchestrator(
	preflight SourceChecker,
	resolver DependencyResolver,
	fetcher InstallerFetcher,
	installer Installer,
	licenser LicenseApplier,
	finalizer EnvironmentFinalizer,
	addons AddonInstaller,
	logger interfaces.Logger,
) *ProvisionOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ProvisionOrchestrator{
		preflight: preflight,
		resolver:  resolver,
		fetcher:   fetcher,
		installer: installer,
		licenser:  licenser,
		finalizer: finalizer,
		addons:    addons,
		logger:    logger,
	}
}

// ProvisionResult contains the result of a provisioning run
type ProvisionResult struct {
	Config           entities.InstallConfig
	Dependencies     *entities.DependencyReport
	Artifact         *entities.InstallArtifact
	UnknownAddons    []string
	DownloadDuration time.Duration
	InstallDuration  time.Duration
	TotalDuration    time.Duration
	// Step is the last step that was started
	Step    string
	Success bool
	Error   error
}

// Provision executes the complete installation workflow
func (o *ProvisionOrchestrator) Provision(ctx context.Context, cfg entities.InstallConfig, workingDir string) (*ProvisionResult, error) {
	startTime := time.Now()
	result := &ProvisionResult{Config: cfg}

	fail := func(err error) (*ProvisionResult, error) {
		result.Error = err
		result.TotalDuration = time.Since(startTime)
		return result, err
	}

	// Step 1: Check every input before touching the system
	result.Step = "check sources"
	if err := o.preflight.CheckSources(cfg, workingDir); err != nil {
		return fail(err)
	}

	// Step 2: System packages
	result.Step = "resolve dependencies"
	report, err := o.resolver.Resolve(ctx, cfg.InstallSource, cfg.LicenseSource, cfg.InstallAgeTool)
	if err != nil {
		return fail(fmt.Errorf("failed to resolve dependencies: %w", err))
	}
	result.Dependencies = report

	// Step 3: Installer archive
	result.Step = "fetch installer"
	downloadStart := time.Now()
	artifact, err := o.fetcher.FetchInstaller(ctx, cfg.InstallSource, cfg.Version)
	if err != nil {
		return fail(err)
	}
	result.Artifact = artifact
	result.DownloadDuration = time.Since(downloadStart)

	// Step 4: Vendor install routine
	result.Step = "install"
	installStart := time.Now()
	if err := o.installer.Install(ctx, artifact); err != nil {
		return fail(err)
	}
	result.InstallDuration = time.Since(installStart)

	// Step 5: License
	result.Step = "apply license"
	if err := o.licenser.ApplyLicense(ctx, cfg.LicenseSource, workingDir); err != nil {
		return fail(err)
	}

	// Step 6: Upgrade and PATH links
	result.Step = "finalize"
	if err := o.finalizer.Finalize(ctx, cfg.InstallSource, cfg.Edition, cfg.SkipUpgrade, report); err != nil {
		return fail(err)
	}

	// Step 7: Add-ons, then the deferred license check
	result.Step = "install add-ons"
	requests := entities.NewAddonRequestList(cfg.Addons)
	err = o.addons.InstallAddons(ctx, requests, workingDir)
	result.UnknownAddons = requests.Remaining()
	if err != nil {
		return fail(err)
	}

	result.Success = true
	result.TotalDuration = time.Since(startTime)
	o.logger.Info("Stata installation complete", interfaces.F("duration", result.TotalDuration.Round(time.Second)))
	return result, nil
}

// GetProvisionSummary returns a human-readable summary of the run
func (r *ProvisionResult) GetProvisionSummary() string {
	if !r.Success {
		return fmt.Sprintf("Provisioning failed at %s: %v", r.Step, r.Error)
	}

	summary := fmt.Sprintf(`Provisioning successful!
Stata: %d (%s)
Install source: %s
License source: %s
Download: %v
Install: %v
Total: %v`,
		r.Config.Version,
		r.Config.Edition,
		r.Config.InstallSource,
		r.Config.LicenseSource,
		r.DownloadDuration,
		r.InstallDuration,
		r.TotalDuration,
	)

	if r.Dependencies != nil && len(r.Dependencies.Queued) > 0 {
		summary += "\nPackages installed: " + strings.Join(r.Dependencies.Queued, ", ")
	}
	if len(r.UnknownAddons) > 0 {
		summary += "\nSkipped add-ons: " + strings.Join(r.UnknownAddons, ", ")
	}
	return summary
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// Add-on names accepted on the command line
const (
	AddonRequirements = "requirements"
	AddonProject      = "project"
	AddonJupyter      = "jupyter"
	AddonSetroot      = "setroot"
)

// licenseMismatchMarker is what the product logs when the license does not
// cover the installed version or edition
const licenseMismatchMarker = "License not applicable to this Stata"

// launchScript starts the product and exits; it makes the product write its log
const launchScript = "\nexit, clear\n"

type addonInstall func(ctx context.Context, a *AddonInstaller, workingDir string) error

// addonCatalog is processed in this order, whatever order names were requested in
var addonCatalog = []struct {
	name    string
	install addonInstall
}{
	{AddonRequirements, installRequirements},
	{AddonProject, installProject},
	{AddonJupyter, installJupyter},
	{AddonSetroot, installSetroot},
}

// AddonNames lists the catalog in processing order
func AddonNames() []string {
	names := make([]string, len(addonCatalog))
	for i, entry := range addonCatalog {
		names[i] = entry.name
	}
	return names
}

// AddonInstaller installs optional extensions and checks the product log for license problems
type AddonInstaller struct {
	profile     *entities.Profile
	acquisition *AcquisitionService
	extractor   gateways.Extractor
	host        gateways.Host
	runner      gateways.CommandRunner
	creds       gateways.Credentials
	console     io.Writer
	logger      interfaces.Logger
}

// NewAddonInstaller creates a new add-on installer. Product output is echoed to console.
func NewAddonInstaller(
	profile *entities.Profile,
	acquisition *AcquisitionService,
	extractor gateways.Extractor,
	host gateways.Host,
	runner gateways.CommandRunner,
	creds gateways.Credentials,
	console io.Writer,
	logger interfaces.Logger,
) *AddonInstaller {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if console == nil {
		console = io.Discard
	}
	return &AddonInstaller{
		profile:     profile,
		acquisition: acquisition,
		extractor:   extractor,
		host:        host,
		runner:      runner,
		creds:       creds,
		console:     console,
		logger:      logger,
	}
}

// InstallAddons processes the requested add-ons in catalog order, taking each
// processed name off the list, then scans the product log for a license mismatch
func (a *AddonInstaller) InstallAddons(ctx context.Context, requests *entities.AddonRequestList, workingDir string) error {
	if requests.Empty() {
		if err := a.runProduct(ctx, launchScript, workingDir); err != nil {
			return err
		}
	}

	for _, entry := range addonCatalog {
		if !requests.Contains(entry.name) {
			continue
		}
		if err := entry.install(ctx, a, workingDir); err != nil {
			return fmt.Errorf("add-on %s: %w", entry.name, err)
		}
		requests.Take(entry.name)
	}

	licenseErr := a.scanLog(workingDir)

	if remaining := requests.Remaining(); len(remaining) > 0 {
		a.logger.Warn("Skipping unrecognized addons: " + strings.Join(remaining, ", "))
	}

	return licenseErr
}

func installRequirements(ctx context.Context, a *AddonInstaller, workingDir string) error {
	a.logger.Info(fmt.Sprintf("Installing add-on: Stata package 'require' from %s and requirements from ./%s",
		a.profile.Addons.RequireSource, a.profile.Addons.RequirementsFile))
	return a.adoInstall(ctx, workingDir,
		"net set ado SITE",
		fmt.Sprintf("net install require, from(%q)", a.profile.Addons.RequireSource),
		fmt.Sprintf("require using %s, install", a.profile.Addons.RequirementsFile),
	)
}

func installProject(ctx context.Context, a *AddonInstaller, workingDir string) error {
	if !a.creds.Has(entities.CredURLBase) || !a.creds.Has(entities.CredURLPassword) {
		a.logger.Warn(fmt.Sprintf("Skipping add-on: Stata package 'project' can only be installed if env variables %s and %s are defined",
			entities.CredURLBase, entities.CredURLPassword))
		return nil
	}

	a.logger.Info("Installing add-on: Stata package 'project' from password-protected URL")

	scratch := a.profile.Paths.AddonScratchDir
	adoSource := filepath.Join(scratch, "ado")
	if err := os.MkdirAll(adoSource, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", adoSource, err)
	}

	archive := filepath.Join(scratch, a.profile.Addons.ProjectArchive)
	if err := writeFile(archive, func(w io.Writer) error {
		return a.acquisition.FetchProjectArchive(ctx, w)
	}); err != nil {
		return err
	}
	if err := a.extractor.ExtractZip(archive, adoSource); err != nil {
		return entities.NewExternalToolFailure("unpack project add-on", 0, "", err)
	}

	if err := a.adoInstall(ctx, workingDir,
		"net set ado SITE",
		fmt.Sprintf("net install project, from(%s)", adoSource),
	); err != nil {
		return err
	}

	if err := os.RemoveAll(scratch); err != nil {
		return fmt.Errorf("failed to remove %s: %w", scratch, err)
	}
	return nil
}

// installJupyter installs the notebook kernel bridge with pip.
// It does not touch the ado directory, so it runs outside the permission bracket.
func installJupyter(ctx context.Context, a *AddonInstaller, workingDir string) error {
	probe := a.runner.Run(ctx, gateways.Command{
		Name:        "python",
		Args:        []string{"-c", "import stata_kernel"},
		Dir:         workingDir,
		Timeout:     time.Minute,
		Description: "probe stata_kernel",
	})
	if probe != nil && probe.Success {
		a.logger.Info("Skipping add-on: Stata Jupyter kernel already installed")
		return nil
	}

	a.logger.Info("Installing add-on: Stata Jupyter kernel from https://kylebarron.dev/stata_kernel")
	steps := []gateways.Command{
		{Name: "pip", Args: []string{"install", "notebook", "--user"}, Description: "pip install notebook"},
		{Name: "pip", Args: []string{"install", "stata_kernel", "setuptools"}, Description: "pip install stata_kernel"},
		{Name: "python", Args: []string{"-m", "stata_kernel.install"}, Description: "stata_kernel.install"},
	}
	for _, step := range steps {
		step.Dir = workingDir
		if err := a.runner.Run(ctx, step).Failure(step.Description); err != nil {
			return err
		}
	}
	return nil
}

func installSetroot(ctx context.Context, a *AddonInstaller, workingDir string) error {
	a.logger.Info("Installing add-on: Stata package 'setroot' from " + a.profile.Addons.SetrootSource)
	return a.adoInstall(ctx, workingDir,
		"net set ado SITE",
		fmt.Sprintf("net install setroot, from(%q)", a.profile.Addons.SetrootSource),
	)
}

// adoInstall runs product commands while the shared ado directory is world-writable
func (a *AddonInstaller) adoInstall(ctx context.Context, workingDir string, commands ...string) error {
	adoDir := a.profile.Paths.AdoDir
	if err := a.host.MkdirAll(ctx, adoDir); err != nil {
		return fmt.Errorf("failed to create %s: %w", adoDir, err)
	}

	script := "\n" + strings.Join(commands, "\n") + "\n"
	return withPermissions(ctx, a.host, adoDir, gateways.AllWritable, gateways.AllReadOnly, true, func() error {
		return a.runProduct(ctx, script, workingDir)
	})
}

// runProduct feeds a script to the console product and appends its output to the log
func (a *AddonInstaller) runProduct(ctx context.Context, script, workingDir string) error {
	result := a.runner.Run(ctx, gateways.Command{
		Name:        filepath.Join(a.profile.Paths.BinDir, entities.GenericPrimaryLink),
		Dir:         workingDir,
		Stdin:       strings.NewReader(script),
		Timeout:     30 * time.Minute,
		Description: "stata",
	})
	if result == nil || !result.Started {
		return result.Failure("stata")
	}
	if !result.Success {
		a.logger.Warn("Stata exited with an error", interfaces.F("exit_code", result.ExitCode))
	}

	if err := appendLog(a.profile.LogPath(workingDir), result.Stdout); err != nil {
		return err
	}
	_, _ = io.WriteString(a.console, result.Stdout)
	return nil
}

// scanLog reports a DeferredLicenseError when the log shows a license mismatch
func (a *AddonInstaller) scanLog(workingDir string) error {
	path := a.profile.LogPath(workingDir)
	//nolint:gosec // G304: log path is resolved from the working directory
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if bytes.Contains(data, []byte(licenseMismatchMarker)) {
		return &entities.DeferredLicenseError{LogPath: path, Match: licenseMismatchMarker}
	}
	return nil
}

func appendLog(path, output string) error {
	//nolint:gosec // G302,G304: log lives in the working directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.WriteString(output); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// Package services implements domain business logic and use cases.
package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// PreflightService checks that every input a run needs is present before
// any network or privileged call is made
type PreflightService struct {
	profile  *entities.Profile
	creds    gateways.Credentials
	terminal gateways.TerminalProbe
	logger   interfaces.Logger
}

// NewPreflightService creates a new preflight service
func NewPreflightService(profile *entities.Profile, creds gateways.Credentials, terminal gateways.TerminalProbe, logger interfaces.Logger) *PreflightService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &PreflightService{profile: profile, creds: creds, terminal: terminal, logger: logger}
}

// CheckSources fails with a ConfigurationError when a selected source lacks its inputs
func (s *PreflightService) CheckSources(cfg entities.InstallConfig, workingDir string) error {
	if err := s.checkInstallSource(cfg.InstallSource); err != nil {
		return err
	}
	if err := s.checkLicenseSource(cfg.LicenseSource, workingDir); err != nil {
		return err
	}

	s.logger.Info(fmt.Sprintf("Installing Stata %d from %s, license from %s", cfg.Version, cfg.InstallSource, cfg.LicenseSource))

	if cfg.InteractiveLicense && cfg.LicenseSource != entities.LicenseFromInteractive {
		s.logger.Warn("--interactive has no effect; use --license-source interactive to run the license wizard")
	}
	return nil
}

func (s *PreflightService) checkInstallSource(source entities.InstallSource) error {
	switch source {
	case entities.InstallFromCache:
		return nil
	case entities.InstallFromDecrypt:
		return s.require("install source decrypt", entities.CredAgePrivateKey)
	case entities.InstallFromPassword:
		return s.require("install source password", entities.CredURLBase, entities.CredURLPassword)
	default:
		return entities.NewConfigurationError(fmt.Sprintf("unknown install source %q", source), nil)
	}
}

func (s *PreflightService) checkLicenseSource(source entities.LicenseSource, workingDir string) error {
	switch source {
	case entities.LicenseFromCache:
		return nil

	case entities.LicenseFromDecrypt:
		if err := s.require("license source decrypt", entities.CredAgePrivateKey); err != nil {
			return err
		}
		path := s.profile.EncryptedLicensePath(workingDir)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return entities.NewConfigurationError(fmt.Sprintf("license source decrypt needs %s", path), nil)
			}
			return entities.NewConfigurationError(fmt.Sprintf("cannot read %s", path), err)
		}
		return nil

	case entities.LicenseFromEnv:
		if s.creds.Has(entities.CredLicenseBlob) {
			return nil
		}
		if missing := s.missing(entities.LicenseFields...); len(missing) > 0 {
			return entities.NewConfigurationError(fmt.Sprintf(
				"license source env needs %s, or all of %s (missing %s)",
				entities.CredLicenseBlob, joinNames(entities.LicenseFields), joinNames(missing)), nil)
		}
		return nil

	case entities.LicenseFromInteractive:
		if s.terminal != nil && !s.terminal.StdinIsTerminal() {
			s.logger.Warn("Standard input is not a terminal; the license wizard may not be able to prompt")
		}
		return nil

	case entities.LicenseFromPassword:
		return s.require("license source password", entities.CredURLBase, entities.CredURLPassword)

	default:
		return entities.NewConfigurationError(fmt.Sprintf("unknown license source %q", source), nil)
	}
}

func (s *PreflightService) require(what string, names ...entities.CredentialName) error {
	if missing := s.missing(names...); len(missing) > 0 {
		return entities.NewConfigurationError(fmt.Sprintf("%s needs %s", what, joinNames(missing)), nil)
	}
	return nil
}

func (s *PreflightService) missing(names ...entities.CredentialName) []entities.CredentialName {
	var out []entities.CredentialName
	for _, n := range names {
		if !s.creds.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func joinNames(names []entities.CredentialName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

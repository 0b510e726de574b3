// Package yaml provides YAML-based profile parsing and loading.
package yaml

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
)

// yamlProfile represents the raw YAML structure
type yamlProfile struct {
	SupportedVersions string           `yaml:"supported_versions"`
	Paths             yamlPaths        `yaml:"paths"`
	Download          yamlDownload     `yaml:"download"`
	Dependencies      yamlDependencies `yaml:"dependencies"`
	Addons            yamlAddons       `yaml:"addons"`
}

type yamlPaths struct {
	InstallRoot      string `yaml:"install_root"`
	BinDir           string `yaml:"bin_dir"`
	TempDir          string `yaml:"temp_dir"`
	AdoDir           string `yaml:"ado_dir"`
	AddonScratchDir  string `yaml:"addon_scratch_dir"`
	LicenseFile      string `yaml:"license_file"`
	EncryptedLicense string `yaml:"encrypted_license"`
	LogFile          string `yaml:"log_file"`
}

type yamlDownload struct {
	Username              string `yaml:"username"`
	EncryptedInstallerURL string `yaml:"encrypted_installer_url"`
	InstallerName         string `yaml:"installer_name"`
	InstallerSHA256       string `yaml:"installer_sha256"`
	LicenseName           string `yaml:"license_name"`
	TimeoutMinutes        int    `yaml:"timeout_minutes"`
}

type yamlDependencies struct {
	Required         []string `yaml:"required"`
	EncryptionHelper string   `yaml:"encryption_helper"`
	ThemeShim        string   `yaml:"theme_shim"`
	WindowManagers   []string `yaml:"window_managers"`
}

type yamlAddons struct {
	RequireSource    string `yaml:"require_source"`
	RequirementsFile string `yaml:"requirements_file"`
	SetrootSource    string `yaml:"setroot_source"`
	ProjectArchive   string `yaml:"project_archive"`
}

// ProfileParser parses YAML profile files
type ProfileParser struct{}

// NewProfileParser creates a new YAML parser
func NewProfileParser() *ProfileParser {
	return &ProfileParser{}
}

// ParseFile parses a profile file on top of base
func (p *ProfileParser) ParseFile(filePath string, base []byte) (*entities.Profile, error) {
	//nolint:gosec // G304: filePath is the operator-supplied profile
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(base, data)
}

// Parse decodes each document in order, later documents overriding earlier keys
func (p *ProfileParser) Parse(docs ...[]byte) (*entities.Profile, error) {
	var raw yamlProfile
	for _, data := range docs {
		if len(data) == 0 {
			continue
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := validate(&raw); err != nil {
		return nil, entities.NewConfigurationError("invalid profile", err)
	}

	return &entities.Profile{
		SupportedVersions: raw.SupportedVersions,
		Paths:             convertPaths(raw.Paths),
		Download:          convertDownload(raw.Download),
		Dependencies:      convertDependencies(raw.Dependencies),
		Addons:            convertAddons(raw.Addons),
	}, nil
}

func validate(raw *yamlProfile) error {
	required := []struct{ key, value string }{
		{"paths.install_root", raw.Paths.InstallRoot},
		{"paths.bin_dir", raw.Paths.BinDir},
		{"paths.temp_dir", raw.Paths.TempDir},
		{"paths.ado_dir", raw.Paths.AdoDir},
		{"paths.license_file", raw.Paths.LicenseFile},
		{"paths.log_file", raw.Paths.LogFile},
		{"download.encrypted_installer_url", raw.Download.EncryptedInstallerURL},
		{"download.installer_name", raw.Download.InstallerName},
		{"download.license_name", raw.Download.LicenseName},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%s must be set", field.key)
		}
	}

	if raw.SupportedVersions != "" {
		if _, err := version.NewConstraint(raw.SupportedVersions); err != nil {
			return fmt.Errorf("supported_versions %q: %w", raw.SupportedVersions, err)
		}
	}

	if raw.Download.TimeoutMinutes < 0 {
		return fmt.Errorf("download.timeout_minutes must not be negative")
	}

	return nil
}

func convertPaths(yp yamlPaths) entities.ProfilePaths {
	return entities.ProfilePaths{
		InstallRoot:      yp.InstallRoot,
		BinDir:           yp.BinDir,
		TempDir:          yp.TempDir,
		AdoDir:           yp.AdoDir,
		AddonScratchDir:  yp.AddonScratchDir,
		LicenseFile:      yp.LicenseFile,
		EncryptedLicense: yp.EncryptedLicense,
		LogFile:          yp.LogFile,
	}
}

func convertDownload(yd yamlDownload) entities.ProfileDownload {
	return entities.ProfileDownload{
		Username:              yd.Username,
		EncryptedInstallerURL: yd.EncryptedInstallerURL,
		InstallerName:         yd.InstallerName,
		InstallerSHA256:       yd.InstallerSHA256,
		LicenseName:           yd.LicenseName,
		TimeoutMinutes:        yd.TimeoutMinutes,
	}
}

func convertDependencies(yd yamlDependencies) entities.ProfileDependencies {
	return entities.ProfileDependencies{
		Required:         yd.Required,
		EncryptionHelper: yd.EncryptionHelper,
		ThemeShim:        yd.ThemeShim,
		WindowManagers:   yd.WindowManagers,
	}
}

func convertAddons(ya yamlAddons) entities.ProfileAddons {
	return entities.ProfileAddons{
		RequireSource:    ya.RequireSource,
		RequirementsFile: ya.RequirementsFile,
		SetrootSource:    ya.SetrootSource,
		ProjectArchive:   ya.ProjectArchive,
	}
}

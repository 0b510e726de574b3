package entities

import "fmt"

// InstallConfig is the immutable selection made on the command line
type InstallConfig struct {
	InstallSource      InstallSource
	LicenseSource      LicenseSource
	Edition            Edition
	Version            int
	SkipUpgrade        bool
	InteractiveLicense bool
	InstallAgeTool     bool
	Addons             []string
}

// Defaults applied by the CLI
const (
	DefaultEdition = EditionBE
	DefaultVersion = 18
)

// InstallConfigInput carries the raw, unvalidated command-line values
type InstallConfigInput struct {
	InstallSource      string
	LicenseSource      string
	Edition            string
	Version            int
	SkipUpgrade        bool
	InteractiveLicense bool
	InstallAgeTool     bool
	Addons             []string
}

// NewInstallConfig validates raw input and builds the configuration
func NewInstallConfig(in InstallConfigInput) (InstallConfig, error) {
	installSource, err := ParseInstallSource(in.InstallSource)
	if err != nil {
		return InstallConfig{}, err
	}

	licenseSource, err := ParseLicenseSource(in.LicenseSource)
	if err != nil {
		return InstallConfig{}, err
	}

	editionName := in.Edition
	if editionName == "" {
		editionName = string(DefaultEdition)
	}
	edition, err := ParseEdition(editionName)
	if err != nil {
		return InstallConfig{}, err
	}

	if in.Version <= 0 {
		return InstallConfig{}, NewConfigurationError(fmt.Sprintf("version must be a positive integer, got %d", in.Version), nil)
	}

	addons := make([]string, len(in.Addons))
	copy(addons, in.Addons)

	return InstallConfig{
		InstallSource:      installSource,
		LicenseSource:      licenseSource,
		Edition:            edition,
		Version:            in.Version,
		SkipUpgrade:        in.SkipUpgrade,
		InteractiveLicense: in.InteractiveLicense,
		InstallAgeTool:     in.InstallAgeTool,
		Addons:             addons,
	}, nil
}

// UsesDecryption reports whether either source needs the age private key
func (c InstallConfig) UsesDecryption() bool {
	return c.InstallSource == InstallFromDecrypt || c.LicenseSource == LicenseFromDecrypt
}

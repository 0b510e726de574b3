package yaml

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/hashicorp/go-version"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
)

//go:embed default_profile.yml
var defaultProfile []byte

// ProfileRepository loads the provisioning profile
type ProfileRepository struct {
	overridePath string
	parser       *ProfileParser
}

// NewProfileRepository creates a repository; an empty path means the embedded default only
func NewProfileRepository(overridePath string) *ProfileRepository {
	return &ProfileRepository{
		overridePath: overridePath,
		parser:       NewProfileParser(),
	}
}

// Load returns the embedded default merged with the override file, if any
func (r *ProfileRepository) Load() (*entities.Profile, error) {
	if r.overridePath == "" {
		return r.parser.Parse(defaultProfile)
	}

	if _, err := os.Stat(r.overridePath); os.IsNotExist(err) {
		return nil, entities.NewConfigurationError(fmt.Sprintf("profile not found: %s", r.overridePath), nil)
	}

	return r.parser.ParseFile(r.overridePath, defaultProfile)
}

// DefaultProfile returns the embedded profile
func DefaultProfile() (*entities.Profile, error) {
	return NewProfileParser().Parse(defaultProfile)
}

// CheckVersion verifies a major version against the profile's supported_versions constraint
func CheckVersion(profile *entities.Profile, major int) error {
	if profile.SupportedVersions == "" {
		return nil
	}

	constraints, err := version.NewConstraint(profile.SupportedVersions)
	if err != nil {
		return entities.NewConfigurationError("invalid supported_versions", err)
	}

	v, err := version.NewVersion(fmt.Sprintf("%d", major))
	if err != nil {
		return entities.NewConfigurationError(fmt.Sprintf("invalid version %d", major), err)
	}

	if !constraints.Check(v) {
		return entities.NewConfigurationError(
			fmt.Sprintf("version %d does not satisfy %s", major, profile.SupportedVersions), nil)
	}
	return nil
}

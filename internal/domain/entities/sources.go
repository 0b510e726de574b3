package entities

import (
	"fmt"
	"strings"
)

// InstallSource selects where the installer archive comes from
type InstallSource string

// Install sources
const (
	InstallFromCache    InstallSource = "cache"
	InstallFromDecrypt  InstallSource = "decrypt"
	InstallFromPassword InstallSource = "password"
)

// AllInstallSources lists every install source in CLI order
func AllInstallSources() []InstallSource {
	return []InstallSource{InstallFromCache, InstallFromDecrypt, InstallFromPassword}
}

// ParseInstallSource validates an install source name
func ParseInstallSource(s string) (InstallSource, error) {
	for _, src := range AllInstallSources() {
		if string(src) == s {
			return src, nil
		}
	}
	return "", NewConfigurationError(fmt.Sprintf("unexpected install source: %q (expected one of %s)", s, joinValues(AllInstallSources())), nil)
}

func (s InstallSource) String() string { return string(s) }

// LicenseSource selects where the license comes from
type LicenseSource string

// License sources
const (
	LicenseFromCache       LicenseSource = "cache"
	LicenseFromDecrypt     LicenseSource = "decrypt"
	LicenseFromEnv         LicenseSource = "env"
	LicenseFromInteractive LicenseSource = "interactive"
	LicenseFromPassword    LicenseSource = "password"
)

// AllLicenseSources lists every license source in CLI order
func AllLicenseSources() []LicenseSource {
	return []LicenseSource{
		LicenseFromCache,
		LicenseFromDecrypt,
		LicenseFromEnv,
		LicenseFromInteractive,
		LicenseFromPassword,
	}
}

// ParseLicenseSource validates a license source name
func ParseLicenseSource(s string) (LicenseSource, error) {
	for _, src := range AllLicenseSources() {
		if string(src) == s {
			return src, nil
		}
	}
	return "", NewConfigurationError(fmt.Sprintf("unexpected license source: %q (expected one of %s)", s, joinValues(AllLicenseSources())), nil)
}

func (s LicenseSource) String() string { return string(s) }

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

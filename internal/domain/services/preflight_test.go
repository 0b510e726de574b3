package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
)

func fullLicenseFields() mockCredentials {
	return mockCredentials{
		entities.CredSerial:              "12345",
		entities.CredCode:                "abcd efgh",
		entities.CredAuthorization:       "wxyz",
		entities.CredLicenseeName:        "Ada",
		entities.CredLicenseeInstitution: "University",
	}
}

func TestCheckSources(t *testing.T) {
	withEncrypted := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(withEncrypted, "stata.lic.encrypted"), []byte("enc:x"), 0o600))
	empty := t.TempDir()

	key := mockCredentials{entities.CredAgePrivateKey: "AGE-SECRET-KEY-1TEST"}
	url := mockCredentials{entities.CredURLBase: "https://host.test", entities.CredURLPassword: "pw"}

	tests := []struct {
		name       string
		install    entities.InstallSource
		license    entities.LicenseSource
		creds      mockCredentials
		workingDir string
		wantErr    string
	}{
		{"cache cache", entities.InstallFromCache, entities.LicenseFromCache, nil, empty, ""},
		{"decrypt without key", entities.InstallFromDecrypt, entities.LicenseFromCache, nil, empty, "STATA_AGE_PRIVATE_KEY"},
		{"decrypt with key", entities.InstallFromDecrypt, entities.LicenseFromCache, key, empty, ""},
		{"password without url", entities.InstallFromPassword, entities.LicenseFromCache, nil, empty, "STATA_URL_BASE, STATA_URL_PW"},
		{"password without pw", entities.InstallFromPassword, entities.LicenseFromCache,
			mockCredentials{entities.CredURLBase: "https://host.test"}, empty, "STATA_URL_PW"},
		{"password ok", entities.InstallFromPassword, entities.LicenseFromCache, url, empty, ""},
		{"license decrypt without key", entities.InstallFromCache, entities.LicenseFromDecrypt, nil, withEncrypted, "STATA_AGE_PRIVATE_KEY"},
		{"license decrypt without file", entities.InstallFromCache, entities.LicenseFromDecrypt, key, empty, "stata.lic.encrypted"},
		{"license decrypt ok", entities.InstallFromCache, entities.LicenseFromDecrypt, key, withEncrypted, ""},
		{"env with nothing", entities.InstallFromCache, entities.LicenseFromEnv, nil, empty, "missing stata_serial, stata_code, stata_authorization, name, institution"},
		{"env partial", entities.InstallFromCache, entities.LicenseFromEnv,
			mockCredentials{entities.CredSerial: "1", entities.CredCode: "2"}, empty, "missing stata_authorization, name, institution"},
		{"env blob", entities.InstallFromCache, entities.LicenseFromEnv, mockCredentials{entities.CredLicenseBlob: "lic"}, empty, ""},
		{"env fields", entities.InstallFromCache, entities.LicenseFromEnv, fullLicenseFields(), empty, ""},
		{"interactive", entities.InstallFromCache, entities.LicenseFromInteractive, nil, empty, ""},
		{"license password without creds", entities.InstallFromCache, entities.LicenseFromPassword, nil, empty, "STATA_URL"},
		{"license password ok", entities.InstallFromCache, entities.LicenseFromPassword, url, empty, ""},
		{"unknown install", entities.InstallSource("ftp"), entities.LicenseFromCache, nil, empty, "unknown install source"},
		{"unknown license", entities.InstallFromCache, entities.LicenseSource("usb"), nil, empty, "unknown license source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPreflightService(testProfile(t.TempDir()), tt.creds, mockTerminal(true), nil)
			cfg := entities.InstallConfig{InstallSource: tt.install, LicenseSource: tt.license, Edition: entities.EditionBE, Version: 18}

			err := svc.CheckSources(cfg, tt.workingDir)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *entities.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckSources_EveryCombinationKnown(t *testing.T) {
	creds := fullLicenseFields()
	creds[entities.CredAgePrivateKey] = "key"
	creds[entities.CredURLBase] = "https://host.test"
	creds[entities.CredURLPassword] = "pw"

	workingDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workingDir, "stata.lic.encrypted"), []byte("x"), 0o600))

	svc := NewPreflightService(testProfile(t.TempDir()), creds, mockTerminal(true), nil)
	for _, install := range entities.AllInstallSources() {
		for _, license := range entities.AllLicenseSources() {
			cfg := entities.InstallConfig{InstallSource: install, LicenseSource: license, Edition: entities.EditionBE, Version: 18}
			assert.NoError(t, svc.CheckSources(cfg, workingDir), "%s/%s", install, license)
		}
	}
}

func TestCheckSources_Advisories(t *testing.T) {
	logger := &recordingLogger{}
	svc := NewPreflightService(testProfile(t.TempDir()), nil, mockTerminal(false), logger)

	err := svc.CheckSources(entities.InstallConfig{
		InstallSource: entities.InstallFromCache, LicenseSource: entities.LicenseFromInteractive, Version: 18,
	}, t.TempDir())
	require.NoError(t, err)
	assert.True(t, logger.warned("not a terminal"))

	logger = &recordingLogger{}
	svc = NewPreflightService(testProfile(t.TempDir()), mockCredentials{entities.CredLicenseBlob: "x"}, mockTerminal(true), logger)
	err = svc.CheckSources(entities.InstallConfig{
		InstallSource: entities.InstallFromCache, LicenseSource: entities.LicenseFromEnv, Version: 18, InteractiveLicense: true,
	}, t.TempDir())
	require.NoError(t, err)
	assert.True(t, logger.warned("--license-source interactive"))
	require.Len(t, logger.infos, 1)
	assert.Contains(t, logger.infos[0], "license from env")
}

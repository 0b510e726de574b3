package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

type licenseFixture struct {
	profile    *entities.Profile
	workingDir string
	host       *mockHost
	runner     *mockRunner
	fetcher    *mockFetcher
	svc        *LicenseService
}

func newLicenseFixture(t *testing.T, creds mockCredentials) *licenseFixture {
	t.Helper()
	f := &licenseFixture{
		profile:    testProfile(t.TempDir()),
		workingDir: t.TempDir(),
		host:       newMockHost(),
		runner:     newMockRunner(),
		fetcher: &mockFetcher{bodies: map[string]string{
			"https://private.test/stata/stata.lic": "DOWNLOADED",
		}},
	}
	require.NoError(t, os.MkdirAll(f.profile.Paths.InstallRoot, 0o755))
	acquisition := NewAcquisitionService(f.profile, f.fetcher, &mockDecrypter{key: testAgeKey}, &mockChecksum{}, creds, nil)
	f.svc = NewLicenseService(f.profile, acquisition, f.host, f.runner, creds, nil)
	return f
}

func (f *licenseFixture) writeEncrypted(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.profile.EncryptedLicensePath(f.workingDir), []byte(body), 0o600))
}

func assertReadOnly(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm(), "license must end read-only")
}

func assertLicense(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
	assertReadOnly(t, path)
}

func TestLicenseHandlers_CoverEverySource(t *testing.T) {
	for _, source := range entities.AllLicenseSources() {
		_, ok := licenseHandlers[source]
		assert.True(t, ok, "no handler for %s", source)
	}
	assert.Len(t, licenseHandlers, len(entities.AllLicenseSources()))
}

func TestApplyLicense_Cache(t *testing.T) {
	f := newLicenseFixture(t, acquisitionCreds())

	require.NoError(t, f.svc.ApplyLicense(context.Background(), entities.LicenseFromCache, f.workingDir))

	assert.Empty(t, f.host.calls)
	assert.Empty(t, f.runner.commands)
	assert.NoFileExists(t, f.profile.LicensePath())
}

func TestApplyLicense_Decrypt(t *testing.T) {
	f := newLicenseFixture(t, acquisitionCreds())
	f.writeEncrypted(t, "enc:LICENSE")
	path := f.profile.LicensePath()

	require.NoError(t, f.svc.ApplyLicense(context.Background(), entities.LicenseFromDecrypt, f.workingDir))

	assertLicense(t, path, "LICENSE")
	assert.Equal(t, []string{
		"touch " + path,
		"chmod a+w false " + path,
		"chmod a-w false " + path,
	}, f.host.calls)
}

func TestApplyLicense_DecryptOverwritesPreviousLicense(t *testing.T) {
	f := newLicenseFixture(t, acquisitionCreds())
	f.writeEncrypted(t, "enc:NEW")
	path := f.profile.LicensePath()
	require.NoError(t, os.WriteFile(path, []byte("OLD LICENSE WITH LONGER CONTENT"), 0o444))

	require.NoError(t, f.svc.ApplyLicense(context.Background(), entities.LicenseFromDecrypt, f.workingDir))

	assertLicense(t, path, "NEW")
}

func TestApplyLicense_DecryptFailureStillNarrows(t *testing.T) {
	f := newLicenseFixture(t, mockCredentials{entities.CredAgePrivateKey: "wrong"})
	f.writeEncrypted(t, "enc:LICENSE")

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromDecrypt, f.workingDir)

	var toolErr *entities.ExternalToolFailure
	require.True(t, errors.As(err, &toolErr))
	assertReadOnly(t, f.profile.LicensePath())
	assert.Equal(t, 1, f.host.count("chmod a-w"))
}

func TestApplyLicense_DecryptMissingFile(t *testing.T) {
	f := newLicenseFixture(t, acquisitionCreds())

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromDecrypt, f.workingDir)

	var cfgErr *entities.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, f.host.calls)
}

func TestApplyLicense_NarrowFailure(t *testing.T) {
	f := newLicenseFixture(t, acquisitionCreds())
	f.writeEncrypted(t, "enc:LICENSE")
	f.host.failChmod["a-w"] = errors.New("operation not permitted")

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromDecrypt, f.workingDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to restore a-w")
}

func TestApplyLicense_WriteAndNarrowFailuresCombined(t *testing.T) {
	f := newLicenseFixture(t, mockCredentials{entities.CredAgePrivateKey: "wrong"})
	f.writeEncrypted(t, "enc:LICENSE")
	f.host.failChmod["a-w"] = errors.New("operation not permitted")

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromDecrypt, f.workingDir)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	var toolErr *entities.ExternalToolFailure
	assert.True(t, errors.As(err, &toolErr))
}

func TestApplyLicense_WidenFailure(t *testing.T) {
	f := newLicenseFixture(t, acquisitionCreds())
	f.writeEncrypted(t, "enc:LICENSE")
	f.host.failChmod["a+w"] = errors.New("operation not permitted")

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromDecrypt, f.workingDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply a+w")
	assert.Equal(t, 1, f.host.count("chmod a-w"), "narrowing runs even when widening failed")
}

func TestApplyLicense_EnvBlob(t *testing.T) {
	f := newLicenseFixture(t, mockCredentials{entities.CredLicenseBlob: "BLOB"})

	require.NoError(t, f.svc.ApplyLicense(context.Background(), entities.LicenseFromEnv, f.workingDir))

	assertLicense(t, f.profile.LicensePath(), "BLOB")
	assert.Empty(t, f.runner.commands)
}

func TestApplyLicense_EnvFields(t *testing.T) {
	f := newLicenseFixture(t, fullLicenseFields())
	path := f.profile.LicensePath()
	require.NoError(t, os.WriteFile(path, []byte("OLD"), 0o444))

	require.NoError(t, f.svc.ApplyLicense(context.Background(), entities.LicenseFromEnv, f.workingDir))

	assert.NoFileExists(t, path, "previous license is removed before the wizard runs")
	assert.Equal(t, []string{"rm " + path}, f.host.calls)
	require.Len(t, f.runner.commands, 1)
	cmd := f.runner.commands[0]
	assert.Equal(t, filepath.Join(f.profile.Paths.InstallRoot, "stinit"), cmd.Name)
	assert.True(t, cmd.Privileged)
	assert.Equal(t, "Y\nY\n12345\nabcd efgh\nwxyz\nY\nY\nAda\nUniversity\nY\n", f.runner.stdins[0])
}

func TestApplyLicense_EnvPartialFields(t *testing.T) {
	f := newLicenseFixture(t, mockCredentials{
		entities.CredSerial: "12345",
		entities.CredCode:   "abcd",
	})

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromEnv, f.workingDir)

	var cfgErr *entities.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "missing stata_authorization, name, institution")
	assert.Empty(t, f.runner.commands)
	assert.Empty(t, f.host.calls)
}

func TestApplyLicense_EnvRemoveFailure(t *testing.T) {
	f := newLicenseFixture(t, fullLicenseFields())
	f.host.failOp["rm"] = errors.New("read-only file system")

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromEnv, f.workingDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to remove existing license")
	assert.Empty(t, f.runner.commands)
}

func TestApplyLicense_EnvToolFailure(t *testing.T) {
	f := newLicenseFixture(t, fullLicenseFields())
	f.runner.results[filepath.Join(f.profile.Paths.InstallRoot, "stinit")] = &gateways.CommandResult{
		Started: true, ExitCode: 2, Stderr: "invalid serial number",
	}

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromEnv, f.workingDir)

	var toolErr *entities.ExternalToolFailure
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 2, toolErr.ExitCode)
	assert.NotContains(t, err.Error(), "abcd efgh")
}

func TestApplyLicense_Interactive(t *testing.T) {
	f := newLicenseFixture(t, mockCredentials{})

	require.NoError(t, f.svc.ApplyLicense(context.Background(), entities.LicenseFromInteractive, f.workingDir))

	require.Len(t, f.runner.commands, 1)
	cmd := f.runner.commands[0]
	assert.True(t, cmd.Interactive)
	assert.Nil(t, cmd.Stdin)
	assert.Equal(t, filepath.Join(f.profile.Paths.InstallRoot, "stinit"), cmd.Name)
}

func TestApplyLicense_Password(t *testing.T) {
	f := newLicenseFixture(t, acquisitionCreds())

	require.NoError(t, f.svc.ApplyLicense(context.Background(), entities.LicenseFromPassword, f.workingDir))

	assertLicense(t, f.profile.LicensePath(), "DOWNLOADED")
	require.Len(t, f.fetcher.requests, 1)
	assert.Equal(t, "oi", f.fetcher.requests[0].Username)
}

func TestApplyLicense_PasswordDownloadFailure(t *testing.T) {
	f := newLicenseFixture(t, acquisitionCreds())
	f.fetcher.err = errors.New("HTTP 401: 401 Unauthorized")

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseFromPassword, f.workingDir)

	require.Error(t, err)
	assertReadOnly(t, f.profile.LicensePath())
}

func TestApplyLicense_UnknownSource(t *testing.T) {
	f := newLicenseFixture(t, mockCredentials{})

	err := f.svc.ApplyLicense(context.Background(), entities.LicenseSource("usb"), f.workingDir)

	var cfgErr *entities.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstallConfig(t *testing.T) {
	addons := []string{"requirements", "jupyter"}
	cfg, err := NewInstallConfig(InstallConfigInput{
		InstallSource: "decrypt",
		LicenseSource: "env",
		Version:       17,
		Addons:        addons,
	})
	require.NoError(t, err)

	assert.Equal(t, InstallFromDecrypt, cfg.InstallSource)
	assert.Equal(t, LicenseFromEnv, cfg.LicenseSource)
	assert.Equal(t, DefaultEdition, cfg.Edition)
	assert.Equal(t, 17, cfg.Version)
	assert.True(t, cfg.UsesDecryption())

	addons[0] = "changed"
	assert.Equal(t, "requirements", cfg.Addons[0], "config keeps its own copy of the add-on list")
}

func TestNewInstallConfig_Invalid(t *testing.T) {
	valid := InstallConfigInput{InstallSource: "cache", LicenseSource: "cache", Edition: "be", Version: 18}

	tests := []struct {
		name   string
		mutate func(in *InstallConfigInput)
		want   string
	}{
		{"install source", func(in *InstallConfigInput) { in.InstallSource = "ftp" }, "install source"},
		{"license source", func(in *InstallConfigInput) { in.LicenseSource = "" }, "license source"},
		{"edition", func(in *InstallConfigInput) { in.Edition = "ic" }, "edition"},
		{"version", func(in *InstallConfigInput) { in.Version = 0 }, "version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := NewInstallConfig(in)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUsesDecryption(t *testing.T) {
	assert.False(t, InstallConfig{InstallSource: InstallFromCache, LicenseSource: LicenseFromPassword}.UsesDecryption())
	assert.True(t, InstallConfig{InstallSource: InstallFromCache, LicenseSource: LicenseFromDecrypt}.UsesDecryption())
}

func TestExternalToolFailure(t *testing.T) {
	cause := errors.New("exit status 2")
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	err := NewExternalToolFailure("license tool", 2, string(long)+"tail", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "license tool failed (exit 2)")
	assert.True(t, len(err.Stderr) < 2100)
	assert.Contains(t, err.Stderr, "tail")
}

package secrets

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
)

type mapEnv map[string]string

func (m mapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func TestLoadCredentials(t *testing.T) {
	set, err := LoadCredentials(mapEnv{
		"STATA_LIC":      "licence-body",
		"stata_serial":   "123",
		"STATA_URL_BASE": "",
		"UNRELATED":      "ignored",
	})
	require.NoError(t, err)

	assert.True(t, set.Has(entities.CredLicenseBlob))
	assert.True(t, set.Has(entities.CredSerial))
	assert.False(t, set.Has(entities.CredURLBase), "empty values count as unset")
	assert.False(t, set.Has(entities.CredAgePrivateKey))
	assert.Equal(t, []entities.CredentialName{entities.CredLicenseBlob, entities.CredSerial}, set.Names())

	var got string
	require.NoError(t, set.Open(entities.CredLicenseBlob, func(secret []byte) error {
		got = string(secret)
		return nil
	}))
	assert.Equal(t, "licence-body", got)
}

func TestCredentialSet_OpenMissing(t *testing.T) {
	set := NewCredentialSet(nil)

	called := false
	err := set.Open(entities.CredURLPassword, func([]byte) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "STATA_URL_PW")
}

func TestCredentialSet_OpenPropagatesError(t *testing.T) {
	set := NewCredentialSet(map[entities.CredentialName]string{entities.CredCode: "abc"})
	boom := errors.New("boom")

	err := set.Open(entities.CredCode, func([]byte) error { return boom })

	assert.ErrorIs(t, err, boom)
}

func TestCredentialSet_FormattingHidesValues(t *testing.T) {
	set := NewCredentialSet(map[entities.CredentialName]string{
		entities.CredURLPassword: "hunter2",
		entities.CredURLBase:     "https://example.test",
	})

	for _, s := range []string{
		set.String(),
		fmt.Sprintf("%v", set),
		fmt.Sprintf("%+v", set),
		fmt.Sprintf("%#v", set),
	} {
		assert.NotContains(t, s, "hunter2")
		assert.NotContains(t, s, "example.test")
		assert.Contains(t, s, "STATA_URL_PW")
	}
}

func TestCredentialSet_NilIsEmpty(t *testing.T) {
	var set *CredentialSet
	assert.False(t, set.Has(entities.CredCode))
	assert.Empty(t, set.Names())
}

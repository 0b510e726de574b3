// Package secrets holds installer credentials in guarded memory.
package secrets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/caarlos0/env/v11"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// credentialEnv maps the environment onto named fields
type credentialEnv struct {
	AgePrivateKey       string `env:"STATA_AGE_PRIVATE_KEY"`
	LicenseBlob         string `env:"STATA_LIC"`
	Serial              string `env:"stata_serial"`
	Code                string `env:"stata_code"`
	Authorization       string `env:"stata_authorization"`
	LicenseeName        string `env:"name"`
	LicenseeInstitution string `env:"institution"`
	URLBase             string `env:"STATA_URL_BASE"`
	URLPassword         string `env:"STATA_URL_PW"`
}

func (c *credentialEnv) values() map[entities.CredentialName]string {
	return map[entities.CredentialName]string{
		entities.CredAgePrivateKey:       c.AgePrivateKey,
		entities.CredLicenseBlob:         c.LicenseBlob,
		entities.CredSerial:              c.Serial,
		entities.CredCode:                c.Code,
		entities.CredAuthorization:       c.Authorization,
		entities.CredLicenseeName:        c.LicenseeName,
		entities.CredLicenseeInstitution: c.LicenseeInstitution,
		entities.CredURLBase:             c.URLBase,
		entities.CredURLPassword:         c.URLPassword,
	}
}

// CredentialSet is a sparse set of secrets sealed in memguard enclaves.
// Values are only reachable inside Open; formatting prints names only.
type CredentialSet struct {
	enclaves map[entities.CredentialName]*memguard.Enclave
}

// LoadCredentials reads every known credential through the environment accessor
func LoadCredentials(environment gateways.Environment) (*CredentialSet, error) {
	snapshot := make(map[string]string)
	for _, name := range entities.AllCredentialNames() {
		if v, ok := environment.Lookup(string(name)); ok {
			snapshot[string(name)] = v
		}
	}

	var parsed credentialEnv
	if err := env.ParseWithOptions(&parsed, env.Options{Environment: snapshot}); err != nil {
		return nil, fmt.Errorf("failed to read credentials from environment: %w", err)
	}

	return NewCredentialSet(parsed.values()), nil
}

// NewCredentialSet seals the non-empty values of a map
func NewCredentialSet(values map[entities.CredentialName]string) *CredentialSet {
	set := &CredentialSet{enclaves: make(map[entities.CredentialName]*memguard.Enclave)}
	for name, value := range values {
		// an empty variable counts as unset
		if value == "" {
			continue
		}
		set.enclaves[name] = memguard.NewEnclave([]byte(value))
	}
	return set
}

// Has reports whether a credential is set
func (c *CredentialSet) Has(name entities.CredentialName) bool {
	if c == nil {
		return false
	}
	_, ok := c.enclaves[name]
	return ok
}

// Open decrypts a credential for the duration of fn and wipes it afterwards
func (c *CredentialSet) Open(name entities.CredentialName, fn func(secret []byte) error) error {
	if !c.Has(name) {
		return fmt.Errorf("credential %s is not set", name)
	}

	buffer, err := c.enclaves[name].Open()
	if err != nil {
		return fmt.Errorf("failed to open credential %s: %w", name, err)
	}
	defer buffer.Destroy()

	return fn(buffer.Bytes())
}

// Names lists the credentials that are set, sorted
func (c *CredentialSet) Names() []entities.CredentialName {
	if c == nil {
		return nil
	}
	names := make([]entities.CredentialName, 0, len(c.enclaves))
	for name := range c.enclaves {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (c *CredentialSet) String() string {
	names := c.Names()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return "CredentialSet{" + strings.Join(parts, ", ") + "}"
}

// GoString keeps %#v from dumping the enclaves
func (c *CredentialSet) GoString() string {
	return c.String()
}

package entities

// CredentialName is the environment variable a secret is read from
type CredentialName string

// Credential names consumed by the installer
const (
	CredAgePrivateKey       CredentialName = "STATA_AGE_PRIVATE_KEY"
	CredLicenseBlob         CredentialName = "STATA_LIC"
	CredSerial              CredentialName = "stata_serial"
	CredCode                CredentialName = "stata_code"
	CredAuthorization       CredentialName = "stata_authorization"
	CredLicenseeName        CredentialName = "name"
	CredLicenseeInstitution CredentialName = "institution"
	CredURLBase             CredentialName = "STATA_URL_BASE"
	CredURLPassword         CredentialName = "STATA_URL_PW"
)

// LicenseFields are the five values the vendor license tool asks for, in prompt order
var LicenseFields = []CredentialName{
	CredSerial,
	CredCode,
	CredAuthorization,
	CredLicenseeName,
	CredLicenseeInstitution,
}

// AllCredentialNames lists every credential the installer may read
func AllCredentialNames() []CredentialName {
	return []CredentialName{
		CredAgePrivateKey,
		CredLicenseBlob,
		CredSerial,
		CredCode,
		CredAuthorization,
		CredLicenseeName,
		CredLicenseeInstitution,
		CredURLBase,
		CredURLPassword,
	}
}

package entities

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Profile holds the fixed paths, URLs and package names of a provisioning run
type Profile struct {
	SupportedVersions string
	Paths             ProfilePaths
	Download          ProfileDownload
	Dependencies      ProfileDependencies
	Addons            ProfileAddons
}

// ProfilePaths are the filesystem locations the installer touches
type ProfilePaths struct {
	InstallRoot      string // /usr/local/stata
	BinDir           string // /usr/local/bin
	TempDir          string // /tmp/statafiles
	AdoDir           string // /usr/local/ado
	AddonScratchDir  string // /tmp/statafiles_project
	LicenseFile      string // name inside InstallRoot
	EncryptedLicense string // name inside the working directory
	LogFile          string // name inside the working directory
}

// ProfileDownload describes where installers and licenses are fetched from
type ProfileDownload struct {
	Username              string
	EncryptedInstallerURL string // may contain {version}
	InstallerName         string // may contain {version}
	InstallerSHA256       string // optional pin, hex
	LicenseName           string
	TimeoutMinutes        int
}

// ProfileDependencies names the system packages the resolver manages
type ProfileDependencies struct {
	Required         []string
	EncryptionHelper string
	ThemeShim        string
	WindowManagers   []string
}

// ProfileAddons holds the sources of the optional extensions
type ProfileAddons struct {
	RequireSource    string
	RequirementsFile string
	SetrootSource    string
	ProjectArchive   string
}

// LicensePath is the absolute path of the license file
func (p *Profile) LicensePath() string {
	return filepath.Join(p.Paths.InstallRoot, p.Paths.LicenseFile)
}

// EncryptedLicensePath resolves the encrypted license relative to the working directory
func (p *Profile) EncryptedLicensePath(workingDir string) string {
	return filepath.Join(workingDir, p.Paths.EncryptedLicense)
}

// LogPath resolves the product log relative to the working directory
func (p *Profile) LogPath(workingDir string) string {
	return filepath.Join(workingDir, p.Paths.LogFile)
}

// InstallerPath is where the fetched archive is written for a version
func (p *Profile) InstallerPath(version int) string {
	return filepath.Join(p.Paths.TempDir, ExpandVersion(p.Download.InstallerName, version))
}

// EncryptedInstallerURL is the public URL of the encrypted archive for a version
func (p *Profile) EncryptedInstallerURL(version int) string {
	return ExpandVersion(p.Download.EncryptedInstallerURL, version)
}

// InstallerURL is the password-protected archive URL under urlBase
func (p *Profile) InstallerURL(urlBase string, version int) string {
	return JoinURL(urlBase, ExpandVersion(p.Download.InstallerName, version))
}

// LicenseURL is the password-protected license URL under urlBase
func (p *Profile) LicenseURL(urlBase string) string {
	return JoinURL(urlBase, p.Download.LicenseName)
}

// ExecutablePath is the path of an executable inside the install root
func (p *Profile) ExecutablePath(name string) string {
	return filepath.Join(p.Paths.InstallRoot, name)
}

// ExpandVersion substitutes {version} in a template
func ExpandVersion(template string, version int) string {
	return strings.ReplaceAll(template, "{version}", strconv.Itoa(version))
}

// JoinURL joins a base URL and a file name with exactly one slash
func JoinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}

// Package entities defines core domain models and data structures.
package entities

// InstallArtifact is the installer archive fetched for a non-cache install.
// It lives under the temp directory and is removed by the finalizer.
type InstallArtifact struct {
	Version int
	Source  InstallSource
	Path    string // e.g. /tmp/statafiles/Stata18Linux64.tar.gz
	Dir     string // directory the archive is unpacked into
}

package entities

import (
	"regexp"
	"time"
)

// PackageSnapshot is the system package listing captured before dependency installation
type PackageSnapshot struct {
	listing    string
	capturedAt time.Time
}

// NewPackageSnapshot wraps a raw package listing (dpkg -l output)
func NewPackageSnapshot(listing string, capturedAt time.Time) *PackageSnapshot {
	return &PackageSnapshot{listing: listing, capturedAt: capturedAt}
}

// Has reports whether the package name appears as a whole word in the listing
func (s *PackageSnapshot) Has(pkg string) bool {
	if s == nil || pkg == "" {
		return false
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(pkg) + `\b`)
	return re.MatchString(s.listing)
}

// MatchesAny reports whether any of the names appears as a whole word in the listing
func (s *PackageSnapshot) MatchesAny(names []string) bool {
	for _, name := range names {
		if s.Has(name) {
			return true
		}
	}
	return false
}

// CapturedAt returns when the listing was taken
func (s *PackageSnapshot) CapturedAt() time.Time {
	return s.capturedAt
}

// DependencyReport is what the dependency resolver hands to later stages
type DependencyReport struct {
	Snapshot *PackageSnapshot
	Queued   []string
	Missing  []string // required packages neither installed nor available
}

// InstalledThisRun reports whether the package was installed by the resolver
func (r *DependencyReport) InstalledThisRun(pkg string) bool {
	if r == nil {
		return false
	}
	for _, q := range r.Queued {
		if q == pkg {
			return true
		}
	}
	return false
}

// Present reports whether the package was there before or installed this run
func (r *DependencyReport) Present(pkg string) bool {
	if r == nil {
		return false
	}
	return r.Snapshot.Has(pkg) || r.InstalledThisRun(pkg)
}

package entities

import (
	"fmt"
	"sort"
	"strings"
)

// Edition is a product SKU; it decides which executables the PATH links point at
type Edition string

// Editions
const (
	EditionBE Edition = "be"
	EditionSE Edition = "se"
	EditionMP Edition = "mp"
)

// AllEditions lists every edition in CLI order
func AllEditions() []Edition {
	return []Edition{EditionBE, EditionSE, EditionMP}
}

// ParseEdition validates an edition name, ignoring case
func ParseEdition(s string) (Edition, error) {
	lower := strings.ToLower(s)
	for _, e := range AllEditions() {
		if string(e) == lower {
			return e, nil
		}
	}
	return "", NewConfigurationError(fmt.Sprintf("unexpected Stata edition: %q (expected one of %s)", s, joinValues(AllEditions())), nil)
}

func (e Edition) String() string { return string(e) }

// EditionExecutables names the console and GUI binaries of one edition
type EditionExecutables struct {
	Primary   string
	Alternate string
}

// editionTable maps each edition to its executable pair.
// Adding an edition is one entry here plus its constant.
var editionTable = map[Edition]EditionExecutables{
	EditionBE: {Primary: "stata", Alternate: "xstata"},
	EditionSE: {Primary: "stata-se", Alternate: "xstata-se"},
	EditionMP: {Primary: "stata-mp", Alternate: "xstata-mp"},
}

// Executables returns the executable pair for the edition
func (e Edition) Executables() (EditionExecutables, error) {
	exe, ok := editionTable[e]
	if !ok {
		return EditionExecutables{}, NewConfigurationError(fmt.Sprintf("unexpected Stata edition: %q", string(e)), nil)
	}
	return exe, nil
}

// Generic link names every edition points at its own executables
const (
	GenericPrimaryLink   = "stata"
	GenericAlternateLink = "xstata"
)

// EditionLinks returns link name -> executable name (relative to the install root)
// for the edition: the generic names plus the edition-specific names.
func EditionLinks(e Edition) (map[string]string, error) {
	exe, err := e.Executables()
	if err != nil {
		return nil, err
	}

	links := map[string]string{
		GenericPrimaryLink:   exe.Primary,
		GenericAlternateLink: exe.Alternate,
	}
	links[exe.Primary] = exe.Primary
	links[exe.Alternate] = exe.Alternate
	return links, nil
}

// StaleLinks returns the edition-specific link names owned by every other edition,
// sorted for stable command lines.
func StaleLinks(e Edition) ([]string, error) {
	own, err := EditionLinks(e)
	if err != nil {
		return nil, err
	}

	var stale []string
	for other, exe := range editionTable {
		if other == e {
			continue
		}
		for _, name := range []string{exe.Primary, exe.Alternate} {
			if _, mine := own[name]; !mine {
				stale = append(stale, name)
			}
		}
	}
	sort.Strings(stale)
	return stale, nil
}

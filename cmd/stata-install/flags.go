package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// enumValue is a string flag restricted to a fixed set of values
type enumValue struct {
	target          *string
	allowed         []string
	caseInsensitive bool
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue[T ~string](target *string, allowed []T, caseInsensitive bool) *enumValue {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return &enumValue{target: target, allowed: names, caseInsensitive: caseInsensitive}
}

func (e *enumValue) Set(s string) error {
	for _, a := range e.allowed {
		if a == s || (e.caseInsensitive && strings.EqualFold(a, s)) {
			*e.target = a
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(e.allowed, "|"))
}

func (e *enumValue) String() string {
	if e.target == nil {
		return ""
	}
	return *e.target
}

func (e *enumValue) Type() string {
	return strings.Join(e.allowed, "|")
}

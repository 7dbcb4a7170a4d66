package buildconfig

import (
	"fmt"
	"slices"
)

// EnvironmentModeKey is the process environment variable selecting the mode.
const EnvironmentModeKey = "NODE_ENV"

// EnvironmentMode distinguishes development and production builds. Values
// outside the two constants are carried through unchanged.
type EnvironmentMode string

const (
	ModeDevelopment EnvironmentMode = "development"
	ModeProduction  EnvironmentMode = "production"
)

var knownModes = []EnvironmentMode{ModeDevelopment, ModeProduction}

// LookupFunc matches os.LookupEnv so tests can inject the environment.
type LookupFunc func(key string) (string, bool)

// String returns the raw mode value.
func (m EnvironmentMode) String() string {
	return string(m)
}

// IsKnown reports whether the mode is one of the enumerated values.
func (m EnvironmentMode) IsKnown() bool {
	return slices.Contains(knownModes, m)
}

// ModeFromValue returns production for an empty value, otherwise the value as is.
func ModeFromValue(value string) EnvironmentMode {
	if value == "" {
		return ModeProduction
	}
	return EnvironmentMode(value)
}

// ResolveEnvironmentMode reads NODE_ENV through lookup. An unset or empty
// variable resolves to production; anything else is passed through without
// validation.
func ResolveEnvironmentMode(lookup LookupFunc) EnvironmentMode {
	value, _ := lookup(EnvironmentModeKey)
	return ModeFromValue(value)
}

// ParseEnvironmentMode is the strict form of ModeFromValue, rejecting values
// other than development and production.
func ParseEnvironmentMode(value string) (EnvironmentMode, error) {
	mode := ModeFromValue(value)
	if !mode.IsKnown() {
		return "", fmt.Errorf("%w: %q (expected one of %v)", ErrUnknownEnvironmentMode, value, knownModes)
	}
	return mode, nil
}

// ResolveEnvironmentModeStrict is ResolveEnvironmentMode with validation.
func ResolveEnvironmentModeStrict(lookup LookupFunc) (EnvironmentMode, error) {
	value, _ := lookup(EnvironmentModeKey)
	return ParseEnvironmentMode(value)
}

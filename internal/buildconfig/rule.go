package buildconfig

import (
	"fmt"
	"regexp"
)

// Pattern is a compiled path matcher that serialises as its source expression.
// The zero Pattern matches nothing.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern compiles expr into a Pattern.
func NewPattern(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return Pattern{re: re}, nil
}

// MustPattern is NewPattern for literals known to compile.
func MustPattern(expr string) Pattern {
	p, err := NewPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchString reports whether path matches the pattern.
func (p Pattern) MatchString(path string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(path)
}

// String returns the source expression.
func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

// IsZero lets json and yaml omit unset patterns.
func (p Pattern) IsZero() bool {
	return p.re == nil
}

// MarshalText implements encoding.TextMarshaler, used by both json and yaml.
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Rule tells the bundler which transformer handles the files it matches.
type Rule struct {
	Test    Pattern        `json:"test" yaml:"test"`
	Exclude Pattern        `json:"exclude,omitzero" yaml:"exclude,omitempty"`
	Loader  string         `json:"loader" yaml:"loader"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// Matches reports whether path is accepted by Test and not rejected by Exclude.
func (r Rule) Matches(path string) bool {
	return r.Test.MatchString(path) && !r.Exclude.MatchString(path)
}

// Presets returns the string entries of the "presets" option, if any.
func (r Rule) Presets() []string {
	raw, ok := r.Options["presets"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		presets := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				presets = append(presets, s)
			}
		}
		return presets
	default:
		return nil
	}
}

// Package pattern is the matching engine shared by content search and
// pattern-targeted writes. Patterns compile to a Matcher in one of three
// modes (literal, regex, fuzzy) or from a named preset; regex input is
// screened for catastrophic backtracking before it is compiled.
package pattern

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how a pattern string is interpreted.
type Mode int

const (
	ModeLiteral Mode = iota
	ModeRegex
	ModeFuzzy
	ModePreset
)

func (m Mode) String() string {
	switch m {
	case ModeRegex:
		return "regex"
	case ModeFuzzy:
		return "fuzzy"
	case ModePreset:
		return "preset"
	default:
		return "literal"
	}
}

// ParseMode maps a caller-supplied mode name to a Mode. Empty means literal.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "literal":
		return ModeLiteral, nil
	case "regex", "regexp":
		return ModeRegex, nil
	case "fuzzy":
		return ModeFuzzy, nil
	}
	return ModeLiteral, fmt.Errorf("unknown pattern mode %q (use literal, regex or fuzzy)", s)
}

// Defaults for Options.
const (
	DefaultTimeout    = 2 * time.Second
	DefaultMaxMatches = 1000
)

// Options tune compilation and matching.
type Options struct {
	IgnoreCase bool
	Timeout    time.Duration // per-match wall clock bound
	MaxMatches int           // per content scan
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxMatches <= 0 {
		o.MaxMatches = DefaultMaxMatches
	}
	return o
}

package pattern

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/lexandro/sandboxfs-mcp/fserr"
)

// Matcher is a compiled pattern. It is safe for concurrent use.
type Matcher struct {
	Source string // pattern as supplied, or the preset name
	Expr   string // regex actually compiled
	Mode   Mode

	re         *regexp2.Regexp
	maxMatches int
}

// MaxMatches is the cap applied by FindMatches.
func (m *Matcher) MaxMatches() int {
	return m.maxMatches
}

// Compile turns pattern into a Matcher. Literal patterns match the exact
// substring; regex patterns are screened by CheckSafety first; fuzzy
// patterns tolerate whitespace and line-break reformatting.
func Compile(pattern string, mode Mode, options Options) (*Matcher, error) {
	options = options.withDefaults()

	if pattern == "" {
		return nil, fserr.InvalidArgument("pattern must not be empty", "supply the text or expression to match")
	}

	var expr string
	switch mode {
	case ModeLiteral:
		expr = regexp2.Escape(pattern)
	case ModeRegex:
		if err := CheckSafety(pattern); err != nil {
			return nil, err
		}
		expr = pattern
	case ModeFuzzy:
		expr = fuzzyExpr(pattern)
		if expr == "" {
			return nil, fserr.InvalidArgument("fuzzy pattern contains only whitespace", "supply some non-blank text")
		}
	case ModePreset:
		return CompilePreset(pattern, options)
	default:
		return nil, fserr.InvalidArgument("unknown pattern mode", "use literal, regex or fuzzy")
	}

	return compile(pattern, expr, mode, options)
}

// CompilePreset compiles a named preset. Presets are trusted and skip the
// safety screen.
func CompilePreset(name string, options Options) (*Matcher, error) {
	options = options.withDefaults()
	preset, err := LookupPreset(name)
	if err != nil {
		return nil, fserr.InvalidArgument(err.Error(), "pick one of: "+strings.Join(PresetNames(), ", "))
	}
	return compile(preset.Name, preset.Expr, ModePreset, options)
}

func compile(source string, expr string, mode Mode, options Options) (*Matcher, error) {
	flags := regexp2.RegexOptions(regexp2.Multiline)
	if options.IgnoreCase {
		flags |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(expr, flags)
	if err != nil {
		return nil, fserr.InvalidPattern(err)
	}
	re.MatchTimeout = options.Timeout

	return &Matcher{
		Source:     source,
		Expr:       expr,
		Mode:       mode,
		re:         re,
		maxMatches: options.MaxMatches,
	}, nil
}

// fuzzyExpr escapes each word of pattern and joins words with \s+ and lines
// with \s*\n\s*. Blank lines collapse into the surrounding line break.
func fuzzyExpr(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(pattern, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp2.Escape(w)
		}
		lines = append(lines, strings.Join(words, `\s+`))
	}
	return strings.Join(lines, `\s*\r?\n\s*`)
}

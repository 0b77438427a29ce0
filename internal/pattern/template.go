// Package pattern turns bracketed path templates such as data/[SAMPLE]/counts.txt
// into matching rules and groups variable files by the template they follow.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/common"
)

// Mode controls how much of a path a template must cover.
type Mode string

// Match modes.
const (
	// MatchFull requires the template to describe the whole path.
	MatchFull Mode = "full"
	// MatchPrefix accepts any path that starts with a match, so a short
	// template can claim longer paths sharing its prefix.
	MatchPrefix Mode = "prefix"
)

// tokenWildcard matches one token value: any run of characters within a
// single path segment.
const tokenWildcard = `[^/]*`

var tokenPattern = regexp.MustCompile(`\[([A-Za-z0-9_]+)\]`)

// ParseMode converts a configuration value into a Mode. Empty means MatchFull.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchFull:
		return MatchFull, nil
	case MatchPrefix:
		return MatchPrefix, nil
	default:
		return "", fmt.Errorf("%w: unknown template match mode %q", common.ErrInvalidConfig, s)
	}
}

// Template is a compiled path template.
type Template struct {
	re     *regexp.Regexp
	source string
	// tokens are the distinct token names in order of first appearance.
	tokens []string
	// groups maps each capture group, in order, to its token name.
	groups []string
	mode   Mode
}

// Compile builds the matching rule for a template. Text outside brackets is
// matched literally. Each [NAME] becomes a capture group; a repeated name
// must bind the same value at every occurrence for Match to succeed.
func Compile(template string, mode Mode) (*Template, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("%w: template is empty", common.ErrInvalidTemplate)
	}
	if mode == "" {
		mode = MatchFull
	}

	t := &Template{source: template, mode: mode}
	seen := make(map[string]bool)

	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range tokenPattern.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		name := template[loc[2]:loc[3]]
		if seen[name] {
			b.WriteString("(" + tokenWildcard + ")")
		} else {
			seen[name] = true
			t.tokens = append(t.tokens, name)
			b.WriteString("(?P<" + name + ">" + tokenWildcard + ")")
		}
		t.groups = append(t.groups, name)
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(template[last:]))
	if mode == MatchFull {
		b.WriteString("$")
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidTemplate, template, err)
	}
	t.re = re
	return t, nil
}

// Literal builds a template that matches exactly one path.
func Literal(path string) *Template {
	return &Template{
		re:     regexp.MustCompile("^" + regexp.QuoteMeta(path) + "$"),
		source: path,
		mode:   MatchFull,
	}
}

// Source returns the template as the user wrote it.
func (t *Template) Source() string { return t.source }

// Regex returns the regular expression the template compiles to.
func (t *Template) Regex() string { return t.re.String() }

// Tokens returns the distinct token names in order of appearance.
func (t *Template) Tokens() []string {
	return append([]string(nil), t.tokens...)
}

// Match reports whether path follows the template and returns the value
// bound to each token. A path binding different values to a repeated token
// does not match.
func (t *Template) Match(path string) (map[string]string, bool) {
	m := t.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	values := make(map[string]string, len(t.tokens))
	for i, name := range t.groups {
		if prev, ok := values[name]; ok {
			if prev != m[i+1] {
				return nil, false
			}
			continue
		}
		values[name] = m[i+1]
	}
	return values, true
}

package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/CirroBio/cirro-annotation/internal/service"
)

// DefaultMaxMisses is how many consecutive templates may match nothing
// before the path is grouped on its own.
const DefaultMaxMisses = 3

// Partitioner groups variable files by asking the user for templates.
type Partitioner struct {
	prompter  service.Prompter
	notifier  service.Notifier
	mode      Mode
	maxMisses int
}

// Option configures a Partitioner.
type Option func(*Partitioner)

// WithMode sets the template match mode.
func WithMode(mode Mode) Option {
	return func(p *Partitioner) { p.mode = mode }
}

// WithMaxMisses sets the zero-match limit.
func WithMaxMisses(n int) Option {
	return func(p *Partitioner) {
		if n > 0 {
			p.maxMisses = n
		}
	}
}

// WithNotifier sets where warnings are shown.
func WithNotifier(n service.Notifier) Option {
	return func(p *Partitioner) { p.notifier = n }
}

// NewPartitioner creates a partitioner that asks questions through prompter.
func NewPartitioner(prompter service.Prompter, opts ...Option) *Partitioner {
	p := &Partitioner{
		prompter:  prompter,
		mode:      MatchFull,
		maxMisses: DefaultMaxMisses,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Partition repeatedly takes the first unclaimed path, asks for a template
// defaulting to it, and claims every remaining path the template matches.
// Each path ends up in exactly one group. Token names and descriptions
// entered for one group are offered again as defaults in later groups.
func (p *Partitioner) Partition(ctx context.Context, paths []string) ([]model.FileGroup, error) {
	remaining := append([]string(nil), paths...)
	known := make(map[string]model.Token)
	var groups []model.FileGroup

	for len(remaining) > 0 {
		first := remaining[0]

		tmpl, matched, err := p.claim(ctx, first, remaining)
		if err != nil {
			return nil, err
		}

		remaining = without(remaining, matched)

		group, err := p.describe(ctx, tmpl, matched, known)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)

		slog.Debug("Grouped variable files",
			"pattern", group.Pattern,
			"matched", len(group.MatchedPaths),
			"remaining", len(remaining))
	}

	return groups, nil
}

// claim asks for templates until one matches at least one remaining path.
// Each miss is warned as an ErrNoMatches; after maxMisses the path is
// claimed alone by a literal template.
func (p *Partitioner) claim(ctx context.Context, first string, remaining []string) (*Template, []string, error) {
	var lastErr error
	for misses := 0; misses < p.maxMisses; {
		answer, err := p.prompter.Text(ctx,
			fmt.Sprintf("File template for %s (mark varying parts as [TOKEN])", first), first)
		if err != nil {
			return nil, nil, err
		}

		tmpl, err := Compile(answer, p.mode)
		if err != nil {
			misses++
			lastErr = err
			p.warn(err.Error())
			continue
		}

		var matched []string
		for _, candidate := range remaining {
			if _, ok := tmpl.Match(candidate); ok {
				matched = append(matched, candidate)
			}
		}
		if len(matched) > 0 {
			return tmpl, matched, nil
		}

		misses++
		lastErr = fmt.Errorf("%w: %q (%d/%d)", common.ErrNoMatches, answer, misses, p.maxMisses)
		p.warn(lastErr.Error())
	}

	slog.Debug("Falling back to a literal template", "path", first, "error", lastErr)
	p.warn(fmt.Sprintf("Grouping %s on its own", first))
	return Literal(first), []string{first}, nil
}

func (p *Partitioner) describe(ctx context.Context, tmpl *Template, matched []string, known map[string]model.Token) (model.FileGroup, error) {
	group := model.FileGroup{
		Pattern:      tmpl.Source(),
		Regex:        tmpl.Regex(),
		Tokens:       []model.Token{},
		MatchedPaths: matched,
		Values:       make(map[string]map[string]string, len(matched)),
	}

	for _, m := range matched {
		values, _ := tmpl.Match(m)
		group.Values[m] = values
	}

	name, err := p.prompter.Text(ctx,
		fmt.Sprintf("Name for the %d file(s) matching %s", len(matched), tmpl.Source()),
		defaultGroupName(tmpl.Source()))
	if err != nil {
		return model.FileGroup{}, err
	}
	desc, err := p.prompter.Text(ctx, fmt.Sprintf("Description of %s", name), "")
	if err != nil {
		return model.FileGroup{}, err
	}
	group.Name = name
	group.Description = desc

	for _, token := range tmpl.Tokens() {
		prev, ok := known[token]
		if !ok {
			prev = model.Token{Name: token, DisplayName: token}
		}

		display, err := p.prompter.Text(ctx, fmt.Sprintf("Display name for token [%s]", token), prev.DisplayName)
		if err != nil {
			return model.FileGroup{}, err
		}
		tokenDesc, err := p.prompter.Text(ctx, fmt.Sprintf("Description for token [%s]", token), prev.Description)
		if err != nil {
			return model.FileGroup{}, err
		}

		meta := model.Token{Name: token, DisplayName: display, Description: tokenDesc}
		known[token] = meta
		group.Tokens = append(group.Tokens, meta)
	}

	return group, nil
}

func (p *Partitioner) warn(message string) {
	if p.notifier != nil {
		p.notifier.Warn(message)
		return
	}
	slog.Warn(message)
}

// defaultGroupName is the template's file name without extension or brackets.
func defaultGroupName(template string) string {
	base := path.Base(template)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return strings.NewReplacer("[", "", "]", "").Replace(base)
}

func without(paths, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[r] = true
	}
	out := paths[:0:0]
	for _, p := range paths {
		if !drop[p] {
			out = append(out, p)
		}
	}
	return out
}

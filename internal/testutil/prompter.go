// Package testutil provides scripted collaborators and fixtures for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnexpectedAnswer is returned when a scripted answer is not among the choices.
var ErrUnexpectedAnswer = errors.New("scripted answer not among choices")

// PromptKind identifies which prompter method was called.
type PromptKind string

// Prompt kinds.
const (
	KindSelect   PromptKind = "select"
	KindText     PromptKind = "text"
	KindCheckbox PromptKind = "checkbox"
)

// PromptCall records one question asked of a ScriptedPrompter.
type PromptCall struct {
	Kind     PromptKind
	Message  string
	Default  string
	Answer   string
	Choices  []string
	Defaults []string
	Picked   []string
}

// Answer is one scripted reply. Exactly one of the helpers below builds it.
type Answer struct {
	text    string
	choices []string
	accept  bool
	err     error
}

// Reply answers a Select or Text prompt with s.
func Reply(s string) Answer { return Answer{text: s} }

// Pick answers a Checkbox prompt with the given choices.
func Pick(choices ...string) Answer {
	if choices == nil {
		choices = []string{}
	}
	return Answer{choices: choices}
}

// Accept takes the prompt's default: the default text, the preselected
// checkbox entries, or the first select choice.
func Accept() Answer { return Answer{accept: true} }

// Fail makes the prompt return err.
func Fail(err error) Answer { return Answer{err: err} }

type rule struct {
	fragment string
	answers  []Answer
}

// ScriptedPrompter answers prompts from rules keyed by a message fragment.
// The first rule whose fragment occurs in the message and still has answers
// is consumed. Prompts matching no rule take their default.
type ScriptedPrompter struct {
	rules []*rule
	calls []PromptCall
	mu    sync.Mutex
}

// NewScriptedPrompter creates a prompter with no rules.
func NewScriptedPrompter() *ScriptedPrompter {
	return &ScriptedPrompter{}
}

// On queues answers for prompts whose message contains fragment.
func (s *ScriptedPrompter) On(fragment string, answers ...Answer) *ScriptedPrompter {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.fragment == fragment {
			r.answers = append(r.answers, answers...)
			return s
		}
	}
	s.rules = append(s.rules, &rule{fragment: fragment, answers: answers})
	return s
}

// Calls returns every prompt asked so far.
func (s *ScriptedPrompter) Calls() []PromptCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PromptCall(nil), s.calls...)
}

// CallsMatching returns the prompts whose message contains fragment.
func (s *ScriptedPrompter) CallsMatching(fragment string) []PromptCall {
	var out []PromptCall
	for _, c := range s.Calls() {
		if strings.Contains(c.Message, fragment) {
			out = append(out, c)
		}
	}
	return out
}

// Pending returns the fragments that still have unconsumed answers.
func (s *ScriptedPrompter) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.rules {
		if len(r.answers) > 0 {
			out = append(out, r.fragment)
		}
	}
	return out
}

func (s *ScriptedPrompter) next(message string) (Answer, bool) {
	for _, r := range s.rules {
		if len(r.answers) > 0 && strings.Contains(message, r.fragment) {
			a := r.answers[0]
			r.answers = r.answers[1:]
			return a, true
		}
	}
	return Answer{}, false
}

// Select implements service.Prompter.
func (s *ScriptedPrompter) Select(ctx context.Context, message string, choices []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	call := PromptCall{Kind: KindSelect, Message: message, Choices: append([]string(nil), choices...)}
	a, ok := s.next(message)
	switch {
	case ok && a.err != nil:
		s.calls = append(s.calls, call)
		return "", a.err
	case !ok || a.accept:
		if len(choices) == 0 {
			s.calls = append(s.calls, call)
			return "", fmt.Errorf("%w: %q has no choices", ErrUnexpectedAnswer, message)
		}
		call.Answer = choices[0]
	default:
		call.Answer = a.text
	}
	s.calls = append(s.calls, call)

	for _, c := range choices {
		if c == call.Answer {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q for %q", ErrUnexpectedAnswer, call.Answer, message)
}

// Text implements service.Prompter. An empty reply takes the default.
func (s *ScriptedPrompter) Text(ctx context.Context, message, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	call := PromptCall{Kind: KindText, Message: message, Default: def}
	a, ok := s.next(message)
	switch {
	case ok && a.err != nil:
		s.calls = append(s.calls, call)
		return "", a.err
	case !ok || a.accept || a.text == "":
		call.Answer = def
	default:
		call.Answer = a.text
	}
	s.calls = append(s.calls, call)
	return call.Answer, nil
}

// Checkbox implements service.Prompter. The result keeps the order of choices.
func (s *ScriptedPrompter) Checkbox(ctx context.Context, message string, choices, defaults []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	call := PromptCall{
		Kind:     KindCheckbox,
		Message:  message,
		Choices:  append([]string(nil), choices...),
		Defaults: append([]string(nil), defaults...),
	}
	a, ok := s.next(message)
	if ok && a.err != nil {
		s.calls = append(s.calls, call)
		return nil, a.err
	}

	wanted := defaults
	if ok && !a.accept {
		wanted = a.choices
	}

	set := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		set[w] = true
	}
	picked := make([]string, 0, len(wanted))
	for _, c := range choices {
		if set[c] {
			picked = append(picked, c)
			delete(set, c)
		}
	}
	call.Picked = picked
	s.calls = append(s.calls, call)

	if len(set) > 0 {
		return nil, fmt.Errorf("%w: %v for %q", ErrUnexpectedAnswer, wanted, message)
	}
	return picked, nil
}

// Notices collects Info/Warn/Success lines.
type Notices struct {
	Infos     []string
	Warnings  []string
	Successes []string
	mu        sync.Mutex
}

// Info records an informational line.
func (n *Notices) Info(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Infos = append(n.Infos, message)
}

// Warn records a warning line.
func (n *Notices) Warn(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Warnings = append(n.Warnings, message)
}

// Success records a success line.
func (n *Notices) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Successes = append(n.Successes, message)
}

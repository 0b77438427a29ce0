package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// Prompter implements service.Prompter on a line-oriented terminal.
type Prompter struct {
	writer io.Writer
	reader *LineReader
}

// NewCLIPrompter creates a new CLI prompter with the given reader and writer.
func NewCLIPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader: NewLineReader(reader),
		writer: writer,
	}
}

// Select lists the choices by number and accepts either a number, the exact
// choice, or a case-insensitive fragment that identifies a single choice.
func (p *Prompter) Select(ctx context.Context, message string, choices []string) (string, error) {
	if len(choices) == 0 {
		return "", fmt.Errorf("no choices for %q", message)
	}

	if _, err := fmt.Fprintln(p.writer, FormatPrompt(message)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	for i, c := range choices {
		if _, err := fmt.Fprintf(p.writer, "  [%d] %s\n", i+1, c); err != nil {
			return "", fmt.Errorf("failed to write choice: %w", err)
		}
	}

	for {
		input, err := p.ask(ctx, fmt.Sprintf("Choice [1-%d]", len(choices)))
		if err != nil {
			return "", err
		}

		if choice, ok := resolveChoice(input, choices); ok {
			return choice, nil
		}

		p.warn("Invalid choice. Please try again.")
	}
}

// Text asks for a line of text. An empty line accepts def.
func (p *Prompter) Text(ctx context.Context, message, def string) (string, error) {
	prompt := message
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", message, def)
	}

	input, err := p.ask(ctx, prompt)
	if err != nil {
		return "", err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}

// Checkbox lists the choices with the defaults marked. The answer is a list
// of numbers or ranges ("1,3-5"), "all", "none", or empty for the defaults.
func (p *Prompter) Checkbox(ctx context.Context, message string, choices, defaults []string) ([]string, error) {
	if len(choices) == 0 {
		return []string{}, nil
	}

	selected := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		selected[d] = true
	}

	if _, err := fmt.Fprintln(p.writer, FormatPrompt(message)); err != nil {
		return nil, fmt.Errorf("failed to write prompt: %w", err)
	}
	for i, c := range choices {
		mark := " "
		if selected[c] {
			mark = SuccessStyle.Render("x")
		}
		if _, err := fmt.Fprintf(p.writer, "  [%s] %d. %s\n", mark, i+1, c); err != nil {
			return nil, fmt.Errorf("failed to write choice: %w", err)
		}
	}

	for {
		input, err := p.ask(ctx, "Selection (numbers, ranges, all, none; enter keeps marked)")
		if err != nil {
			return nil, err
		}

		picked, err := parseSelection(input, len(choices))
		if err != nil {
			p.warn(err.Error())
			continue
		}

		result := make([]string, 0, len(choices))
		for i, c := range choices {
			if picked == nil && selected[c] || picked != nil && picked[i] {
				result = append(result, c)
			}
		}
		return result, nil
	}
}

// Info writes an informational line.
func (p *Prompter) Info(message string) {
	p.println(FormatInfo(message))
}

// Warn writes a warning line.
func (p *Prompter) Warn(message string) {
	p.println(FormatWarning(message))
}

// Success writes a success line.
func (p *Prompter) Success(message string) {
	p.println(FormatSuccess(message))
}

// Box writes content framed in a titled box.
func (p *Prompter) Box(title, content string) {
	p.println(RenderBox(title, content))
}

// Progress returns a progress bar drawing onto the prompter's writer.
func (p *Prompter) Progress(total int, description string) *progressbar.ProgressBar {
	return NewProgressBar(p.writer, total, description)
}

func (p *Prompter) ask(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.reader.ReadLine(ctx)
	if errors.Is(err, ErrInputCancelled) && ctx.Err() != nil {
		return "", ctx.Err()
	}
	return line, err
}

func (p *Prompter) warn(message string) {
	p.println(FormatError(message))
}

func (p *Prompter) println(line string) {
	if _, err := fmt.Fprintln(p.writer, line); err != nil {
		slog.Warn("Failed to write message", "error", err)
	}
}

// NewProgressBar builds the progress bar used for downloads and sampling.
func NewProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func resolveChoice(input string, choices []string) (string, bool) {
	if input == "" {
		return "", false
	}

	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(choices) {
			return choices[n-1], true
		}
		return "", false
	}

	for _, c := range choices {
		if c == input {
			return c, true
		}
	}

	lower := strings.ToLower(input)
	match := ""
	for _, c := range choices {
		if strings.Contains(strings.ToLower(c), lower) {
			if match != "" {
				return "", false
			}
			match = c
		}
	}
	return match, match != ""
}

// parseSelection returns nil for an empty answer (keep defaults).
func parseSelection(input string, n int) (map[int]bool, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	switch input {
	case "":
		return nil, nil
	case "none":
		return map[int]bool{}, nil
	case "all":
		all := make(map[int]bool, n)
		for i := 0; i < n; i++ {
			all[i] = true
		}
		return all, nil
	}

	picked := make(map[int]bool)
	fields := strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' })
	for _, f := range fields {
		lo, hi := f, f
		if i := strings.Index(f, "-"); i > 0 {
			lo, hi = f[:i], f[i+1:]
		}
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", f)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", f)
		}
		if start < 1 || end > n || start > end {
			return nil, fmt.Errorf("selection %q out of range 1-%d", f, n)
		}
		for i := start; i <= end; i++ {
			picked[i-1] = true
		}
	}
	return picked, nil
}

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIPrompter_Select(t *testing.T) {
	choices := []string{"Data Core Development (p-1)", "BTC-Pilot-POC (p-2)", "Sandbox (p-3)"}

	tests := []struct {
		name     string
		input    string
		expected string
		wantWarn bool
	}{
		{name: "by number", input: "2\n", expected: "BTC-Pilot-POC (p-2)"},
		{name: "exact text", input: "Sandbox (p-3)\n", expected: "Sandbox (p-3)"},
		{name: "unique fragment", input: "pilot\n", expected: "BTC-Pilot-POC (p-2)"},
		{name: "out of range then valid", input: "7\n1\n", expected: "Data Core Development (p-1)", wantWarn: true},
		{name: "ambiguous fragment then valid", input: "p-\n3\n", expected: "Sandbox (p-3)", wantWarn: true},
		{name: "empty then valid", input: "\n1\n", expected: "Data Core Development (p-1)", wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			p := NewCLIPrompter(strings.NewReader(tt.input), &output)

			got, err := p.Select(context.Background(), "Select a project", choices)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			out := output.String()
			assert.Contains(t, out, "Select a project")
			assert.Contains(t, out, "[3] Sandbox (p-3)")
			if tt.wantWarn {
				assert.Contains(t, out, "Invalid choice")
			} else {
				assert.NotContains(t, out, "Invalid choice")
			}
		})
	}
}

func TestCLIPrompter_SelectNoChoices(t *testing.T) {
	p := NewCLIPrompter(strings.NewReader("1\n"), &bytes.Buffer{})
	_, err := p.Select(context.Background(), "Pick", nil)
	assert.Error(t, err)
}

func TestCLIPrompter_Text(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		def      string
		expected string
	}{
		{name: "accept default", input: "\n", def: "counts.txt", expected: "counts.txt"},
		{name: "override default", input: "genes.csv\n", def: "counts.txt", expected: "genes.csv"},
		{name: "trims whitespace", input: "  Sample ID  \n", def: "", expected: "Sample ID"},
		{name: "last line without newline", input: "final", def: "x", expected: "final"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			p := NewCLIPrompter(strings.NewReader(tt.input), &output)

			got, err := p.Text(context.Background(), "Output file", tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			if tt.def != "" {
				assert.Contains(t, output.String(), "["+tt.def+"]")
			}
		})
	}
}

func TestCLIPrompter_TextInputClosed(t *testing.T) {
	p := NewCLIPrompter(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.Text(context.Background(), "Name", "x")
	assert.ErrorIs(t, err, ErrInputClosed)
}

func TestCLIPrompter_Checkbox(t *testing.T) {
	choices := []string{"a.csv", "b.csv", "c.csv", "d.csv"}

	tests := []struct {
		name     string
		input    string
		defaults []string
		expected []string
	}{
		{name: "keep defaults", input: "\n", defaults: []string{"c.csv", "a.csv"}, expected: []string{"a.csv", "c.csv"}},
		{name: "numbers", input: "4,2\n", expected: []string{"b.csv", "d.csv"}},
		{name: "range", input: "2-3\n", expected: []string{"b.csv", "c.csv"}},
		{name: "all", input: "all\n", expected: choices},
		{name: "none overrides defaults", input: "none\n", defaults: []string{"a.csv"}, expected: []string{}},
		{name: "invalid then valid", input: "9\nx\n1 3\n", expected: []string{"a.csv", "c.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			p := NewCLIPrompter(strings.NewReader(tt.input), &output)

			got, err := p.Checkbox(context.Background(), "Select variable files", choices, tt.defaults)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCLIPrompter_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewCLIPrompter(strings.NewReader("1\n"), &bytes.Buffer{})

	_, err := p.Select(ctx, "Pick", []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.Text(ctx, "Name", "")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.Checkbox(ctx, "Files", []string{"a"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCLIPrompter_Notices(t *testing.T) {
	var output bytes.Buffer
	p := NewCLIPrompter(strings.NewReader(""), &output)

	p.Info("downloading")
	p.Warn("no matches")
	p.Success("wrote manifest.json")
	p.Box("Summary", "2 files")

	out := output.String()
	assert.Contains(t, out, "downloading")
	assert.Contains(t, out, "no matches")
	assert.Contains(t, out, "wrote manifest.json")
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "2 files")
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  map[int]bool
		expectErr bool
	}{
		{name: "empty keeps defaults", input: "", expected: nil},
		{name: "single", input: "1", expected: map[int]bool{0: true}},
		{name: "mixed", input: "1, 3-4", expected: map[int]bool{0: true, 2: true, 3: true}},
		{name: "reversed range", input: "3-1", expectErr: true},
		{name: "negative", input: "-1", expectErr: true},
		{name: "word", input: "some", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSelection(tt.input, 4)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Key", "Columns"}, [][]string{{"gene_id", "Gene ID, gene-id"}})
	assert.Contains(t, out, "Key")
	assert.Contains(t, out, "gene_id")
	assert.Contains(t, out, "Gene ID, gene-id")
}

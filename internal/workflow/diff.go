package workflow

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff of the exported files between two documents.
// Unchanged files are left out; identical documents give "".
func Diff(from, to map[string]any) (string, error) {
	if from == nil {
		from = blankDocument()
	}
	before, err := Files(from)
	if err != nil {
		return "", err
	}
	after, err := Files(to)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, f := range after {
		old := before[i].Text
		if old == f.Text {
			continue
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(old),
			B:        difflib.SplitLines(f.Text),
			FromFile: "a/" + f.Name,
			ToFile:   "b/" + f.Name,
			Context:  3,
		})
		if err != nil {
			return "", fmt.Errorf("failed to diff %s: %w", f.Name, err)
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

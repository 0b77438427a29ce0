// Package manifest assembles the annotation manifests that tell downstream
// processing which files and columns are standard and how to reshape the rest.
package manifest

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/discovery"
	"github.com/CirroBio/cirro-annotation/internal/mapping"
	"github.com/CirroBio/cirro-annotation/internal/model"
)

// FileName is the manifest written into the dataset directory.
const FileName = "manifest.json"

// dataSegment is the leading path segment rewritten to model.DataDirVariable.
const dataSegment = "data"

// Input is everything the annotate flow has collected by the end of a run.
type Input struct {
	// Standard maps the selected standard columns to display metadata.
	Standard      model.ColumnMapping
	StandardFiles []model.FileRecord
	Groups        []model.FileGroup
	// Files holds the header of every discovered file, keyed by path.
	Files        map[string]model.FileRecord
	ColumnGroups []model.ColumnGroup
}

// Shape is the column layout of one transform before it is described.
type Shape struct {
	Melt    *model.Melt
	Columns []string
}

// ShapeColumns splits a file's columns (raw names) into the standard columns
// it carries and, when every other column belongs to one column group, a
// melt instruction for that group. Both lists are sorted sanitized keys and
// never share a column.
func ShapeColumns(columns []string, standard model.ColumnMapping, groups []model.ColumnGroup) Shape {
	keys := discovery.KeysOf(columns)

	shape := Shape{Columns: []string{}}
	var rest []string
	for _, k := range keys {
		if _, ok := standard[k]; ok {
			shape.Columns = append(shape.Columns, k)
		} else {
			rest = append(rest, k)
		}
	}
	sort.Strings(shape.Columns)

	if len(rest) == 0 {
		return shape
	}

	for _, g := range groups {
		if !containsAll(g, rest) {
			continue
		}
		sort.Strings(rest)
		shape.Melt = &model.Melt{
			Key:              g.Name,
			KeyDescription:   g.Description,
			Value:            g.ValueName,
			ValueDescription: g.ValueDescription,
			Columns:          rest,
		}
		break
	}
	return shape
}

// GroupColumns returns the union of the columns of every file in the group,
// in first-seen order.
func GroupColumns(group model.FileGroup, files map[string]model.FileRecord) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range group.MatchedPaths {
		for _, c := range files[p].Columns {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// SourcePattern rewrites a leading "data" segment of a variable file
// template to the data directory variable.
func SourcePattern(template string) string {
	if template == dataSegment {
		return model.DataDirVariable
	}
	if strings.HasPrefix(template, dataSegment+"/") {
		return model.DataDirVariable + template[len(dataSegment):]
	}
	return template
}

// DefaultOutput is the last segment of a path, used as the output file default.
func DefaultOutput(p string) string {
	return path.Base(p)
}

// DefaultName is the last path segment without its extensions.
func DefaultName(p string) string {
	base := path.Base(p)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// BuildSummary produces the files/columns manifest written by the summary flow.
func BuildSummary(in Input, ungrouped []string) model.SummaryManifest {
	standardFiles := in.StandardFiles
	if standardFiles == nil {
		standardFiles = []model.FileRecord{}
	}
	groups := in.Groups
	if groups == nil {
		groups = []model.FileGroup{}
	}
	columnGroups := in.ColumnGroups
	if columnGroups == nil {
		columnGroups = []model.ColumnGroup{}
	}
	standard := in.Standard
	if standard == nil {
		standard = model.ColumnMapping{}
	}

	return model.SummaryManifest{
		Files: model.FilePartition{
			Standard: standardFiles,
			Variable: groups,
		},
		Columns: model.ColumnPartition{
			Standard:  standard,
			Variable:  columnGroups,
			Ungrouped: ungrouped,
		},
	}
}

// Write stores a manifest document in dir and returns its path.
func Write(dir string, doc any) (string, error) {
	p := filepath.Join(dir, FileName)
	if err := mapping.WriteJSON(p, doc); err != nil {
		return "", err
	}
	return p, nil
}

func containsAll(g model.ColumnGroup, keys []string) bool {
	for _, k := range keys {
		if !g.Contains(k) {
			return false
		}
	}
	return true
}

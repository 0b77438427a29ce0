package manifest

import (
	"context"
	"fmt"

	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/CirroBio/cirro-annotation/internal/service"
)

// Builder asks for the per-transform details and assembles the transform manifest.
type Builder struct {
	prompter service.Prompter
}

// NewBuilder creates a builder that prompts through prompter.
func NewBuilder(prompter service.Prompter) *Builder {
	return &Builder{prompter: prompter}
}

// BuildTransforms produces {commands: [standard, variable]}. Standard files get
// an output name, a display name and a description; variable file groups get
// an output name and reuse the group's name and description.
func (b *Builder) BuildTransforms(ctx context.Context, in Input) (model.TransformManifest, error) {
	var doc model.TransformManifest
	doc.Commands[0] = []model.Transform{}
	doc.Commands[1] = []model.Transform{}

	for _, f := range in.StandardFiles {
		shape := ShapeColumns(f.Columns, in.Standard, in.ColumnGroups)

		output, err := b.prompter.Text(ctx, fmt.Sprintf("Output file for %s", f.Path), DefaultOutput(f.Path))
		if err != nil {
			return model.TransformManifest{}, err
		}
		name, err := b.prompter.Text(ctx, fmt.Sprintf("Name for %s", f.Path), DefaultName(f.Path))
		if err != nil {
			return model.TransformManifest{}, err
		}
		desc, err := b.prompter.Text(ctx, fmt.Sprintf("Description of %s", f.Path), "")
		if err != nil {
			return model.TransformManifest{}, err
		}

		doc.Commands[0] = append(doc.Commands[0], model.Transform{
			Source:      f.Path,
			Output:      output,
			Name:        name,
			Description: desc,
			Columns:     shape.Columns,
			Melt:        shape.Melt,
		})
	}

	for _, g := range in.Groups {
		shape := ShapeColumns(GroupColumns(g, in.Files), in.Standard, in.ColumnGroups)

		output, err := b.prompter.Text(ctx, fmt.Sprintf("Output file for %s", g.Pattern), DefaultOutput(g.Pattern))
		if err != nil {
			return model.TransformManifest{}, err
		}

		doc.Commands[1] = append(doc.Commands[1], model.Transform{
			Source:      SourcePattern(g.Pattern),
			Output:      output,
			Name:        g.Name,
			Description: g.Description,
			Regex:       g.Regex,
			Tokens:      g.Tokens,
			Columns:     shape.Columns,
			Melt:        shape.Melt,
		})
	}

	return doc, nil
}

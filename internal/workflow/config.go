// Package workflow holds the state behind the workflow configuration form:
// the typed config sections, the undo/redo editor, and the zip export.
package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/CirroBio/cirro-annotation/internal/common"
)

// Section identifies one variant of the workflow configuration.
type Section int

// Sections in the order they are loaded and dumped.
const (
	SectionSource Section = iota
	SectionParams
	SectionOutputs
	SectionInput
	SectionPreprocess
	SectionCompute
)

// Sections lists every section.
var Sections = []Section{
	SectionSource,
	SectionParams,
	SectionOutputs,
	SectionInput,
	SectionPreprocess,
	SectionCompute,
}

// Top-level keys of the configuration document.
const (
	KeyDynamo     = "dynamo"
	KeyForm       = "form"
	KeyInput      = "input"
	KeyOutput     = "output"
	KeyCompute    = "compute"
	KeyPreprocess = "preprocess"
)

// Keys lists the document keys in export order.
var Keys = []string{KeyDynamo, KeyForm, KeyInput, KeyOutput, KeyCompute, KeyPreprocess}

func (s Section) String() string {
	switch s {
	case SectionSource:
		return "source"
	case SectionParams:
		return "params"
	case SectionOutputs:
		return "outputs"
	case SectionInput:
		return "input"
	case SectionPreprocess:
		return "preprocess"
	case SectionCompute:
		return "compute"
	default:
		return fmt.Sprintf("section(%d)", int(s))
	}
}

// Key is the document key the section reads and writes.
func (s Section) Key() string {
	switch s {
	case SectionSource:
		return KeyDynamo
	case SectionParams:
		return KeyForm
	case SectionOutputs:
		return KeyOutput
	case SectionInput:
		return KeyInput
	case SectionPreprocess:
		return KeyPreprocess
	case SectionCompute:
		return KeyCompute
	default:
		return ""
	}
}

// ParamsConfig is the parameter form shown when the workflow is launched.
type ParamsConfig struct {
	Form map[string]any
}

// OutputsConfig describes how workflow outputs are catalogued.
type OutputsConfig struct {
	Output map[string]any
}

// InputConfig maps form values to workflow parameters.
type InputConfig struct {
	Input map[string]any
}

// PreprocessConfig is the preprocess.py script run before the workflow.
type PreprocessConfig struct {
	Script string
}

// ComputeConfig is the executor configuration file.
type ComputeConfig struct {
	Config string
}

// Config is the typed form state, one field per section.
type Config struct {
	Params     ParamsConfig
	Outputs    OutputsConfig
	Input      InputConfig
	Preprocess PreprocessConfig
	Compute    ComputeConfig
	Source     SourceConfig
}

// DefaultDocument is the configuration used before anything is edited or
// imported.
func DefaultDocument() map[string]any {
	return map[string]any{
		KeyDynamo:     map[string]any{"code": map[string]any{}},
		KeyForm:       map[string]any{"form": map[string]any{}, "ui": map[string]any{}},
		KeyInput:      map[string]any{},
		KeyOutput:     map[string]any{},
		KeyCompute:    "",
		KeyPreprocess: "",
	}
}

// blankDocument is the skeleton every dump starts from.
func blankDocument() map[string]any {
	return map[string]any{
		KeyDynamo:     map[string]any{"code": map[string]any{}},
		KeyForm:       map[string]any{},
		KeyInput:      map[string]any{},
		KeyOutput:     map[string]any{},
		KeyCompute:    "",
		KeyPreprocess: "",
	}
}

// Load builds the typed state from a configuration document. Missing values
// take their defaults.
func Load(doc map[string]any) (*Config, error) {
	c := &Config{}
	for _, section := range Sections {
		if err := c.LoadSection(section, doc); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadSection reads one section from doc.
func (c *Config) LoadSection(section Section, doc map[string]any) error {
	switch section {
	case SectionSource:
		c.Source.load(doc)
	case SectionParams:
		c.Params.Form = objectAt(doc, KeyForm)
	case SectionOutputs:
		c.Outputs.Output = objectAt(doc, KeyOutput)
	case SectionInput:
		c.Input.Input = objectAt(doc, KeyInput)
	case SectionPreprocess:
		c.Preprocess.Script = stringAt(doc, KeyPreprocess)
	case SectionCompute:
		c.Compute.Config = stringAt(doc, KeyCompute)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnknownSection, section)
	}
	return nil
}

// Dump renders the typed state as a configuration document.
func (c *Config) Dump() (map[string]any, error) {
	doc := blankDocument()
	for _, section := range Sections {
		if err := c.DumpSection(section, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// DumpSection writes one section into doc.
func (c *Config) DumpSection(section Section, doc map[string]any) error {
	switch section {
	case SectionSource:
		return c.Source.dump(doc)
	case SectionParams:
		doc[KeyForm] = clone(c.Params.Form)
	case SectionOutputs:
		doc[KeyOutput] = clone(c.Outputs.Output)
	case SectionInput:
		doc[KeyInput] = clone(c.Input.Input)
	case SectionPreprocess:
		doc[KeyPreprocess] = c.Preprocess.Script
	case SectionCompute:
		doc[KeyCompute] = c.Compute.Config
	default:
		return fmt.Errorf("%w: %s", common.ErrUnknownSection, section)
	}
	return nil
}

// Normalize round-trips doc through the typed state so defaults are filled
// in and unknown source keys are kept in place.
func Normalize(doc map[string]any) (map[string]any, error) {
	c, err := Load(doc)
	if err != nil {
		return nil, err
	}
	return c.Dump()
}

// Equal reports whether two documents serialize identically.
func Equal(a, b map[string]any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ab) == string(bb)
}

func objectAt(doc map[string]any, key string) map[string]any {
	if m, ok := doc[key].(map[string]any); ok {
		return clone(m)
	}
	return map[string]any{}
}

func stringAt(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

// clone deep-copies a JSON document.
func clone(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return v
	}
}

package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/ohler55/ojg/jp"
)

// ErrInvalidValue is returned when a field value is outside its allowed set.
var ErrInvalidValue = errors.New("invalid value")

// Field names one editable attribute of the workflow source.
type Field int

// Source fields, in form order.
const (
	FieldID Field = iota
	FieldName
	FieldDesc
	FieldExecutor
	FieldURI
	FieldScript
	FieldVersion
	FieldRepository
	FieldDocumentationURL
	FieldParentProcessIDs
	FieldChildProcessIDs
)

// Fields lists every source field in form order.
var Fields = []Field{
	FieldID,
	FieldName,
	FieldDesc,
	FieldExecutor,
	FieldURI,
	FieldScript,
	FieldVersion,
	FieldRepository,
	FieldDocumentationURL,
	FieldParentProcessIDs,
	FieldChildProcessIDs,
}

// Allowed values for the choice fields.
var (
	Executors    = []string{string(model.ExecutorNextflow), string(model.ExecutorCromwell)}
	Repositories = []string{"GITHUBPUBLIC", "GITHUBPRIVATE"}
)

type fieldSpec struct {
	path  jp.Expr
	def   string
	key   string
	label string
	help  string
	code  bool
	list  bool
}

var fieldSpecs = map[Field]fieldSpec{
	FieldID: {
		key: "id", def: "unique-workflow-id", label: "Workflow ID",
		help: "Must be all lowercase alphanumeric with dashes",
	},
	FieldName: {
		key: "name", def: "My Workflow Name", label: "Workflow Name",
		help: "Short name used to display the workflow in a list",
	},
	FieldDesc: {
		key: "desc", def: "Description of my workflow", label: "Workflow Description",
		help: "Longer description providing more details on the workflow (8-15 words)",
	},
	FieldExecutor: {
		key: "executor", def: string(model.ExecutorNextflow), label: "Workflow Executor",
		help: "NEXTFLOW or CROMWELL",
	},
	FieldDocumentationURL: {
		key: "documentationUrl", label: "Documentation URL",
	},
	FieldChildProcessIDs: {
		key: "childProcessIds", label: "Child Processes", list: true,
		help: "Child processes can be run on the datasets produced as outputs by this workflow",
	},
	FieldParentProcessIDs: {
		key: "parentProcessIds", label: "Parent Processes", list: true,
		help: "Datasets produced by parent processes can be used as inputs to run this workflow",
	},
	FieldRepository: {
		key: "repository", def: "GITHUBPUBLIC", label: "Public / Private", code: true,
		help: "GITHUBPUBLIC or GITHUBPRIVATE",
	},
	FieldScript: {
		key: "script", def: "main.nf", label: "Workflow Entrypoint", code: true,
		help: "Script from the repository used to launch the workflow",
	},
	FieldURI: {
		key: "uri", def: "org/repo", label: "Workflow Repository (GitHub)", code: true,
		help: "For private workflows, install the CirroBio GitHub app to provide access",
	},
	FieldVersion: {
		key: "version", def: "main", label: "Repository Version", code: true,
		help: "Supports branch names, commits, tags, and releases.",
	},
}

func init() {
	for f, spec := range fieldSpecs {
		if spec.code {
			spec.path = jp.C(KeyDynamo).C("code").C(spec.key)
		} else {
			spec.path = jp.C(KeyDynamo).C(spec.key)
		}
		fieldSpecs[f] = spec
	}
}

// ParseField looks up a field by its document key, e.g. "documentationUrl".
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if fieldSpecs[f].key == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", common.ErrUnknownField, name)
}

func (f Field) String() string {
	if spec, ok := fieldSpecs[f]; ok {
		return spec.key
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Label is the form label for the field.
func (f Field) Label() string { return fieldSpecs[f].label }

// Help is the hint shown beneath the field.
func (f Field) Help() string { return fieldSpecs[f].help }

// IsList reports whether the field holds process IDs.
func (f Field) IsList() bool { return fieldSpecs[f].list }

// SourceConfig is the workflow source information stored under "dynamo".
type SourceConfig struct {
	// Extra and ExtraCode keep keys the form does not edit.
	Extra            map[string]any
	ExtraCode        map[string]any
	ID               string
	Name             string
	Desc             string
	Executor         string
	DocumentationURL string
	Repository       string
	Script           string
	URI              string
	Version          string
	ChildProcessIDs  []string
	ParentProcessIDs []string
}

func (s *SourceConfig) load(doc map[string]any) {
	for _, f := range Fields {
		spec := fieldSpecs[f]
		value := spec.path.First(doc)
		if spec.list {
			*s.list(f) = toStrings(value)
			continue
		}
		str, ok := value.(string)
		if !ok {
			str = spec.def
		}
		*s.str(f) = str
	}

	s.Extra = map[string]any{}
	s.ExtraCode = map[string]any{}
	dynamo, _ := doc[KeyDynamo].(map[string]any)
	for k, v := range dynamo {
		if k == "code" {
			if code, ok := v.(map[string]any); ok {
				for ck, cv := range code {
					if !isFieldKey(ck, true) {
						s.ExtraCode[ck] = cloneValue(cv)
					}
				}
			}
			continue
		}
		if !isFieldKey(k, false) {
			s.Extra[k] = cloneValue(v)
		}
	}
}

func (s *SourceConfig) dump(doc map[string]any) error {
	dynamo := clone(s.Extra)
	dynamo["code"] = clone(s.ExtraCode)
	doc[KeyDynamo] = dynamo

	for _, f := range Fields {
		spec := fieldSpecs[f]
		var value any
		switch {
		case spec.list:
			value = cloneValue(*s.list(f))
		case f == FieldExecutor:
			value = strings.ToUpper(s.Executor)
		default:
			value = *s.str(f)
		}
		if err := spec.path.Set(doc, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", spec.key, err)
		}
	}
	return nil
}

// Get returns the field value as shown in the form. Process lists are
// joined with ", ".
func (s *SourceConfig) Get(f Field) string {
	if f.IsList() {
		return strings.Join(*s.list(f), ", ")
	}
	if p := s.str(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns a field from form input. Process list fields take a comma
// separated list of process labels or IDs.
func (s *SourceConfig) Set(f Field, value string) error {
	if _, ok := fieldSpecs[f]; !ok {
		return fmt.Errorf("%w: %s", common.ErrUnknownField, f)
	}

	if f.IsList() {
		var labels []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				labels = append(labels, part)
			}
		}
		return s.SetProcesses(f, labels)
	}

	switch f {
	case FieldExecutor:
		value = strings.ToUpper(strings.TrimSpace(value))
		if !contains(Executors, value) {
			return fmt.Errorf("%w: executor must be one of %s, got %q",
				ErrInvalidValue, strings.Join(Executors, ", "), value)
		}
	case FieldRepository:
		value = strings.ToUpper(strings.TrimSpace(value))
		if !contains(Repositories, value) {
			return fmt.Errorf("%w: repository must be one of %s, got %q",
				ErrInvalidValue, strings.Join(Repositories, ", "), value)
		}
	}
	*s.str(f) = value
	return nil
}

// SetByName assigns the field whose document key is name.
func (s *SourceConfig) SetByName(name, value string) error {
	f, err := ParseField(name)
	if err != nil {
		return err
	}
	return s.Set(f, value)
}

// SetProcesses stores the IDs parsed from process labels.
func (s *SourceConfig) SetProcesses(f Field, labels []string) error {
	if !f.IsList() {
		return fmt.Errorf("%w: %s is not a process list", common.ErrUnknownField, f)
	}
	ids := make([]string, 0, len(labels))
	for _, label := range labels {
		ids = append(ids, ProcessID(label))
	}
	*s.list(f) = ids
	return nil
}

func (s *SourceConfig) str(f Field) *string {
	switch f {
	case FieldID:
		return &s.ID
	case FieldName:
		return &s.Name
	case FieldDesc:
		return &s.Desc
	case FieldExecutor:
		return &s.Executor
	case FieldDocumentationURL:
		return &s.DocumentationURL
	case FieldRepository:
		return &s.Repository
	case FieldScript:
		return &s.Script
	case FieldURI:
		return &s.URI
	case FieldVersion:
		return &s.Version
	default:
		return nil
	}
}

func (s *SourceConfig) list(f Field) *[]string {
	if f == FieldChildProcessIDs {
		return &s.ChildProcessIDs
	}
	return &s.ParentProcessIDs
}

// ProcessID extracts the ID from a "Name (id)" label. Bare IDs pass through.
func ProcessID(label string) string {
	if i := strings.LastIndex(label, " ("); i >= 0 {
		label = label[i+2:]
	}
	return strings.TrimRight(label, ")")
}

// ProcessLabels renders processes as sorted "Name (id)" labels.
func ProcessLabels(processes []model.Process) []string {
	labels := make([]string, 0, len(processes))
	for _, p := range processes {
		labels = append(labels, p.Label())
	}
	sort.Strings(labels)
	return labels
}

// SelectedLabels returns the labels whose process ID is in ids.
func SelectedLabels(labels, ids []string) []string {
	var out []string
	for _, label := range labels {
		if contains(ids, ProcessID(label)) {
			out = append(out, label)
		}
	}
	return out
}

func isFieldKey(key string, code bool) bool {
	for _, spec := range fieldSpecs {
		if spec.key == key && spec.code == code {
			return true
		}
	}
	return false
}

func toStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, t...)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package model

// DataDirVariable replaces the literal leading "data" segment in variable file sources.
const DataDirVariable = "${DATA_DIR}"

// Melt describes how wide columns are reshaped into key/value pairs.
type Melt struct {
	Key              string   `json:"key"`
	KeyDescription   string   `json:"key_description"`
	Value            string   `json:"value"`
	ValueDescription string   `json:"value_description"`
	Columns          []string `json:"columns"`
}

// Transform is one output file produced from a source file or file pattern.
type Transform struct {
	Melt        *Melt    `json:"melt,omitempty"`
	Source      string   `json:"source"`
	Output      string   `json:"output"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Regex       string   `json:"regex,omitempty"`
	Columns     []string `json:"columns"`
	Tokens      []Token  `json:"tokens,omitempty"`
}

// TransformManifest is written by the transform flow. Commands[0] holds the
// standard file transforms and Commands[1] the variable file transforms.
type TransformManifest struct {
	Commands [2][]Transform `json:"commands"`
}

// FilePartition splits the dataset's files into standard and variable sets.
type FilePartition struct {
	Standard []FileRecord `json:"standard"`
	Variable []FileGroup  `json:"variable"`
}

// ColumnPartition splits the column vocabulary into standard and variable sets.
type ColumnPartition struct {
	Standard ColumnMapping `json:"standard"`
	Variable []ColumnGroup `json:"variable"`
	// Ungrouped lists variable columns the user left out of every group.
	Ungrouped []string `json:"ungrouped,omitempty"`
}

// SummaryManifest is written by the summary flow.
type SummaryManifest struct {
	Files   FilePartition   `json:"files"`
	Columns ColumnPartition `json:"columns"`
}

package model

// FileRecord is a file found during discovery along with its header row.
type FileRecord struct {
	Path    string   `json:"path"`
	Columns []string `json:"columns"`
}

// Token is a bracketed placeholder in a file template, e.g. [SAMPLE].
type Token struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// FileGroup is a set of variable files that share one naming convention.
type FileGroup struct {
	// Values maps each matched path to the token values extracted from it.
	Values       map[string]map[string]string `json:"values,omitempty"`
	Pattern      string                       `json:"pattern"`
	Regex        string                       `json:"regex"`
	Name         string                       `json:"name"`
	Description  string                       `json:"description"`
	Tokens       []Token                      `json:"tokens"`
	MatchedPaths []string                     `json:"files"`
}

// ColumnGroup melts a set of wide columns into one key/value pair.
type ColumnGroup struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ValueName        string   `json:"value_name"`
	ValueDescription string   `json:"value_description"`
	Columns          []string `json:"columns"`
}

// Contains reports whether column belongs to the group.
func (g ColumnGroup) Contains(column string) bool {
	for _, c := range g.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// FieldInfo is the display metadata stored for one sanitized column name.
type FieldInfo struct {
	DisplayName string `json:"name"`
	Description string `json:"desc"`
}

// ColumnMapping maps sanitized column names to display metadata.
type ColumnMapping map[string]FieldInfo

package model

import "time"

// Wildcard marks the default metadata entry that applies to every process and file.
const Wildcard = "*"

// TermMetadata records where a term was observed and how it should be labelled there.
type TermMetadata struct {
	Process string `json:"process"`
	File    string `json:"file"`
	Name    string `json:"name"`
	Desc    string `json:"desc"`
}

// Term groups every raw column spelling that sanitizes to the same name.
type Term struct {
	Column   []string       `json:"column"`
	Metadata []TermMetadata `json:"metadata"`
}

// HasColumn reports whether the raw column name is already listed.
func (t Term) HasColumn(name string) bool {
	for _, c := range t.Column {
		if c == name {
			return true
		}
	}
	return false
}

// Terms is the terms.json document keyed by sanitized column name.
type Terms map[string]*Term

// Observation is one column header seen while sampling a dataset file.
type Observation struct {
	ObservedAt  time.Time `json:"observed_at"`
	ProcessID   string    `json:"process_id"`
	ProcessName string    `json:"process_name"`
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	DatasetID   string    `json:"dataset_id"`
	DatasetName string    `json:"dataset_name"`
	File        string    `json:"file"`
	Column      string    `json:"column"`
	ID          int64     `json:"id"`
}

// Package model defines the core data structures for the annotation tools.
package model

import (
	"fmt"
	"time"
)

// Executor identifies the workflow engine a process runs on.
type Executor string

// Executor constants.
const (
	ExecutorNextflow Executor = "NEXTFLOW"
	ExecutorCromwell Executor = "CROMWELL"
	ExecutorIngest   Executor = "INGEST"
)

// Project is a data portal project.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Process is a pipeline or ingest process registered in the portal.
type Process struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Executor    Executor `json:"executor"`
}

// Label renders the process the way selection lists show it: "Name (id)".
func (p Process) Label() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.ID)
}

// Dataset is one output of a process run inside a project.
type Dataset struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ProjectID string    `json:"projectId"`
	ProcessID string    `json:"processId"`
}

// Label renders the dataset the way selection lists show it: "name - id".
func (d Dataset) Label() string {
	return fmt.Sprintf("%s - %s", d.Name, d.ID)
}

// File is a single file inside a dataset, addressed by its relative path.
type File struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

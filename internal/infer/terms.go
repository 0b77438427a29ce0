package infer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/discovery"
	"github.com/CirroBio/cirro-annotation/internal/mapping"
	"github.com/CirroBio/cirro-annotation/internal/model"
)

// LoadTerms reads a terms document. A missing file yields an empty one.
func LoadTerms(path string) (model.Terms, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if errors.Is(err, fs.ErrNotExist) {
		return model.Terms{}, nil
	}
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("failed to read terms %s", path), err)
	}

	terms := model.Terms{}
	if len(data) == 0 {
		return terms, nil
	}
	if err := json.Unmarshal(data, &terms); err != nil {
		return nil, common.NewUserError(fmt.Sprintf("failed to parse terms %s", path), err)
	}
	for key, term := range terms {
		if term == nil {
			delete(terms, key)
		}
	}
	return terms, nil
}

// SaveTerms writes the terms document with a 4-space indent.
func SaveTerms(path string, terms model.Terms) error {
	return mapping.WriteJSON(path, terms)
}

// AlreadyParsed reports whether any term metadata names the process.
func AlreadyParsed(terms model.Terms, process string) bool {
	for _, term := range terms {
		for _, md := range term.Metadata {
			if md.Process == process {
				return true
			}
		}
	}
	return false
}

// Changes counts what Aggregate added.
type Changes struct {
	Terms    int
	Columns  int
	Metadata int
}

// Aggregate folds observations into terms. Observations are grouped by
// (sanitized, raw) name in sorted order; a raw name already listed under any
// term is skipped, and each (process, file name) pair is recorded once per term.
func Aggregate(terms model.Terms, observations []model.Observation) Changes {
	type row struct {
		sanitized string
		obs       model.Observation
	}

	rows := make([]row, 0, len(observations))
	for _, obs := range observations {
		sani := discovery.Sanitize(obs.Column)
		if sani == "" {
			continue
		}
		rows = append(rows, row{sanitized: sani, obs: obs})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].sanitized != rows[j].sanitized {
			return rows[i].sanitized < rows[j].sanitized
		}
		return rows[i].obs.Column < rows[j].obs.Column
	})

	var changes Changes
	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && rows[end].sanitized == rows[start].sanitized && rows[end].obs.Column == rows[start].obs.Column {
			end++
		}
		group := rows[start:end]
		start = end

		sani, column := group[0].sanitized, group[0].obs.Column
		if listed(terms, column) {
			continue
		}

		term, ok := terms[sani]
		if !ok {
			term = &model.Term{
				Column: []string{},
				Metadata: []model.TermMetadata{{
					Process: model.Wildcard,
					File:    model.Wildcard,
					Name:    sani,
					Desc:    "",
				}},
			}
			terms[sani] = term
			changes.Terms++
		}

		term.Column = append(term.Column, column)
		changes.Columns++

		for _, r := range group {
			if hasSource(term, r.obs.ProcessName, r.obs.File) {
				continue
			}
			term.Metadata = append(term.Metadata, model.TermMetadata{
				Process: r.obs.ProcessName,
				File:    r.obs.File,
			})
			changes.Metadata++
		}
	}
	return changes
}

func listed(terms model.Terms, column string) bool {
	for _, term := range terms {
		if term.HasColumn(column) {
			return true
		}
	}
	return false
}

func hasSource(term *model.Term, process, file string) bool {
	name := path.Base(file)
	for _, md := range term.Metadata {
		if md.Process == process && path.Base(md.File) == name {
			return true
		}
	}
	return false
}

// Package infer samples portal datasets to build the terms vocabulary.
package infer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/discovery"
	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/CirroBio/cirro-annotation/internal/portal"
	"github.com/CirroBio/cirro-annotation/internal/service"
)

// Extensions are the delimited formats sampled during inference. A trailing
// .gz is accepted on any of them.
var Extensions = []string{".csv", ".tsv", ".txt"}

// Ledger stores observations between runs.
type Ledger interface {
	SaveObservations(ctx context.Context, observations []model.Observation) (int, error)
	ListObservations(ctx context.Context) ([]model.Observation, error)
	HasProcess(ctx context.Context, processName string) (bool, error)
}

// Config selects what gets sampled.
type Config struct {
	TermsFile string
	// Processes is the allow-list of process names.
	Processes []string
	// Projects are project names searched for datasets.
	Projects []string
	MaxRows  int
}

// Report summarizes one run.
type Report struct {
	Sampled      []string
	Skipped      []string
	Failed       []string
	Changes      Changes
	Files        int
	Observations int
}

// Inferrer runs schema inference.
type Inferrer struct {
	client   portal.Client
	ledger   Ledger
	notifier service.Notifier
	progress portal.ProgressFunc
	now      func() time.Time
	config   Config
}

// Option configures an Inferrer.
type Option func(*Inferrer)

// WithNotifier sets where per-process status lines go.
func WithNotifier(n service.Notifier) Option {
	return func(i *Inferrer) { i.notifier = n }
}

// WithProgress shows per-process file progress.
func WithProgress(fn portal.ProgressFunc) Option {
	return func(i *Inferrer) { i.progress = fn }
}

// WithClock overrides the observation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(i *Inferrer) { i.now = now }
}

// NewInferrer creates an Inferrer.
func NewInferrer(client portal.Client, ledger Ledger, config Config, opts ...Option) *Inferrer {
	i := &Inferrer{
		client: client,
		ledger: ledger,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run samples every allowed process that the terms file and ledger do not
// cover yet, then folds the whole ledger into the terms file.
func (i *Inferrer) Run(ctx context.Context) (*Report, error) {
	terms, err := LoadTerms(i.config.TermsFile)
	if err != nil {
		return nil, err
	}

	processes, err := i.client.ListProcesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	projects, err := i.projects(ctx)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(i.config.Processes))
	for _, name := range i.config.Processes {
		allowed[name] = true
	}

	report := &Report{}
	for _, proc := range processes {
		if !allowed[proc.Name] {
			common.LogDebug("Skipping process outside allow-list", common.Fields{"process": proc.Name})
			continue
		}
		if AlreadyParsed(terms, proc.Name) {
			report.Skipped = append(report.Skipped, proc.Name)
			continue
		}
		seen, err := i.ledger.HasProcess(ctx, proc.Name)
		if err != nil {
			return nil, err
		}
		if seen {
			report.Skipped = append(report.Skipped, proc.Name)
			continue
		}

		files, observations, err := i.sampleProcess(ctx, proc, projects)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			common.LogError(err, "Could not parse examples", common.Fields{"process": proc.Name})
			i.warn(fmt.Sprintf("Could not parse examples from %s: %v", proc.Label(), err))
			report.Failed = append(report.Failed, proc.Name)
			continue
		}
		report.Sampled = append(report.Sampled, proc.Name)
		report.Files += files

		if len(observations) == 0 {
			continue
		}
		saved, err := i.ledger.SaveObservations(ctx, observations)
		if err != nil {
			return nil, err
		}
		report.Observations += saved
	}

	all, err := i.ledger.ListObservations(ctx)
	if err != nil {
		return nil, err
	}
	report.Changes = Aggregate(terms, all)

	if err := SaveTerms(i.config.TermsFile, terms); err != nil {
		return nil, err
	}
	common.LogInfo("Wrote terms", common.Fields{
		"path":     i.config.TermsFile,
		"terms":    len(terms),
		"new":      report.Changes.Terms,
		"sampled":  len(report.Sampled),
		"observed": report.Observations,
	})
	return report, nil
}

// projects resolves the configured project names. Unknown names are warned about.
func (i *Inferrer) projects(ctx context.Context) ([]model.Project, error) {
	all, err := i.client.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	byName := make(map[string]model.Project, len(all))
	for _, p := range all {
		byName[p.Name] = p
	}

	var out []model.Project
	for _, name := range i.config.Projects {
		p, ok := byName[name]
		if !ok {
			i.warn(fmt.Sprintf("Project %q not found", name))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type sampleFile struct {
	project model.Project
	dataset model.Dataset
	name    string
}

func (i *Inferrer) sampleProcess(ctx context.Context, proc model.Process, projects []model.Project) (int, []model.Observation, error) {
	i.info(fmt.Sprintf("Finding files from %s datasets", proc.Name))

	var files []sampleFile
	for _, project := range projects {
		datasets, err := i.client.ListDatasets(ctx, project.ID)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to list datasets of %s: %w", project.Name, err)
		}
		for _, dataset := range portal.DatasetsOf(datasets, proc.ID) {
			listed, err := i.client.ListFiles(ctx, project.ID, dataset.ID)
			if err != nil {
				return 0, nil, fmt.Errorf("failed to list files of %s: %w", dataset.ID, err)
			}
			for _, f := range listed {
				if discovery.HasExtension(f.Name, Extensions) {
					files = append(files, sampleFile{project: project, dataset: dataset, name: f.Name})
				}
			}
		}
	}
	if len(files) == 0 {
		return 0, nil, nil
	}

	var progress portal.Progress
	if i.progress != nil {
		progress = i.progress(len(files), proc.Name)
	}

	var observations []model.Observation
	for _, f := range files {
		columns, err := i.readColumns(ctx, f)
		if err != nil {
			return 0, nil, err
		}
		observedAt := i.now()
		for _, column := range columns {
			observations = append(observations, model.Observation{
				ObservedAt:  observedAt,
				ProcessID:   proc.ID,
				ProcessName: proc.Name,
				ProjectID:   f.project.ID,
				ProjectName: f.project.Name,
				DatasetID:   f.dataset.ID,
				DatasetName: f.dataset.Name,
				File:        f.name,
				Column:      column,
			})
		}
		if progress != nil {
			_ = progress.Add(1)
		}
	}
	return len(files), observations, nil
}

// readColumns returns the header of one file. Unparseable files have no columns.
func (i *Inferrer) readColumns(ctx context.Context, f sampleFile) ([]string, error) {
	common.LogDebug("Reading file", common.Fields{
		"project": f.project.ID,
		"dataset": f.dataset.ID,
		"file":    f.name,
	})

	rc, err := i.client.Open(ctx, f.project.ID, f.dataset.ID, f.name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.name, err)
	}
	defer func() { _ = rc.Close() }()

	sample, err := discovery.ReadSample(rc, f.name, i.config.MaxRows)
	var parseErr *discovery.ParseError
	if errors.As(err, &parseErr) {
		common.LogDebug("File has no readable header", common.Fields{"file": f.name, "error": parseErr.Err.Error()})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sample.Header, nil
}

func (i *Inferrer) info(message string) {
	if i.notifier != nil {
		i.notifier.Info(message)
	}
}

func (i *Inferrer) warn(message string) {
	if i.notifier != nil {
		i.notifier.Warn(message)
	}
}

// Package annotate runs the interactive dataset annotation flow: pick an
// exemplar dataset, download it, describe its variable files and columns,
// and write the column mapping and manifest.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/config"
	"github.com/CirroBio/cirro-annotation/internal/discovery"
	"github.com/CirroBio/cirro-annotation/internal/manifest"
	"github.com/CirroBio/cirro-annotation/internal/mapping"
	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/CirroBio/cirro-annotation/internal/pattern"
	"github.com/CirroBio/cirro-annotation/internal/portal"
	"github.com/CirroBio/cirro-annotation/internal/service"
)

// Prompt messages. Tests script answers by these fragments.
const (
	MsgProject         = "Select the project"
	MsgProcess         = "Select the process to annotate"
	MsgDataset         = "Select an exemplar dataset to use for annotation"
	MsgVariableFiles   = "Select the files whose names vary between runs"
	MsgStandardColumns = "Select the standard columns"
	MsgColumnName      = "Display name for column"
	MsgColumnDesc      = "Description for column"
	MsgMeltColumns     = "Select columns to melt into one variable"
	MsgMeltKey         = "Name of the variable holding the melted column names"
	MsgMeltKeyDesc     = "Description of the variable"
	MsgMeltValue       = "Name of the melted values"
	MsgMeltValueDesc   = "Description of the values"
)

// NoDatasetMessage is the InputError message returned when the
// dataset answer matches no dataset.
const NoDatasetMessage = "User must select a dataset to download"

// Config controls one annotation run.
type Config struct {
	DataDir    string
	FieldsFile string
	// Glob restricts the annotated files. Empty keeps every file.
	Glob       string
	Extensions []string
	Mode       pattern.Mode
	// Summary writes the files/columns summary instead of transforms.
	Summary bool
}

// Result describes what a run produced.
type Result struct {
	Project      model.Project
	Process      model.Process
	Dataset      model.Dataset
	Download     string
	ManifestPath string
	FieldsPath   string
	Groups       []model.FileGroup
	ColumnGroups []model.ColumnGroup
	NewColumns   []string
	Ungrouped    []string
	Downloaded   bool
}

// Annotator runs the flow against one portal client.
type Annotator struct {
	client   portal.Client
	prompter service.Prompter
	notifier service.Notifier
	progress portal.ProgressFunc
	config   Config
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithNotifier sets where status lines go.
func WithNotifier(n service.Notifier) Option {
	return func(a *Annotator) { a.notifier = n }
}

// WithProgress shows download progress.
func WithProgress(fn portal.ProgressFunc) Option {
	return func(a *Annotator) { a.progress = fn }
}

// New creates an Annotator.
func New(client portal.Client, prompter service.Prompter, cfg Config, opts ...Option) *Annotator {
	if cfg.Mode == "" {
		cfg.Mode = pattern.MatchFull
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = config.DefaultExtensions
	}
	a := &Annotator{client: client, prompter: prompter, config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the flow. When the portal has nothing to pick from, a warning
// is shown and the error satisfies IsNothingToAnnotate. When the dataset holds
// no readable files Run returns a nil Result without error.
func (a *Annotator) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	project, ok, err := a.selectProject(ctx)
	if err != nil || !ok {
		return nil, err
	}
	res.Project = project

	datasets, err := a.client.ListDatasets(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	process, ok, err := a.selectProcess(ctx, datasets)
	if err != nil || !ok {
		return nil, err
	}
	res.Process = process

	dataset, ok, err := a.selectDataset(ctx, portal.DatasetsOf(datasets, process.ID))
	if err != nil || !ok {
		return nil, err
	}
	res.Dataset = dataset

	common.LogInfo("Annotating dataset", common.Fields{
		"project": project.ID,
		"process": process.ID,
		"dataset": dataset.ID,
	})

	res.Download = config.DatasetDownloadDir(a.config.DataDir, dataset.ID)
	res.Downloaded, err = a.download(ctx, project, dataset, res.Download)
	if err != nil {
		return nil, err
	}

	found, err := a.discover(res.Download)
	if err != nil {
		return nil, err
	}
	if len(found.Files) == 0 {
		a.warn(fmt.Sprintf("No files with extensions %s found in %s",
			strings.Join(a.config.Extensions, ", "), res.Download))
		return nil, nil
	}

	standardFiles, groups, err := a.partitionFiles(ctx, found)
	if err != nil {
		return nil, err
	}
	res.Groups = groups

	store, err := mapping.Load(a.config.FieldsFile)
	if err != nil {
		return nil, err
	}
	res.FieldsPath = store.Path()

	standard, variable, err := a.selectColumns(ctx, found.Vocabulary, store)
	if err != nil {
		return nil, err
	}
	res.NewColumns = store.Added()

	res.ColumnGroups, res.Ungrouped, err = a.groupColumns(ctx, variable)
	if err != nil {
		return nil, err
	}

	in := manifest.Input{
		Standard:      store.Mapping(standard),
		StandardFiles: standardFiles,
		Groups:        groups,
		Files:         make(map[string]model.FileRecord, len(found.Files)),
		ColumnGroups:  res.ColumnGroups,
	}
	for _, f := range found.Files {
		in.Files[f.Path] = f
	}

	var doc any
	if a.config.Summary {
		doc = manifest.BuildSummary(in, res.Ungrouped)
	} else {
		doc, err = manifest.NewBuilder(a.prompter).BuildTransforms(ctx, in)
		if err != nil {
			return nil, err
		}
	}

	if err := store.Save(); err != nil {
		return nil, err
	}

	dir, err := config.DatasetTempDir(a.config.DataDir, res.Download)
	if err != nil {
		return nil, err
	}
	res.ManifestPath, err = manifest.Write(dir, doc)
	if err != nil {
		return nil, err
	}

	a.success(fmt.Sprintf("Wrote %s and %s", res.FieldsPath, res.ManifestPath))
	return res, nil
}

func (a *Annotator) selectProject(ctx context.Context) (model.Project, bool, error) {
	projects, err := a.client.ListProjects(ctx)
	if err != nil {
		return model.Project{}, false, fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		a.warn("No projects available")
		return model.Project{}, false, common.ErrNoProjects
	}

	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}
	answer, err := a.prompter.Select(ctx, MsgProject, names)
	if err != nil {
		return model.Project{}, false, err
	}
	for _, p := range projects {
		if p.Name == answer {
			return p, true, nil
		}
	}
	return model.Project{}, false, common.NewInputError("User must select a project")
}

func (a *Annotator) selectProcess(ctx context.Context, datasets []model.Dataset) (model.Process, bool, error) {
	processes, err := a.client.ListProcesses(ctx)
	if err != nil {
		return model.Process{}, false, fmt.Errorf("failed to list processes: %w", err)
	}
	used := portal.ProcessesUsedBy(portal.FilterExecutor(processes, model.ExecutorNextflow), datasets)
	if len(used) == 0 {
		a.warn("No processes available")
		return model.Process{}, false, common.ErrNoProcesses
	}

	labels := make([]string, len(used))
	for i, p := range used {
		labels[i] = p.Label()
	}
	answer, err := a.prompter.Select(ctx, MsgProcess, labels)
	if err != nil {
		return model.Process{}, false, err
	}
	for _, p := range used {
		if p.Label() == answer {
			return p, true, nil
		}
	}
	return model.Process{}, false, common.NewInputError("User must select a process")
}

func (a *Annotator) selectDataset(ctx context.Context, datasets []model.Dataset) (model.Dataset, bool, error) {
	if len(datasets) == 0 {
		a.warn("No datasets available")
		return model.Dataset{}, false, common.ErrNoDatasets
	}

	sorted := portal.NewestFirst(datasets)
	labels := make([]string, len(sorted))
	for i, d := range sorted {
		labels[i] = d.Label()
	}
	answer, err := a.prompter.Select(ctx, MsgDataset, labels)
	if err != nil {
		return model.Dataset{}, false, err
	}
	for _, d := range sorted {
		if d.Label() == answer {
			return d, true, nil
		}
	}
	return model.Dataset{}, false, common.NewInputError(NoDatasetMessage)
}

func (a *Annotator) download(ctx context.Context, project model.Project, dataset model.Dataset, dest string) (bool, error) {
	files, err := a.client.ListFiles(ctx, project.ID, dataset.ID)
	if err != nil {
		return false, fmt.Errorf("failed to list dataset files: %w", err)
	}

	var progress portal.Progress
	if a.progress != nil {
		progress = a.progress(len(files), "Downloading "+dataset.Name)
	}

	fetched, err := portal.Download(ctx, a.client, project.ID, dataset.ID, files, dest, progress)
	if err != nil {
		return false, err
	}
	if fetched {
		a.info(fmt.Sprintf("Downloaded %d files to %s", len(files), dest))
	} else {
		a.info(fmt.Sprintf("Using existing download in %s", dest))
	}
	return fetched, nil
}

func (a *Annotator) discover(root string) (*discovery.Result, error) {
	paths, err := discovery.ListFiles(root, a.config.Extensions)
	if err != nil {
		return nil, err
	}
	if a.config.Glob != "" {
		paths, err = discovery.FilterGlob(paths, a.config.Glob)
		if err != nil {
			return nil, err
		}
	}
	return discovery.DiscoverPaths(root, paths)
}

// partitionFiles asks which files vary between runs and groups those.
func (a *Annotator) partitionFiles(ctx context.Context, found *discovery.Result) ([]model.FileRecord, []model.FileGroup, error) {
	variable, err := a.prompter.Checkbox(ctx, MsgVariableFiles+" (e.g. one per sample)", found.Paths(), nil)
	if err != nil {
		return nil, nil, err
	}

	isVariable := make(map[string]bool, len(variable))
	for _, p := range variable {
		isVariable[p] = true
	}
	standard := make([]model.FileRecord, 0, len(found.Files))
	for _, f := range found.Files {
		if !isVariable[f.Path] {
			standard = append(standard, f)
		}
	}

	var groups []model.FileGroup
	if len(variable) > 0 {
		opts := []pattern.Option{pattern.WithMode(a.config.Mode)}
		if a.notifier != nil {
			opts = append(opts, pattern.WithNotifier(a.notifier))
		}
		groups, err = pattern.NewPartitioner(a.prompter, opts...).Partition(ctx, variable)
		if err != nil {
			return nil, nil, err
		}
	}
	return standard, groups, nil
}

// selectColumns splits the vocabulary into standard and variable keys and
// fills in mapping entries for standard keys seen for the first time.
func (a *Annotator) selectColumns(ctx context.Context, vocab *discovery.Vocabulary, store *mapping.Store) ([]string, []string, error) {
	keys := vocab.Keys()
	var defaults []string
	for _, k := range keys {
		if store.Has(k) {
			defaults = append(defaults, k)
		}
	}

	standard, err := a.prompter.Checkbox(ctx, MsgStandardColumns+" (present in every run)", keys, defaults)
	if err != nil {
		return nil, nil, err
	}

	for _, key := range store.Missing(standard) {
		entry, _ := vocab.Lookup(key)
		def := key
		if len(entry.Names) > 0 {
			def = strings.TrimSpace(entry.Names[0])
		}
		name, err := a.prompter.Text(ctx, fmt.Sprintf("%s %s", MsgColumnName, key), def)
		if err != nil {
			return nil, nil, err
		}
		desc, err := a.prompter.Text(ctx, fmt.Sprintf("%s %s", MsgColumnDesc, key), "")
		if err != nil {
			return nil, nil, err
		}
		store.Set(key, model.FieldInfo{DisplayName: name, Description: desc})
	}

	selected := make(map[string]bool, len(standard))
	for _, k := range standard {
		selected[k] = true
	}
	var variable []string
	for _, k := range keys {
		if !selected[k] {
			variable = append(variable, k)
		}
	}
	return standard, variable, nil
}

// groupColumns asks for melt groups until the user picks none or every
// variable column is grouped. The leftovers are returned as ungrouped.
func (a *Annotator) groupColumns(ctx context.Context, remaining []string) ([]model.ColumnGroup, []string, error) {
	groups := []model.ColumnGroup{}
	for len(remaining) > 0 {
		picked, err := a.prompter.Checkbox(ctx, MsgMeltColumns+" (select none to finish)", remaining, nil)
		if err != nil {
			return nil, nil, err
		}
		if len(picked) == 0 {
			break
		}

		g, err := a.describeColumnGroup(ctx, picked)
		if err != nil {
			return nil, nil, err
		}
		groups = append(groups, g)
		remaining = without(remaining, picked)
	}
	return groups, remaining, nil
}

func (a *Annotator) describeColumnGroup(ctx context.Context, columns []string) (model.ColumnGroup, error) {
	joined := strings.Join(columns, ", ")
	g := model.ColumnGroup{Columns: columns}

	var err error
	if g.Name, err = a.prompter.Text(ctx, fmt.Sprintf("%s (%s)", MsgMeltKey, joined), "variable"); err != nil {
		return model.ColumnGroup{}, err
	}
	if g.Description, err = a.prompter.Text(ctx, fmt.Sprintf("%s %s", MsgMeltKeyDesc, g.Name), ""); err != nil {
		return model.ColumnGroup{}, err
	}
	if g.ValueName, err = a.prompter.Text(ctx, fmt.Sprintf("%s (%s)", MsgMeltValue, joined), "value"); err != nil {
		return model.ColumnGroup{}, err
	}
	if g.ValueDescription, err = a.prompter.Text(ctx, fmt.Sprintf("%s in %s", MsgMeltValueDesc, g.ValueName), ""); err != nil {
		return model.ColumnGroup{}, err
	}
	return g, nil
}

func (a *Annotator) info(message string) {
	if a.notifier != nil {
		a.notifier.Info(message)
	}
}

func (a *Annotator) warn(message string) {
	if a.notifier != nil {
		a.notifier.Warn(message)
	}
}

func (a *Annotator) success(message string) {
	if a.notifier != nil {
		a.notifier.Success(message)
	}
}

func without(values, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, v := range remove {
		drop[v] = true
	}
	var out []string
	for _, v := range values {
		if !drop[v] {
			out = append(out, v)
		}
	}
	return out
}

// IsInputError reports whether err is a user-input error that aborts the flow.
func IsInputError(err error) bool {
	var ie *common.InputError
	return errors.As(err, &ie)
}

// IsNothingToAnnotate reports whether err means the portal had no project,
// process or dataset to choose.
func IsNothingToAnnotate(err error) bool {
	return errors.Is(err, common.ErrNoProjects) ||
		errors.Is(err, common.ErrNoProcesses) ||
		errors.Is(err, common.ErrNoDatasets)
}

// Package materialize turns a manager configuration into template and run
// directories, a run table, batch manifests and a job script.
package materialize

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/mesagrid/internal/batch"
	"github.com/san-kum/mesagrid/internal/catalog"
	"github.com/san-kum/mesagrid/internal/config"
	"github.com/san-kum/mesagrid/internal/grid"
	"github.com/san-kum/mesagrid/internal/job"
	"github.com/san-kum/mesagrid/internal/layout"
	"github.com/san-kum/mesagrid/internal/mesa"
	"github.com/san-kum/mesagrid/internal/namelist"
	"github.com/san-kum/mesagrid/internal/progress"
	"github.com/san-kum/mesagrid/internal/storage"
)

// Stages reported through OnProgress.
const (
	StageRuns     = "writing runs"
	StageDatabase = "recording runs"
)

type Driver struct {
	Config *config.Config
	Log    *log.Entry
	Runner job.Runner

	// OnProgress, when set, is called as run directories and records are
	// written.
	OnProgress func(progress.Event)
}

func New(cfg *config.Config, logger *log.Entry) *Driver {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Driver{Config: cfg, Log: logger, Runner: job.ExecRunner{}}
}

// Plan is an enumerated grid with one run configuration per run.
type Plan struct {
	Kind        mesa.Kind
	TemplateDir string
	RunsDir     string
	Catalog     *catalog.Catalog
	Runs        []grid.Run
	Configs     []*mesa.RunConfig
	// Template holds the inlist_project namelists shared by every run.
	Template *namelist.Groups
}

func (d *Driver) report(stage string, done, total int, item string) {
	if d.OnProgress != nil {
		d.OnProgress(progress.Event{Stage: stage, Done: done, Total: total, Item: item})
	}
}

func (d *Driver) dirs() (string, string, error) {
	tpl, err := filepath.Abs(d.Config.Template.OutputDirectory)
	if err != nil {
		return "", "", errors.Wrap(err, "template directory")
	}
	runs, err := filepath.Abs(d.Config.Models.OutputDirectory)
	if err != nil {
		return "", "", errors.Wrap(err, "runs directory")
	}
	return tpl, runs, nil
}

// LoadCatalog reads the defaults of the installation. bin2dco runs also get
// the extension defaults.
func (d *Driver) LoadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load(d.Config.Mesa.MesaDir)
	if err != nil {
		return nil, err
	}
	if d.Config.Models.ID == mesa.Bin2dco {
		ext, err := catalog.LoadExtension(d.Config.Mesa.Bin2dcoDir)
		if err != nil {
			return nil, err
		}
		cat = cat.Merge(ext)
	}
	return cat, nil
}

// Enumerate expands the grid description and assigns every run to a batch.
func (d *Driver) Enumerate(cat *catalog.Catalog) ([]grid.Run, error) {
	desc, err := grid.Load(d.Config.Models.MeshgridFilename)
	if err != nil {
		return nil, err
	}
	if err := grid.Validate(desc, cat); err != nil {
		return nil, errors.WithMessage(err, "grid description")
	}
	conds, err := grid.ParseConditions(d.Config.Models.Conditions)
	if err != nil {
		return nil, err
	}

	d.Log.Infof("grid of %d candidate runs", grid.Count(desc))
	runs, err := grid.Enumerate(desc, conds)
	if err != nil {
		return nil, err
	}
	if err := grid.CheckNames(runs); err != nil {
		return nil, errors.WithMessage(err, "grid description")
	}
	if _, err := batch.Assign(runs, d.Config.Manager.NumberOfJobs); err != nil {
		return nil, err
	}
	d.Log.Infof("%d runs in %d batches", len(runs), d.Config.Manager.NumberOfJobs)
	return runs, nil
}

// Plan loads the catalog, enumerates the grid and computes every namelist.
// Nothing is written.
func (d *Driver) Plan() (*Plan, error) {
	tplDir, runsDir, err := d.dirs()
	if err != nil {
		return nil, err
	}
	cat, err := d.LoadCatalog()
	if err != nil {
		return nil, err
	}
	runs, err := d.Enumerate(cat)
	if err != nil {
		return nil, err
	}
	options, err := grid.Load(d.Config.Template.OptionsFilename)
	if err != nil {
		return nil, errors.WithMessage(err, "template options")
	}

	p := &Plan{
		Kind:        d.Config.Models.ID,
		TemplateDir: tplDir,
		RunsDir:     runsDir,
		Catalog:     cat,
		Runs:        runs,
		Configs:     make([]*mesa.RunConfig, 0, len(runs)),
	}
	params := mesa.Params{Kind: p.Kind, TemplateDir: tplDir, RunsDir: runsDir}
	for i, run := range runs {
		rc, err := mesa.NewRunConfig(run, params, cat)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			if err := rc.SetTemplateNamelists(options); err != nil {
				return nil, err
			}
			p.Template = rc.Template
		}
		if err := rc.SetRunNamelists(); err != nil {
			return nil, err
		}
		p.Configs = append(p.Configs, rc)
	}
	return p, nil
}

// Options tune a materialization pass.
type Options struct {
	SkipCompile bool
}

// Materialize writes everything described by p.
func (d *Driver) Materialize(ctx context.Context, p *Plan, opts Options) error {
	if len(p.Configs) == 0 {
		return batch.ErrNoRuns
	}
	if err := d.writeTemplate(p); err != nil {
		return err
	}
	if err := d.writeRuns(p); err != nil {
		return err
	}
	if err := d.record(ctx, p); err != nil {
		return err
	}
	if err := d.writeJob(p); err != nil {
		return err
	}
	if _, err := batch.WriteManifests(p.RunsDir, p.Runs, d.Config.Manager.NumberOfJobs); err != nil {
		return err
	}
	if opts.SkipCompile {
		return nil
	}
	return job.Compile(ctx, d.Runner, d.Config.Installation(), p.TemplateDir, d.Log)
}

// Run plans and materializes the grid.
func (d *Driver) Run(ctx context.Context, opts Options) (*Plan, error) {
	p, err := d.Plan()
	if err != nil {
		return nil, err
	}
	return p, d.Materialize(ctx, p, opts)
}

func (d *Driver) profile() (mesa.Profile, error) {
	return mesa.DefaultRegistry.Get(d.Config.Models.ID)
}

func (d *Driver) template(dir string) (*layout.Template, error) {
	prof, err := d.profile()
	if err != nil {
		return nil, err
	}
	ex := d.Config.Template.Extras
	return &layout.Template{
		Dir:          dir,
		Profile:      prof,
		Installation: d.Config.Installation(),
		Replace:      d.Config.Template.Overwrite,
		Extras: layout.Extras{
			SrcDirs:       ex.DirsInSrc,
			SrcFiles:      ex.FilesInSrc,
			Makefiles:     ex.Makefiles,
			TemplateFiles: ex.TemplateFiles,
		},
		Log: d.Log,
	}, nil
}

func (d *Driver) writeTemplate(p *Plan) error {
	tpl, err := d.template(p.TemplateDir)
	if err != nil {
		return err
	}
	if err := tpl.Create(); err != nil {
		return err
	}
	files, err := p.Configs[0].TemplateFiles()
	if err != nil {
		return err
	}
	if err := mesa.WriteFiles(files); err != nil {
		return err
	}
	return tpl.CopyColumnLists(d.Config.ColumnLists())
}

// writeRuns writes the run directories one at a time in id order.
func (d *Driver) writeRuns(p *Plan) error {
	for i, rc := range p.Configs {
		if err := writeRun(rc, p.Template); err != nil {
			return err
		}
		d.Log.WithField("run", rc.Name).Debug("run written")
		d.report(StageRuns, i+1, len(p.Configs), rc.Name)
	}
	return nil
}

func writeRun(rc *mesa.RunConfig, template *namelist.Groups) error {
	if err := layout.CreateRunDir(nil, rc.Dir); err != nil {
		return err
	}
	files, err := rc.RunFiles(template)
	if err != nil {
		return err
	}
	return mesa.WriteFiles(files)
}

func (d *Driver) openStore() (*storage.Store, error) {
	db := d.Config.Database
	return storage.Open(db.Filename, db.Tablename, d.Log)
}

func (d *Driver) record(ctx context.Context, p *Plan) error {
	db := d.Config.Database
	if db.RemoveDatabase {
		if err := storage.Remove(db.Filename); err != nil {
			return err
		}
	}
	st, err := d.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if db.DropTable {
		if err := st.Drop(ctx); err != nil {
			return err
		}
	}
	if err := st.Init(ctx); err != nil {
		return err
	}
	for i, r := range p.Runs {
		rec := storage.Record{
			ID:                r.ID,
			ModelName:         r.Name,
			TemplateDirectory: p.TemplateDir,
			RunsDirectory:     p.RunsDir,
			JobID:             r.Batch,
			Status:            storage.StatusNotComputed,
		}
		if _, err := st.Insert(ctx, rec); err != nil {
			return err
		}
		d.report(StageDatabase, i+1, len(p.Runs), r.Name)
	}
	return nil
}

func (d *Driver) script(tplDir, runsDir string) (job.Script, string, error) {
	path, err := d.Config.JobFile()
	if err != nil {
		return job.Script{}, "", err
	}
	return job.Script{
		Name:         filepath.Base(path),
		Manager:      d.Config.Manager.Manager,
		Slurm:        d.Config.Manager.HPC,
		Installation: d.Config.Installation(),
		Kind:         d.Config.Models.ID,
		TemplateDir:  tplDir,
		RunsDir:      runsDir,
	}, path, nil
}

func (d *Driver) writeJob(p *Plan) error {
	s, path, err := d.script(p.TemplateDir, p.RunsDir)
	if err != nil {
		return err
	}
	d.Log.Infof("writing job script %s", path)
	return s.Write(path)
}

// Compile builds the template directory only.
func (d *Driver) Compile(ctx context.Context) error {
	tpl, _, err := d.dirs()
	if err != nil {
		return err
	}
	return job.Compile(ctx, d.Runner, d.Config.Installation(), tpl, d.Log)
}

// Submit launches batch k with the job script.
func (d *Driver) Submit(ctx context.Context, k int) ([]byte, error) {
	_, runs, err := d.dirs()
	if err != nil {
		return nil, err
	}
	path, err := d.Config.JobFile()
	if err != nil {
		return nil, err
	}
	script, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "job script")
	}
	s := &job.Submitter{
		Manager:      d.Config.Manager.Manager,
		ScriptPath:   script,
		RunsDir:      runs,
		NumberOfJobs: d.Config.Manager.NumberOfJobs,
		Runner:       d.Runner,
		Log:          d.Log,
	}
	return s.Submit(ctx, k)
}

// Records lists the run table.
func (d *Driver) Records(ctx context.Context) ([]storage.Record, error) {
	st, err := d.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.List(ctx)
}

// SetStatus updates the status of the run called name.
func (d *Driver) SetStatus(ctx context.Context, name, status string) error {
	st, err := d.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return st.UpdateStatus(ctx, name, status)
}

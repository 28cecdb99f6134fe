package mesa

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/san-kum/mesagrid/internal/catalog"
	"github.com/san-kum/mesagrid/internal/grid"
	"github.com/san-kum/mesagrid/internal/namelist"
	"github.com/san-kum/mesagrid/internal/overrides"
)

// File names MESA reads from the template and run directories.
const (
	InitInlist    = "inlist"
	ProjectInlist = "inlist_project"
	BinaryInlist  = "inlist_binary"
	StarInlist    = "inlist_star"
	Star1Inlist   = "inlist1"
	Star2Inlist   = "inlist2"
)

var ErrNotComputed = errors.New("mesa: namelists not computed")

// binaryPgstar is read by the binary module next to the binary groups but
// has no defaults file to diff against.
const binaryPgstar = "binary_pgstar"

// Params are the settings shared by every run of a grid.
type Params struct {
	Kind        Kind
	TemplateDir string
	RunsDir     string
}

// RunConfig holds the namelists of one run. Init, Template and Run stay nil
// until the matching Set method has been called; an empty but non-nil value
// means there was nothing to override.
type RunConfig struct {
	ID          int
	Name        string
	Kind        Kind
	Dir         string
	TemplateDir string

	// Variables are the grid options of the run filed under their groups.
	Variables *namelist.Groups

	// Init is written to the template inlist, Template to inlist_project and
	// Run to the inlists of the run directory.
	Init     *namelist.Groups
	Template *namelist.Groups
	Run      *namelist.Groups

	differ *overrides.Differ
	paths  overrides.Paths
}

func NewRunConfig(run grid.Run, p Params, cat *catalog.Catalog) (*RunConfig, error) {
	if _, err := DefaultRegistry.Get(p.Kind); err != nil {
		return nil, err
	}
	vars, err := overrides.ResolveGroups(run.Options, cat)
	if err != nil {
		return nil, errors.WithMessagef(err, "run %d", run.ID)
	}

	dir := filepath.Join(p.RunsDir, run.Name)
	paths := overrides.Paths{Run: dir, Template: p.TemplateDir}
	return &RunConfig{
		ID:          run.ID,
		Name:        run.Name,
		Kind:        p.Kind,
		Dir:         dir,
		TemplateDir: p.TemplateDir,
		Variables:   vars,
		differ:      overrides.New(cat, paths),
		paths:       paths,
	}, nil
}

// wiring makes every group of names read inlist_project from the template.
func wiring(names []string) *namelist.Groups {
	g := namelist.NewGroups()
	for _, name := range names {
		opts := g.Ensure(name)
		opts.Set("read_extra_"+name+"_inlist1", true)
		opts.Set("extra_"+name+"_inlist1_name", overrides.TemplatePlaceholder+"/"+ProjectInlist)
	}
	return g
}

// SetTemplateNamelists computes Init and Template from the template options.
func (rc *RunConfig) SetTemplateNamelists(options *namelist.Groups) error {
	var (
		init *namelist.Groups
		err  error
	)
	switch rc.Kind {
	case Star:
		init = wiring(catalog.StarGroups)
	case Binary:
		init = wiring(append(append([]string{}, catalog.BinaryGroups...), binaryPgstar))
	case Bin2dco:
		init, err = rc.differ.Diff(options, catalog.ExtensionGroups)
		if err != nil {
			return errors.WithMessage(err, "bin2dco namelists")
		}
	default:
		return errors.Wrapf(ErrUnknownKind, "%q", string(rc.Kind))
	}
	rc.paths.SubstituteAll(init)

	var project *namelist.Groups
	if rc.Kind.IsBinary() {
		project, err = rc.differ.Diff(options, catalog.BinaryGroups)
		if err != nil {
			return errors.WithMessage(err, "binary namelists")
		}
		job := project.Ensure("binary_job")
		if !job.Has("inlist_names(1)") {
			job.Set("inlist_names(1)", Star1Inlist)
		}
		if !job.Has("inlist_names(2)") {
			job.Set("inlist_names(2)", Star2Inlist)
		}
		overrides.DropEmpty(project, catalog.BinaryGroups...)
		// the init inlist chains binary_pgstar to inlist_project
		project.Ensure(binaryPgstar)

		if err := rc.differ.DiffInto(project, options, catalog.StarGroups); err != nil {
			return errors.WithMessage(err, "star namelists")
		}
	} else {
		project, err = rc.differ.Diff(options, catalog.StarGroups)
		if err != nil {
			return errors.WithMessage(err, "star namelists")
		}
		overrides.DropEmpty(project)
	}

	rc.Init, rc.Template = init, project
	return nil
}

// SetRunNamelists computes Run from the grid variables.
func (rc *RunConfig) SetRunNamelists() error {
	run := namelist.NewGroups()
	if rc.Kind.IsBinary() {
		if err := rc.differ.DiffInto(run, rc.Variables, catalog.BinaryGroups); err != nil {
			return errors.WithMessagef(err, "run %d", rc.ID)
		}
	}
	if err := rc.differ.DiffInto(run, rc.Variables, catalog.StarGroups); err != nil {
		return errors.WithMessagef(err, "run %d", rc.ID)
	}
	rc.Run = overrides.DropEmpty(run)
	return nil
}

// File is a rendered namelist file.
type File struct {
	Path    string
	Content string
}

// TemplateFiles renders inlist and inlist_project.
func (rc *RunConfig) TemplateFiles() ([]File, error) {
	if rc.Init == nil || rc.Template == nil {
		return nil, errors.Wrap(ErrNotComputed, "template")
	}
	init, err := namelist.Format(rc.Init, false)
	if err != nil {
		return nil, err
	}
	project, err := namelist.Format(rc.Template, false)
	if err != nil {
		return nil, err
	}
	return []File{
		{Path: filepath.Join(rc.TemplateDir, InitInlist), Content: init},
		{Path: filepath.Join(rc.TemplateDir, ProjectInlist), Content: project},
	}, nil
}

// RunFiles renders the inlists of the run directory. template is the
// Template namelists shared by the grid; star groups it overrides are
// chained from inlist1 and inlist2.
func (rc *RunConfig) RunFiles(template *namelist.Groups) ([]File, error) {
	if rc.Run == nil {
		return nil, errors.Wrapf(ErrNotComputed, "run %d", rc.ID)
	}

	if !rc.Kind.IsBinary() {
		text, err := namelist.Format(subset(rc.Run, catalog.StarGroups), false)
		if err != nil {
			return nil, err
		}
		return []File{{Path: filepath.Join(rc.Dir, StarInlist), Content: text}}, nil
	}

	if template == nil {
		return nil, errors.Wrap(ErrNotComputed, "template")
	}
	files := make([]File, 0, 3)
	for _, part := range []struct {
		name   string
		groups *namelist.Groups
	}{
		{BinaryInlist, subset(rc.Run, catalog.BinaryGroups)},
		{Star1Inlist, rc.starInlist(template, "LOGS1")},
		{Star2Inlist, rc.starInlist(template, "LOGS2")},
	} {
		text, err := namelist.Format(part.groups, false)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: filepath.Join(rc.Dir, part.name), Content: text})
	}
	return files, nil
}

// starInlist builds the namelists of one star of a binary. Each star gets
// its own copy so the log directories never leak between them.
func (rc *RunConfig) starInlist(template *namelist.Groups, logDir string) *namelist.Groups {
	g := rc.Run.Clone()

	controls := g.Ensure("controls")
	if !controls.Has("log_directory") {
		controls.Set("log_directory", logDir)
	}
	// MESA stops when an inlist of a binary star lacks &pgstar
	g.Ensure("pgstar")

	project := filepath.Join(rc.TemplateDir, ProjectInlist)
	for _, name := range catalog.StarGroups {
		if template.Group(name).Len() == 0 {
			continue
		}
		opts := g.Ensure(name)
		opts.Set("read_extra_"+name+"_inlist1", true)
		opts.Set("extra_"+name+"_inlist1_name", project)
	}
	return subset(g, catalog.StarGroups)
}

// subset keeps the groups of g listed in names, in the order of g.
func subset(g *namelist.Groups, names []string) *namelist.Groups {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	out := namelist.NewGroups()
	for _, n := range g.Names() {
		if keep[n] {
			out.Set(n, g.Group(n))
		}
	}
	return out
}

// WriteFiles writes every file, creating parent directories as needed.
func WriteFiles(files []File) error {
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
			return errors.Wrapf(err, "creating %s", filepath.Dir(f.Path))
		}
		if err := os.WriteFile(f.Path, []byte(f.Content), 0644); err != nil {
			return errors.Wrapf(err, "writing %s", f.Path)
		}
	}
	return nil
}

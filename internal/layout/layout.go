// Package layout builds the template and run directories of a grid.
package layout

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/san-kum/mesagrid/internal/mesa"
)

// Column list files MESA reads from the template directory.
const (
	ProfileColumns       = "profile_columns.list"
	HistoryColumns       = "history_columns.list"
	BinaryHistoryColumns = "binary_history_columns.list"
)

var templateFolders = []string{"make", "src"}

// Extras are user supplied additions to the template.
type Extras struct {
	// SrcDirs are created inside src/.
	SrcDirs       []string
	SrcFiles      []string
	Makefiles     []string
	TemplateFiles []string
}

// Template creates the template directory of one run kind.
type Template struct {
	Dir          string
	Profile      mesa.Profile
	Installation mesa.Installation
	// Replace wipes the directory before anything is copied.
	Replace bool
	Extras  Extras

	Fs  afero.Fs
	Log *log.Entry
}

func (t *Template) fs() afero.Fs {
	if t.Fs == nil {
		t.Fs = afero.NewOsFs()
	}
	return t.Fs
}

func (t *Template) log() *log.Entry {
	if t.Log == nil {
		t.Log = log.NewEntry(log.StandardLogger())
	}
	return t.Log
}

// Create lays out the template: make/ and src/, the work directory sources
// and scripts of the kind, its module trees and every extra. Sources that
// do not exist are reported and skipped.
func (t *Template) Create() error {
	fs := t.fs()
	t.log().WithField("dir", t.Dir).Debug("creating template structure")

	if t.Replace {
		if err := emptyDir(fs, t.Dir); err != nil {
			return err
		}
	}
	for _, name := range templateFolders {
		if err := fs.MkdirAll(filepath.Join(t.Dir, name), 0755); err != nil {
			return errors.Wrapf(err, "creating %s", name)
		}
	}

	work := t.Profile.WorkDir(t.Installation)
	var copies [][2]string
	for _, src := range t.Profile.Sources {
		copies = append(copies, [2]string{filepath.Join(work, "src", src), filepath.Join(t.Dir, "src", src)})
	}
	for _, script := range mesa.Scripts {
		copies = append(copies, [2]string{filepath.Join(work, script), filepath.Join(t.Dir, script)})
	}
	copies = append(copies, [2]string{filepath.Join(work, mesa.Makefile), filepath.Join(t.Dir, mesa.Makefile)})
	for _, f := range t.Profile.TemplateFiles {
		copies = append(copies, [2]string{filepath.Join(work, f), filepath.Join(t.Dir, f)})
	}
	for _, f := range t.Extras.SrcFiles {
		copies = append(copies, [2]string{f, filepath.Join(t.Dir, "src", filepath.Base(f))})
	}
	for _, f := range t.Extras.Makefiles {
		copies = append(copies, [2]string{f, filepath.Join(t.Dir, "make", filepath.Base(f))})
	}
	for _, f := range t.Extras.TemplateFiles {
		copies = append(copies, [2]string{f, filepath.Join(t.Dir, filepath.Base(f))})
	}

	for _, c := range copies {
		if err := copyFile(fs, c[0], c[1]); err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				t.log().Warnf("could not copy %s: file not found", c[0])
				continue
			}
			return err
		}
	}

	for _, module := range t.Profile.Modules {
		src := filepath.Join(work, "src", module)
		if ok, _ := afero.DirExists(fs, src); !ok {
			t.log().Warnf("could not copy %s: folder not found", src)
			continue
		}
		if err := copyTree(fs, src, filepath.Join(t.Dir, "src", module)); err != nil {
			return err
		}
	}

	for _, name := range t.Extras.SrcDirs {
		dir := filepath.Join(t.Dir, "src", name)
		if ok, _ := afero.DirExists(fs, dir); ok && t.Replace {
			if err := emptyDir(fs, dir); err != nil {
				return err
			}
		}
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return nil
}

// CopyColumnLists copies the given column list files into the template.
// With no files the defaults of the installation are used; binary kinds also
// get the binary history list.
func (t *Template) CopyColumnLists(files []string) error {
	if len(files) == 0 {
		defaults := filepath.Join(t.Installation.MesaDir, "star", "defaults")
		files = []string{
			filepath.Join(defaults, ProfileColumns),
			filepath.Join(defaults, HistoryColumns),
		}
		if t.Profile.Kind.IsBinary() {
			files = append(files, filepath.Join(t.Installation.MesaDir, "binary", "defaults", BinaryHistoryColumns))
		}
	}
	for _, f := range files {
		if err := copyFile(t.fs(), f, filepath.Join(t.Dir, filepath.Base(f))); err != nil {
			return errors.WithMessage(err, "copying column list")
		}
	}
	return nil
}

// CreateRunDir creates the directory of one run.
func CreateRunDir(fs afero.Fs, dir string) error {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return errors.Wrapf(fs.MkdirAll(dir, 0755), "creating run directory %s", dir)
}

// emptyDir removes everything inside dir but keeps dir itself.
func emptyDir(fs afero.Fs, dir string) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading %s", dir)
	}
	for _, e := range entries {
		if err := fs.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.Wrapf(err, "removing %s", e.Name())
		}
	}
	return nil
}

// copyFile copies src to dst keeping the permission bits of src.
func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", src)
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(dst))
	}
	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "creating %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s", src)
	}
	return errors.Wrapf(out.Close(), "closing %s", dst)
}

func copyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, 0755)
		}
		return copyFile(fs, path, target)
	})
}

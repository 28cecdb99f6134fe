// Package job writes the shell script that evolves the runs of a batch and
// drives the compile and submit subprocesses.
package job

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/san-kum/mesagrid/internal/mesa"
)

// Manager selects how a batch is launched.
type Manager string

const (
	Shell Manager = "shell"
	Slurm Manager = "slurm"
)

var (
	ErrUnknownManager = errors.New("job: unknown manager")
	ErrInvalidSlurm   = errors.New("job: invalid slurm settings")
)

func ParseManager(s string) (Manager, error) {
	switch m := Manager(strings.ToLower(strings.TrimSpace(s))); m {
	case Shell, Slurm:
		return m, nil
	}
	return "", errors.Wrapf(ErrUnknownManager, "%q", s)
}

// SlurmOptions are the #SBATCH settings of a slurm script.
type SlurmOptions struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Out      string `mapstructure:"out_fname" yaml:"out_fname"`
	Err      string `mapstructure:"err_fname" yaml:"err_fname"`
	Queue    string `mapstructure:"queue" yaml:"queue"`
	Msg      string `mapstructure:"msg" yaml:"msg"`
	Email    string `mapstructure:"email" yaml:"email"`
	Nodes    int    `mapstructure:"nodes" yaml:"nodes"`
	PPN      int    `mapstructure:"ppn" yaml:"ppn"`
	Mem      int    `mapstructure:"mem" yaml:"mem"`
	Walltime string `mapstructure:"walltime" yaml:"walltime"`
}

func DefaultSlurmOptions() SlurmOptions {
	return SlurmOptions{
		Name:     "mesagrid",
		Out:      "/dev/null",
		Queue:    "furious",
		Msg:      "ALL",
		Nodes:    1,
		PPN:      8,
		Mem:      8,
		Walltime: "168:00:00",
	}
}

// withFallbacks fills the settings that have a natural replacement.
func (o SlurmOptions) withFallbacks() SlurmOptions {
	if o.Out == "" {
		o.Out = "/dev/null"
	}
	if o.Err == "" {
		o.Err = o.Out
	}
	if o.Msg == "" {
		o.Msg = "ALL"
	}
	if o.Walltime == "" {
		o.Walltime = "168:00:00"
	}
	return o
}

func (o SlurmOptions) Validate() error {
	var result *multierror.Error
	if o.Queue == "" {
		result = multierror.Append(result, errors.Wrap(ErrInvalidSlurm, "queue is required"))
	}
	if o.Email == "" {
		result = multierror.Append(result, errors.Wrap(ErrInvalidSlurm, "email is required"))
	}
	for _, f := range []struct {
		name string
		v    int
	}{{"nodes", o.Nodes}, {"ppn", o.PPN}, {"mem", o.Mem}} {
		if f.v < 1 {
			result = multierror.Append(result, errors.Wrapf(ErrInvalidSlurm, "%s must be >= 1, got %d", f.name, f.v))
		}
	}
	return result.ErrorOrNil()
}

// Script is the job script shared by every batch. It receives the manifest
// of the batch as its first argument.
type Script struct {
	Name         string
	Manager      Manager
	Slurm        SlurmOptions
	Installation mesa.Installation
	Kind         mesa.Kind
	TemplateDir  string
	RunsDir      string
}

// Render returns the script text.
func (s Script) Render() (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "#!/bin/sh\n\n# shell script name: %s\n", s.Name)

	switch s.Manager {
	case Shell:
	case Slurm:
		o := s.Slurm.withFallbacks()
		if err := o.Validate(); err != nil {
			return "", err
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "#SBATCH --job-name=%s\n", s.Name)
		fmt.Fprintf(&b, "#SBATCH --output=%s\n", o.Out)
		fmt.Fprintf(&b, "#SBATCH --error=%s\n", o.Err)
		fmt.Fprintf(&b, "#SBATCH --partition=%s\n", o.Queue)
		fmt.Fprintf(&b, "#SBATCH --mail-type=%s\n", o.Msg)
		fmt.Fprintf(&b, "#SBATCH --mail-user=%s\n", o.Email)
		fmt.Fprintf(&b, "#SBATCH --time=%s\n", o.Walltime)
		fmt.Fprintf(&b, "#SBATCH --nodes=%d --cpus-per-task=%d\n", o.Nodes, o.PPN)
		fmt.Fprintf(&b, "#SBATCH --mem=%dgb\n", o.Mem)
	default:
		return "", errors.Wrapf(ErrUnknownManager, "%q", string(s.Manager))
	}

	b.WriteString("\nmesainit () {\n")
	fmt.Fprintf(&b, "   export MESASDK_ROOT=\"%s\"\n", s.Installation.SDKDir)
	fmt.Fprintf(&b, "   export MESA_DIR=\"%s\"\n", s.Installation.MesaDir)
	fmt.Fprintf(&b, "   export MESA_CACHES_DIR=\"%s\"\n", s.Installation.CachesDir)
	b.WriteString("   source $MESASDK_ROOT/bin/mesasdk_init.sh\n")
	b.WriteString("}\n")

	fmt.Fprintf(&b, "\nexport MESA_TEMPLATE_DIR=%s\n", s.TemplateDir)
	fmt.Fprintf(&b, "export MESA_RUNS_DIR=%s\n", s.RunsDir)
	fmt.Fprintf(&b, "export MESA_INLIST=%s/%s\n", s.TemplateDir, mesa.InitInlist)

	b.WriteString("\nmesainit\n\n")
	b.WriteString("filename=$1\n")
	b.WriteString("cd $MESA_RUNS_DIR\n")
	b.WriteString("while read line; do\n")
	b.WriteString("   dir=$line\n")
	b.WriteString("   echo going to evolve the run inside: $dir\n")
	b.WriteString("   cd $dir\n")
	fmt.Fprintf(&b, "   $MESA_TEMPLATE_DIR/%s | tee log\n", s.Kind.Executable())
	b.WriteString("   cd $MESA_RUNS_DIR\n")
	b.WriteString("done < $filename\n")
	return b.String(), nil
}

// Write renders the script to path and makes it executable.
func (s Script) Write(path string) error {
	text, err := s.Render()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, []byte(text), 0755), "writing job script %s", path)
}

// FileName joins the configured prefix and name of the script file.
func FileName(prefix, name string) (string, error) {
	if prefix+name == "" {
		return "", errors.New("job: job_file_prefix and job_filename are both empty")
	}
	return prefix + name, nil
}

package job

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/mesagrid/internal/batch"
	"github.com/san-kum/mesagrid/internal/mesa"
)

var ErrInvalidBatch = errors.New("job: invalid batch")

// Runner runs a command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// CompileCommand is the bash command line that builds the template.
func CompileCommand(inst mesa.Installation) string {
	return strings.Join([]string{
		"export MESA_DIR=" + inst.MesaDir,
		"export MESA_CACHES_DIR=" + inst.CachesDir,
		"export MESASDK_ROOT=" + inst.SDKDir,
		"source $MESASDK_ROOT/bin/mesasdk_init.sh",
		"chmod +x mk",
		"./mk",
	}, "; ")
}

// Compile builds the template directory. Missing installation directories
// are errors; a failing build is only logged.
func Compile(ctx context.Context, r Runner, inst mesa.Installation, templateDir string, logger *log.Entry) error {
	for _, d := range []struct{ what, dir string }{
		{"MESA installation", inst.MesaDir},
		{"MESASDK installation", inst.SDKDir},
		{"MESA caches location", inst.CachesDir},
		{"template directory", templateDir},
	} {
		if info, err := os.Stat(d.dir); err != nil || !info.IsDir() {
			return errors.Errorf("%q is not a valid %s", d.dir, d.what)
		}
	}

	logger.WithField("dir", templateDir).Info("compiling template")
	out, err := r.Run(ctx, templateDir, "bash", "-c", CompileCommand(inst))
	logger.Debugf("compile output:\n%s", out)
	if err != nil {
		logger.WithError(err).Warn("could not compile MESA source code")
	}
	return nil
}

// Submitter launches batches with the job script.
type Submitter struct {
	Manager      Manager
	ScriptPath   string
	RunsDir      string
	NumberOfJobs int
	Runner       Runner
	Log          *log.Entry
}

// Submit launches one batch and returns the output of the launcher.
func (s *Submitter) Submit(ctx context.Context, k int) ([]byte, error) {
	if k < 0 || k >= s.NumberOfJobs {
		return nil, errors.Wrapf(ErrInvalidBatch, "%d not in [0, %d)", k, s.NumberOfJobs)
	}
	manifest := batch.ManifestPath(s.RunsDir, k)
	if _, err := os.Stat(manifest); err != nil {
		return nil, errors.Wrap(err, "batch manifest")
	}

	var launcher string
	switch s.Manager {
	case Shell:
		launcher = "sh"
	case Slurm:
		launcher = "sbatch"
	default:
		return nil, errors.Wrapf(ErrUnknownManager, "%q", string(s.Manager))
	}

	s.Log.WithField("batch", k).Infof("submitting with %s", launcher)
	out, err := s.Runner.Run(ctx, s.RunsDir, launcher, s.ScriptPath, manifest)
	if err != nil {
		return out, errors.Wrapf(err, "%s %s", launcher, s.ScriptPath)
	}
	return out, nil
}

// Package logging builds the logger shared by every command.
package logging

import (
	"io"
	"os"
	"os/user"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const fileName = "mesagrid.log"

// Path returns the log file location: $XDG_CACHE_HOME/mesagrid, then
// ~/.local/share/mesagrid, then the temporary directory.
func Path() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "mesagrid", fileName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "mesagrid", fileName)
	}
	name := "mesagrid.log"
	if u, err := user.Current(); err == nil {
		name = "mesagrid-" + u.Username + ".log"
	}
	return filepath.Join(os.TempDir(), name)
}

// consoleHook copies error and fatal entries to the console.
type consoleHook struct {
	out       io.Writer
	formatter log.Formatter
}

func (h *consoleHook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel}
}

func (h *consoleHook) Fire(e *log.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

// New returns a logger writing every entry to the file at path as one JSON
// object per line, and errors to console as well. The caller closes the returned file.
func New(path string, debug bool, console io.Writer) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, errors.Wrapf(err, "creating log directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening log file %s", path)
	}

	logger := log.New()
	logger.SetOutput(f)
	logger.SetFormatter(&log.JSONFormatter{})
	logger.SetLevel(log.InfoLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	if console != nil {
		logger.AddHook(&consoleHook{out: console, formatter: &log.TextFormatter{ForceColors: true, DisableTimestamp: true}})
	}
	return logger, f, nil
}

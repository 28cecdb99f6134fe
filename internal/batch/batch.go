// Package batch splits the runs of a grid into execution batches.
package batch

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/san-kum/mesagrid/internal/grid"
)

var (
	ErrInvalidBatchCount = errors.New("batch: number of batches must be at least 1")
	ErrNoRuns            = errors.New("batch: no runs to partition")
)

// Assignment maps run id -> batch index.
type Assignment map[int]int

// Partition splits ids, in order, into b contiguous slices. The first
// len(ids) mod b slices hold one element more than the rest. With b larger
// than len(ids) the trailing batches are empty.
func Partition(ids []int, b int) (Assignment, error) {
	if b < 1 {
		return nil, errors.Wrapf(ErrInvalidBatchCount, "got %d", b)
	}
	if len(ids) == 0 {
		return nil, ErrNoRuns
	}

	out := make(Assignment, len(ids))
	pos := 0
	for k, size := range Sizes(len(ids), b) {
		for _, id := range ids[pos : pos+size] {
			out[id] = k
		}
		pos += size
	}
	return out, nil
}

// Sizes returns the size of each of b batches holding n items.
func Sizes(n, b int) []int {
	if b < 1 {
		return nil
	}
	sizes := make([]int, b)
	for k := range sizes {
		sizes[k] = n / b
		if k < n%b {
			sizes[k]++
		}
	}
	return sizes
}

// Assign partitions runs in slice order and stamps each run with its batch.
func Assign(runs []grid.Run, b int) (Assignment, error) {
	a, err := Partition(grid.IDs(runs), b)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Batch = a[runs[i].ID]
	}
	return a, nil
}

// Members returns the runs of batch k in the order they appear in runs.
func Members(runs []grid.Run, k int) []grid.Run {
	var out []grid.Run
	for _, r := range runs {
		if r.Batch == k {
			out = append(out, r)
		}
	}
	return out
}

// ManifestPath is the file listing the run directories of batch k.
func ManifestPath(runsDir string, k int) string {
	return filepath.Join(runsDir, "job_"+strconv.Itoa(k)+".folders")
}

// WriteManifests writes one manifest per batch, one run name per line.
// Empty batches still get an empty manifest.
func WriteManifests(runsDir string, runs []grid.Run, b int) ([]string, error) {
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", runsDir)
	}
	paths := make([]string, 0, b)
	for k := 0; k < b; k++ {
		path := ManifestPath(runsDir, k)
		if err := writeManifest(path, Members(runs, k)); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeManifest(path string, runs []grid.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating manifest %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range runs {
		if _, err := w.WriteString(r.Name + "\n"); err != nil {
			return errors.Wrapf(err, "writing manifest %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "writing manifest %s", path)
	}
	return f.Close()
}

// ReadManifest returns the run names listed in a manifest.
func ReadManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening manifest %s", path)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			names = append(names, line)
		}
	}
	return names, errors.Wrapf(sc.Err(), "reading manifest %s", path)
}

// Package export writes the enumerated runs of a grid as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/san-kum/mesagrid/internal/grid"
	"github.com/san-kum/mesagrid/internal/namelist"
)

type Entry struct {
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Batch   int            `json:"batch"`
	Options map[string]any `json:"options"`
}

type Plan struct {
	Kind    string  `json:"kind"`
	Batches int     `json:"batches"`
	Runs    int     `json:"runs"`
	Entries []Entry `json:"entries"`
}

func NewPlan(kind string, batches int, runs []grid.Run) Plan {
	p := Plan{Kind: kind, Batches: batches, Runs: len(runs), Entries: make([]Entry, len(runs))}
	for i, r := range runs {
		opts := make(map[string]any, r.Options.Len())
		for _, k := range r.Options.Keys() {
			v, _ := r.Options.Get(k)
			opts[k] = v
		}
		p.Entries[i] = Entry{ID: r.ID, Name: r.Name, Batch: r.Batch, Options: opts}
	}
	return p
}

func WriteJSON(w io.Writer, p Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(p), "encoding plan")
}

// WriteCSV writes one row per run: id, name, batch and one column per grid
// option in the order of the first run.
func WriteCSV(w io.Writer, runs []grid.Run) error {
	var columns []string
	if len(runs) > 0 {
		columns = runs[0].Options.Keys()
	}

	cw := csv.NewWriter(w)
	header := append([]string{"id", "name", "batch"}, columns...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, r := range runs {
		row := []string{strconv.Itoa(r.ID), r.Name, strconv.Itoa(r.Batch)}
		for _, c := range columns {
			v, _ := r.Options.Get(c)
			row = append(row, cell(v))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing run %d", r.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "writing csv")
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return namelist.FormatValue(v)
}

// ToFile runs write against a new file at path.
func ToFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

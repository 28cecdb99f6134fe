package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/san-kum/mesagrid/internal/namelist"
)

var ErrDuplicateName = errors.New("grid: runs share a name")

// Unassigned marks a run that has not been given a batch yet.
const Unassigned = -1

// Run is one point of the grid.
type Run struct {
	ID   int
	Name string
	// Options is the flat option -> value mapping of this run. Groups are
	// dropped; when two groups share an option name the later group wins.
	Options *namelist.Options
	Batch   int
}

type axis struct {
	option string
	values []any
}

func axes(desc *namelist.Groups) []axis {
	var out []axis
	for _, group := range desc.Names() {
		opts := desc.Group(group)
		for _, key := range opts.Keys() {
			v, _ := opts.Get(key)
			out = append(out, axis{option: key, values: candidates(v)})
		}
	}
	return out
}

func candidates(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case namelist.Array:
		return x.Values()
	}
	return []any{v}
}

// walkOrder is the order in which axes are iterated, slowest first. The
// first two axes are swapped, so for m1: [10, 20] and m2: [1, 2] the ids are
// 0:(10,1) 1:(20,1) 2:(10,2) 3:(20,2). Grids built by earlier versions of the
// tool use these ids for their run folders and tables.
func walkOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if n > 1 {
		order[0], order[1] = 1, 0
	}
	return order
}

// Enumerate expands desc into runs with ids 0..Count(desc)-1 in product
// order and drops every run for which any condition reports true.
func Enumerate(desc *namelist.Groups, conds []Condition) ([]Run, error) {
	ax := axes(desc)
	order := walkOrder(len(ax))
	runs := make([]Run, 0, Count(desc))
	picked := make([]any, len(ax))
	id := 0

	var walk func(depth int) error
	walk = func(depth int) error {
		if depth == len(ax) {
			run := newRun(id, ax, picked)
			id++
			excluded, err := Excluded(run.Options, conds)
			if err != nil {
				return errors.WithMessagef(err, "run %d", run.ID)
			}
			if !excluded {
				runs = append(runs, run)
			}
			return nil
		}
		slot := order[depth]
		for _, v := range ax[slot].values {
			picked[slot] = v
			if err := walk(depth + 1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(0); err != nil {
		return nil, err
	}
	return runs, nil
}

func newRun(id int, ax []axis, picked []any) Run {
	opts := namelist.NewOptions()
	for i, a := range ax {
		opts.Set(a.option, picked[i])
	}
	return Run{ID: id, Name: RunName(opts), Options: opts, Batch: Unassigned}
}

// RunName joins option_value pairs with underscores, e.g. m1_10_m2_8.
func RunName(opts *namelist.Options) string {
	var b strings.Builder
	for _, k := range opts.Keys() {
		v, _ := opts.Get(k)
		b.WriteString(k + "_" + nameValue(v) + "_")
	}
	return strings.TrimSuffix(b.String(), "_")
}

func nameValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// IDs returns the ids of runs in order.
func IDs(runs []Run) []int {
	ids := make([]int, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

// CheckNames reports every run whose name was already taken by an earlier
// run. Names become directory names and table keys, so they must be unique.
func CheckNames(runs []Run) error {
	var result *multierror.Error
	first := make(map[string]int, len(runs))
	for _, r := range runs {
		if id, ok := first[r.Name]; ok {
			result = multierror.Append(result, errors.Wrapf(ErrDuplicateName, "runs %d and %d are both %q", id, r.ID, r.Name))
			continue
		}
		first[r.Name] = r.ID
	}
	return result.ErrorOrNil()
}

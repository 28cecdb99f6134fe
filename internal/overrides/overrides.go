// Package overrides reduces a set of namelist options to the ones that
// differ from the catalog defaults.
//
// Before an option is compared with its default two rewrites apply:
//
//   - a string holding #{run} or #{template} is replaced by the run or
//     template directory joined with the base name of the original value;
//   - a string that spells a number ("1d-3") becomes a float64 when the
//     default is not a string.
//
// The read_extra_<group>_inlistN toggles and extra_<group>_inlistN_name
// keys wire namelist files together and are always kept.
package overrides

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/san-kum/mesagrid/internal/catalog"
	"github.com/san-kum/mesagrid/internal/namelist"
)

const (
	RunPlaceholder      = "#{run}"
	TemplatePlaceholder = "#{template}"
)

var ErrEmptySource = errors.New("overrides: empty option source")

var (
	passthroughRe = regexp.MustCompile(`^(read_extra_\w+_inlist[1-5]|extra_\w+_inlist[1-5]_name)$`)
	numericRe     = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eEdD][+-]?\d+)?$`)
)

// Paths are the directories placeholders resolve to.
type Paths struct {
	Run      string
	Template string
}

// Substitute resolves a placeholder in v. Values without one are returned
// unchanged.
func (p Paths) Substitute(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	base := s[strings.LastIndex(s, "/")+1:]
	switch {
	case strings.Contains(s, RunPlaceholder):
		return filepath.Join(p.Run, base)
	case strings.Contains(s, TemplatePlaceholder):
		return filepath.Join(p.Template, base)
	}
	return s
}

// SubstituteAll resolves placeholders in every option of g in place.
func (p Paths) SubstituteAll(g *namelist.Groups) {
	for _, name := range g.Names() {
		opts := g.Group(name)
		for _, k := range opts.Keys() {
			v, _ := opts.Get(k)
			opts.Set(k, p.Substitute(v))
		}
	}
}

// IsPassthrough reports whether key is one of the extra-inlist wiring keys.
func IsPassthrough(key string) bool {
	return passthroughRe.MatchString(key)
}

// CoerceNumeric turns a string spelling a number into a float64.
func CoerceNumeric(v any) any {
	s, ok := v.(string)
	if !ok || !numericRe.MatchString(strings.TrimSpace(s)) {
		return v
	}
	f, err := strconv.ParseFloat(strings.NewReplacer("d", "e", "D", "e").Replace(strings.TrimSpace(s)), 64)
	if err != nil {
		return v
	}
	return f
}

// Differ compares options against the defaults of a catalog.
type Differ struct {
	cat   *catalog.Catalog
	paths Paths
}

func New(cat *catalog.Catalog, paths Paths) *Differ {
	return &Differ{cat: cat, paths: paths}
}

// Diff returns, for every name in groups, the options of src that differ
// from their default. Requested groups with nothing to keep are present and
// empty.
func (d *Differ) Diff(src *namelist.Groups, groups []string) (*namelist.Groups, error) {
	out := namelist.NewGroups()
	if err := d.DiffInto(out, src, groups); err != nil {
		return nil, err
	}
	return out, nil
}

// DiffInto is Diff accumulating into dst. Indexed keys get the next free
// index of their base name in dst, so merging several sources that all
// start at x(1) never collides.
func (d *Differ) DiffInto(dst, src *namelist.Groups, groups []string) error {
	if src.Len() == 0 {
		return ErrEmptySource
	}
	for _, group := range groups {
		res := dst.Ensure(group)
		opts := src.Group(group)
		for _, key := range opts.Keys() {
			v, _ := opts.Get(key)
			v = d.paths.Substitute(v)
			if IsPassthrough(key) {
				res.Set(key, v)
				continue
			}

			def, err := d.cat.Default(group, key)
			if err != nil {
				return errors.WithMessagef(err, "diffing group %q", group)
			}
			if _, isString := def.(string); !isString {
				v = CoerceNumeric(v)
			}
			if namelist.Equal(v, def) {
				continue
			}
			res.Set(nextIndex(res, key), v)
		}
	}
	return nil
}

func nextIndex(res *namelist.Options, key string) string {
	i := strings.Index(key, "(")
	if i < 0 || !strings.HasSuffix(key, ")") {
		return key
	}
	base := key[:i]
	n := 0
	for _, k := range res.Keys() {
		if strings.HasPrefix(k, base+"(") {
			n++
		}
	}
	return base + "(" + strconv.Itoa(n+1) + ")"
}

// DropEmpty removes the listed groups of g that hold no option. With no
// names every empty group is removed.
func DropEmpty(g *namelist.Groups, names ...string) *namelist.Groups {
	if len(names) == 0 {
		names = g.Names()
	}
	for _, name := range names {
		if g.Has(name) && g.Group(name).Len() == 0 {
			g.Delete(name)
		}
	}
	return g
}

// ResolveGroups files every option of flat under the first catalog group
// that defines it. Every option no group knows is reported.
func ResolveGroups(flat *namelist.Options, cat *catalog.Catalog) (*namelist.Groups, error) {
	out := namelist.NewGroups()
	var result *multierror.Error
	for _, key := range flat.Keys() {
		group, err := cat.GroupOf(key)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		v, _ := flat.Get(key)
		out.Ensure(group).Set(key, v)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

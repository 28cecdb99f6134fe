// Package catalog loads the namelist defaults shipped with a MESA
// installation and answers which group/option names are valid.
package catalog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/san-kum/mesagrid/internal/namelist"
)

// Namelists read by the star module, the binary module and the bin2dco
// extension.
var (
	StarGroups      = []string{"star_job", "controls", "pgstar", "eos", "kap"}
	BinaryGroups    = []string{"binary_job", "binary_controls"}
	ExtensionGroups = []string{"bin2dco_controls"}
)

var (
	ErrUnknownGroup  = errors.New("catalog: unknown group")
	ErrUnknownOption = errors.New("catalog: unknown option")
	ErrNoInstallDir  = errors.New("catalog: installation directory not set")
)

// Catalog is an immutable group -> option -> default value table.
type Catalog struct {
	groups *namelist.Groups
}

// New builds a catalog from already parsed defaults.
func New(groups *namelist.Groups) *Catalog {
	return &Catalog{groups: groups.Clone()}
}

// DefaultsPath returns the defaults file of a star or binary group inside
// a MESA installation.
func DefaultsPath(mesaDir, group string) string {
	folder := "star"
	switch {
	case strings.HasPrefix(group, "binary"):
		folder = "binary"
	case strings.Contains(group, "eos"):
		folder = "eos"
	case strings.Contains(group, "kap"):
		folder = "kap"
	}
	return filepath.Join(mesaDir, folder, "defaults", group+".defaults")
}

// ExtensionDefaultsPath returns the defaults file of an extension group.
func ExtensionDefaultsPath(dir, group string) string {
	return filepath.Join(dir, "src", group+".defaults")
}

// Load reads the defaults of every star and binary group. A missing file
// keeps fs.ErrNotExist in the returned error chain.
func Load(mesaDir string) (*Catalog, error) {
	if mesaDir == "" {
		return nil, ErrNoInstallDir
	}
	groups := namelist.NewGroups()
	for _, set := range [][]string{StarGroups, BinaryGroups} {
		for _, g := range set {
			opts, err := ReadDefaults(g, DefaultsPath(mesaDir, g))
			if err != nil {
				return nil, errors.Wrapf(err, "loading %s defaults", g)
			}
			groups.Set(g, opts)
		}
	}
	return &Catalog{groups: groups}, nil
}

// LoadExtension reads the defaults of the bin2dco extension.
func LoadExtension(dir string) (*Catalog, error) {
	if dir == "" {
		return nil, ErrNoInstallDir
	}
	groups := namelist.NewGroups()
	for _, g := range ExtensionGroups {
		opts, err := ReadDefaults(g, ExtensionDefaultsPath(dir, g))
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s defaults", g)
		}
		groups.Set(g, opts)
	}
	return &Catalog{groups: groups}, nil
}

// Merge returns a catalog holding the groups of both. Groups of other
// replace groups of the same name.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := c.groups.Clone()
	if other != nil {
		for _, name := range other.groups.Names() {
			out.Set(name, other.groups.Group(name).Clone())
		}
	}
	return &Catalog{groups: out}
}

// Groups returns the group names in load order.
func (c *Catalog) Groups() []string {
	return c.groups.Names()
}

func (c *Catalog) HasGroup(group string) bool {
	return c.groups.Has(group)
}

// Options returns a copy of the defaults of group, or nil.
func (c *Catalog) Options(group string) *namelist.Options {
	if !c.groups.Has(group) {
		return nil
	}
	return c.groups.Group(group).Clone()
}

func (c *Catalog) IsValid(group, option string) bool {
	_, err := c.Default(group, option)
	return err == nil
}

// Default returns the default value of option in group. An indexed option
// such as x_ctrl(2) falls back to x_ctrl(:), x_ctrl and finally to any
// ranged entry like x_ctrl(1:num_x_ctrls).
func (c *Catalog) Default(group, option string) (any, error) {
	opts := c.groups.Group(group)
	if opts == nil {
		return nil, errors.Wrapf(ErrUnknownGroup, "%q", group)
	}
	if v, ok := opts.Get(option); ok {
		return v, nil
	}

	base, index := splitIndex(option)
	for _, key := range []string{base + "(:)", base} {
		if v, ok := opts.Get(key); ok {
			return element(v, index), nil
		}
	}
	for _, key := range opts.Keys() {
		if strings.HasPrefix(key, base+"(") {
			v, _ := opts.Get(key)
			return element(v, index), nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownOption, "%q in group %q", option, group)
}

// GroupOf returns the first group, in catalog order, that defines option.
func (c *Catalog) GroupOf(option string) (string, error) {
	for _, g := range c.groups.Names() {
		if c.IsValid(g, option) {
			return g, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownOption, "%q", option)
}

func splitIndex(option string) (string, string) {
	i := strings.Index(option, "(")
	if i < 0 || !strings.HasSuffix(option, ")") {
		return option, ""
	}
	return option[:i], option[i+1 : len(option)-1]
}

func element(v any, index string) any {
	arr, ok := v.(namelist.Array)
	if !ok {
		return v
	}
	if i, err := strconv.Atoi(index); err == nil {
		if e, ok := arr[i]; ok {
			return e
		}
	}
	return v
}

// ReadDefaults reads and parses one defaults file.
func ReadDefaults(group, path string) (*namelist.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return ParseDefaults(group, string(data))
}

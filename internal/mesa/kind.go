package mesa

import (
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Kind selects the MESA module a grid runs with.
type Kind string

const (
	Star    Kind = "mesastar"
	Binary  Kind = "mesabinary"
	Bin2dco Kind = "mesabin2dco"
)

var ErrUnknownKind = errors.New("mesa: unknown run kind")

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, err := DefaultRegistry.Get(k); err != nil {
		return "", err
	}
	return k, nil
}

// IsBinary reports whether runs of k evolve a binary system.
func (k Kind) IsBinary() bool {
	return k == Binary || k == Bin2dco
}

// Executable is the name of the program the template compiles to.
func (k Kind) Executable() string {
	if k.IsBinary() {
		return "binary"
	}
	return "star"
}

func (k Kind) String() string {
	return string(k)
}

// Installation locates MESA, its SDK and caches, and the optional bin2dco
// extension.
type Installation struct {
	MesaDir      string
	SDKDir       string
	CachesDir    string
	ExtensionDir string
}

// Profile describes where the sources of a kind live and what the template
// directory receives from them.
type Profile struct {
	Kind Kind
	// WorkDir returns the directory holding src/, make/ and the build
	// scripts of the kind.
	WorkDir func(inst Installation) string
	// Sources are copied from WorkDir/src into the template src/.
	Sources []string
	// Modules are directory trees copied from WorkDir/src.
	Modules []string
	// TemplateFiles are copied from WorkDir into the template root.
	TemplateFiles []string
}

// Scripts shipped in every work directory. The makefile lives in make/.
var (
	Scripts  = []string{"clean", "mk", "re", "rn"}
	Makefile = filepath.Join("make", "makefile")
)

type Registry struct {
	profiles map[Kind]Profile
}

func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[Kind]Profile)}

	r.Register(Profile{
		Kind:    Star,
		WorkDir: func(inst Installation) string { return filepath.Join(inst.MesaDir, "star", "work") },
		Sources: []string{"run.f90", "run_star_extras.f90"},
	})
	r.Register(Profile{
		Kind:    Binary,
		WorkDir: func(inst Installation) string { return filepath.Join(inst.MesaDir, "binary", "work") },
		Sources: []string{"binary_run.f90", "run_binary_extras.f90", "run_star_extras.f90"},
	})
	r.Register(Profile{
		Kind:    Bin2dco,
		WorkDir: func(inst Installation) string { return inst.ExtensionDir },
		Sources: []string{
			"bin2dco_controls.defaults",
			"bin2dco_misc.inc",
			"binary_run.f90",
			"run_binary_extras.f90",
			"run_star_extras.f90",
		},
		Modules:       []string{"ce", "core_collapse"},
		TemplateFiles: []string{"inlist_ce", "inlist_cc"},
	})

	return r
}

func (r *Registry) Register(p Profile) {
	r.profiles[p.Kind] = p
}

func (r *Registry) Get(k Kind) (Profile, error) {
	p, ok := r.profiles[k]
	if !ok {
		return Profile{}, errors.Wrapf(ErrUnknownKind, "%q", string(k))
	}
	return p, nil
}

func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.profiles))
	for k := range r.profiles {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

var DefaultRegistry = NewRegistry()

package namelist

import (
	"reflect"
	"sort"
)

// Array holds the entries of an indexed option keyed by their 1-based index.
type Array map[int]any

// ArrayOf builds an Array with values at indices 1..len(values).
func ArrayOf(values ...any) Array {
	a := make(Array, len(values))
	for i, v := range values {
		a[i+1] = v
	}
	return a
}

// Indices returns the populated indices in ascending order.
func (a Array) Indices() []int {
	idx := make([]int, 0, len(a))
	for i := range a {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Values returns the entries in index order.
func (a Array) Values() []any {
	out := make([]any, 0, len(a))
	for _, i := range a.Indices() {
		out = append(out, a[i])
	}
	return out
}

func (a Array) clone() Array {
	c := make(Array, len(a))
	for i, v := range a {
		c[i] = v
	}
	return c
}

// Options is an ordered option -> value mapping. The zero value is empty and
// ready to use; a nil *Options reads as empty.
type Options struct {
	keys   []string
	values map[string]any
}

func NewOptions() *Options {
	return &Options{values: make(map[string]any)}
}

// Set stores v under key. Overwriting keeps the original position.
func (o *Options) Set(key string, v any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *Options) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

func (o *Options) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

func (o *Options) Delete(key string) {
	if o == nil {
		return
	}
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the option names in insertion order.
func (o *Options) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Clone returns a deep copy. Arrays are copied, scalars are values already.
func (o *Options) Clone() *Options {
	c := NewOptions()
	if o == nil {
		return c
	}
	for _, k := range o.keys {
		v := o.values[k]
		if a, ok := v.(Array); ok {
			v = a.clone()
		}
		c.Set(k, v)
	}
	return c
}

// Groups is an ordered group name -> *Options mapping.
type Groups struct {
	names  []string
	groups map[string]*Options
}

func NewGroups() *Groups {
	return &Groups{groups: make(map[string]*Options)}
}

// Group returns the options of name, or nil when the group is absent.
func (g *Groups) Group(name string) *Options {
	if g == nil {
		return nil
	}
	return g.groups[name]
}

func (g *Groups) Has(name string) bool {
	return g.Group(name) != nil
}

// Ensure returns the options of name, appending an empty group if needed.
func (g *Groups) Ensure(name string) *Options {
	if opts := g.Group(name); opts != nil {
		return opts
	}
	opts := NewOptions()
	g.Set(name, opts)
	return opts
}

// Set replaces the options of name. A new name is appended at the end.
func (g *Groups) Set(name string, opts *Options) {
	if g.groups == nil {
		g.groups = make(map[string]*Options)
	}
	if opts == nil {
		opts = NewOptions()
	}
	if _, ok := g.groups[name]; !ok {
		g.names = append(g.names, name)
	}
	g.groups[name] = opts
}

func (g *Groups) Delete(name string) {
	if g == nil {
		return
	}
	if _, ok := g.groups[name]; !ok {
		return
	}
	delete(g.groups, name)
	for i, n := range g.names {
		if n == name {
			g.names = append(g.names[:i], g.names[i+1:]...)
			break
		}
	}
}

// Names returns the group names in insertion order.
func (g *Groups) Names() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

func (g *Groups) Len() int {
	if g == nil {
		return 0
	}
	return len(g.names)
}

func (g *Groups) Clone() *Groups {
	c := NewGroups()
	if g == nil {
		return c
	}
	for _, n := range g.names {
		c.Set(n, g.groups[n].Clone())
	}
	return c
}

// Equal compares two namelist values. Integers and floats compare by
// numeric value, so 2 equals 2.0.
func Equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	aa, aok := a.(Array)
	ba, bok := b.(Array)
	if aok || bok {
		if !aok || !bok || len(aa) != len(ba) {
			return false
		}
		for i, v := range aa {
			w, ok := ba[i]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

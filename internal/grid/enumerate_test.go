package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mesagrid/internal/namelist"
)

func TestEnumerateProductOrder(t *testing.T) {
	desc := namelist.NewGroups()
	desc.Ensure("binary_controls").Set("m1", []any{10, 20})
	desc.Ensure("binary_controls").Set("m2", 8.0)
	desc.Ensure("controls").Set("mixing_length_alpha", []any{1.5, 2.0})

	runs, err := Enumerate(desc, nil)
	require.NoError(t, err)
	require.Len(t, runs, 4)

	assert.Equal(t, []int{0, 1, 2, 3}, IDs(runs))
	assert.Equal(t, []string{
		"m1_10_m2_8_mixing_length_alpha_1.5",
		"m1_10_m2_8_mixing_length_alpha_2",
		"m1_20_m2_8_mixing_length_alpha_1.5",
		"m1_20_m2_8_mixing_length_alpha_2",
	}, names(runs))

	for _, r := range runs {
		assert.Equal(t, Unassigned, r.Batch)
		assert.Equal(t, []string{"m1", "m2", "mixing_length_alpha"}, r.Options.Keys())
	}
	v, _ := runs[2].Options.Get("m1")
	assert.Equal(t, 20, v)
}

func TestEnumerateSwapsFirstTwoAxes(t *testing.T) {
	desc := namelist.NewGroups()
	desc.Ensure("binary_controls").Set("m1", []any{10, 20})
	desc.Ensure("binary_controls").Set("m2", []any{1, 2})

	runs, err := Enumerate(desc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1_10_m2_1", "m1_20_m2_1", "m1_10_m2_2", "m1_20_m2_2"}, names(runs))
	assert.Equal(t, []int{0, 1, 2, 3}, IDs(runs))

	desc.Ensure("controls").Set("initial_z", []any{0.01, 0.02})
	runs, err = Enumerate(desc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"m1_10_m2_1_initial_z_0.01",
		"m1_10_m2_1_initial_z_0.02",
		"m1_20_m2_1_initial_z_0.01",
		"m1_20_m2_1_initial_z_0.02",
		"m1_10_m2_2_initial_z_0.01",
		"m1_10_m2_2_initial_z_0.02",
		"m1_20_m2_2_initial_z_0.01",
		"m1_20_m2_2_initial_z_0.02",
	}, names(runs))
}

func TestEnumerateScalarsOnly(t *testing.T) {
	desc := namelist.NewGroups()
	desc.Ensure("controls").Set("initial_mass", 1.0)
	desc.Ensure("controls").Set("initial_z", 0.02)
	desc.Ensure("star_job").Set("pgstar_flag", true)
	desc.Ensure("eos")

	runs, err := Enumerate(desc, nil)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, 0, r.ID)
	assert.Equal(t, []string{"initial_mass", "initial_z", "pgstar_flag"}, r.Options.Keys())
	assert.Equal(t, "initial_mass_1_initial_z_0.02_pgstar_flag_true", r.Name)
}

func TestEnumerateCountMatchesProduct(t *testing.T) {
	desc := namelist.NewGroups()
	desc.Ensure("a").Set("x", []any{1, 2, 3})
	desc.Ensure("a").Set("y", []any{"p", "q"})
	desc.Ensure("b").Set("z", []any{true, false})
	desc.Ensure("b").Set("w", 4)

	runs, err := Enumerate(desc, []Condition{})
	require.NoError(t, err)
	assert.Equal(t, Count(desc), len(runs))
	for i, r := range runs {
		assert.Equal(t, i, r.ID)
	}

	seen := map[string]bool{}
	for _, r := range runs {
		assert.False(t, seen[r.Name], r.Name)
		seen[r.Name] = true
	}
}

func TestEnumerateLastGroupWinsOnSharedOption(t *testing.T) {
	desc := namelist.NewGroups()
	desc.Ensure("controls").Set("initial_mass", []any{1.0, 2.0})
	desc.Ensure("binary_controls").Set("initial_mass", 5.0)

	runs, err := Enumerate(desc, nil)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	for _, r := range runs {
		assert.Equal(t, 1, r.Options.Len())
		v, _ := r.Options.Get("initial_mass")
		assert.Equal(t, 5.0, v)
		assert.Equal(t, "initial_mass_5", r.Name)
	}
}

func TestCheckNames(t *testing.T) {
	desc := namelist.NewGroups()
	desc.Ensure("controls").Set("x", []any{2, 2.0, 3})

	runs, err := Enumerate(desc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x_2", "x_2", "x_3"}, names(runs))

	err = CheckNames(runs)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Contains(t, err.Error(), `runs 0 and 1 are both "x_2"`)

	assert.NoError(t, CheckNames(runs[1:]))
	assert.NoError(t, CheckNames(nil))
}

func TestEnumerateConditionsExclude(t *testing.T) {
	desc := namelist.NewGroups()
	desc.Ensure("binary_controls").Set("m1", []any{1.0, 2.0, 3.0})
	desc.Ensure("binary_controls").Set("m2", []any{1.0, 2.0, 3.0})

	m1LowerThanM2 := ConditionFunc(func(o *namelist.Options) (bool, error) {
		m1, _ := o.Get("m1")
		m2, _ := o.Get("m2")
		return m1.(float64) < m2.(float64), nil
	})

	runs, err := Enumerate(desc, []Condition{m1LowerThanM2})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 4, 5, 8}, IDs(runs))

	all := ConditionFunc(func(*namelist.Options) (bool, error) { return true, nil })
	runs, err = Enumerate(desc, []Condition{all})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestEnumerateConditionError(t *testing.T) {
	desc := namelist.NewGroups()
	desc.Ensure("controls").Set("initial_mass", []any{1.0, 2.0})

	boom := assert.AnError
	failing := ConditionFunc(func(*namelist.Options) (bool, error) { return false, boom })

	_, err := Enumerate(desc, []Condition{failing})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "run 0")
}

func TestRunName(t *testing.T) {
	opts := namelist.NewOptions()
	opts.Set("m1", 10.0)
	opts.Set("period", 1.25)
	opts.Set("n", 3)
	opts.Set("flag", false)
	opts.Set("kind", "he")
	assert.Equal(t, "m1_10_period_1.25_n_3_flag_false_kind_he", RunName(opts))
	assert.Equal(t, "", RunName(namelist.NewOptions()))
}

func names(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.Name
	}
	return out
}

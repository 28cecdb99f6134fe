// Package catalogtest builds fake MESA installation trees for tests.
package catalogtest

import (
	"os"
	"path/filepath"

	"github.com/stretchr/testify/require"
)

// T is satisfied by *testing.T and by GinkgoT().
type T interface {
	require.TestingT
	Helper()
}

// Defaults holds the body of every defaults file written by Install, keyed
// by group name.
var Defaults = map[string]string{
	"star_job": `! star_job defaults
      create_pre_main_sequence_model = .false.
      save_model_when_terminate = .false.
      save_model_filename = 'undefined'
      pgstar_flag = .false.
      read_extra_star_job_inlist1 = .false.
      extra_star_job_inlist1_name = 'undefined'
      read_extra_star_job_inlist2 = .false.
      extra_star_job_inlist2_name = 'undefined'
`,
	"controls": `! controls defaults

   ! initial mass in Msun
      initial_mass = 1d0
      initial_z = 0.02d0
      mixing_length_alpha = 2d0
      log_directory = 'LOGS'
      history_interval = 5
      max_age = 1d36
      x_ctrl(1:num_x_ctrls) = 0d0
      xa_central_lower_limit_species(:) = ''
      read_extra_controls_inlist1 = .false.
      extra_controls_inlist1_name = 'undefined'
`,
	"pgstar": `      pgstar_interval = 2
      read_extra_pgstar_inlist1 = .false.
      extra_pgstar_inlist1_name = 'undefined'
`,
	"eos": `      use_FreeEOS = .true.
      read_extra_eos_inlist1 = .false.
      extra_eos_inlist1_name = 'undefined'
`,
	"kap": `      Zbase = -1d0
      use_Type2_opacities = .false.
      read_extra_kap_inlist1 = .false.
      extra_kap_inlist1_name = 'undefined'
`,
	"binary_job": `      inlist_names(1) = 'inlist1'
      inlist_names(2) = 'inlist2'
      evolve_both_stars = .true.
      read_extra_binary_job_inlist1 = .false.
      extra_binary_job_inlist1_name = 'undefined'
`,
	"binary_controls": `      m1 = 1.0d0
      m2 = 0.8d0
      initial_period_in_days = 0.5d0
      fr = 0.01d0
      read_extra_binary_controls_inlist1 = .false.
      extra_binary_controls_inlist1_name = 'undefined'
`,
	"bin2dco_controls": `      do_star_plus_star = .false.
      star_plus_star_filename = 'inlist_star_plus_star'
      cc1_inlist_filename = 'inlist_cc'
      ce1_inlist_filename = 'inlist_ce'
      stop_after_plus_star = .true.
      do_kicks = .false.
      header_lines_to_skip_in_natal_kicks_file = 1
`,
}

// Install writes a MESA installation under dir: defaults of every star and
// binary group, column lists and the star and binary work directories.
func Install(t T, dir string) string {
	t.Helper()

	paths := map[string]string{
		"star_job":        "star/defaults/star_job.defaults",
		"controls":        "star/defaults/controls.defaults",
		"pgstar":          "star/defaults/pgstar.defaults",
		"eos":             "eos/defaults/eos.defaults",
		"kap":             "kap/defaults/kap.defaults",
		"binary_job":      "binary/defaults/binary_job.defaults",
		"binary_controls": "binary/defaults/binary_controls.defaults",
	}
	for group, rel := range paths {
		write(t, filepath.Join(dir, rel), Defaults[group])
	}

	write(t, filepath.Join(dir, "star/defaults/history_columns.list"), "star_age\nstar_mass\n")
	write(t, filepath.Join(dir, "star/defaults/profile_columns.list"), "zone\nlogT\n")
	write(t, filepath.Join(dir, "binary/defaults/binary_history_columns.list"), "period_days\n")

	for _, work := range []string{"star/work", "binary/work"} {
		for _, script := range []string{"clean", "mk", "re", "rn"} {
			write(t, filepath.Join(dir, work, script), "#!/bin/bash\n")
		}
		write(t, filepath.Join(dir, work, "make/makefile"), "include $(MESA_DIR)/make\n")
	}
	for _, src := range []string{"run.f90", "run_star_extras.f90"} {
		write(t, filepath.Join(dir, "star/work/src", src), "! "+src+"\n")
	}
	for _, src := range []string{"binary_run.f90", "run_binary_extras.f90", "run_star_extras.f90"} {
		write(t, filepath.Join(dir, "binary/work/src", src), "! "+src+"\n")
	}
	return dir
}

// InstallExtension writes a bin2dco source tree under dir.
func InstallExtension(t T, dir string) string {
	t.Helper()

	write(t, filepath.Join(dir, "src/bin2dco_controls.defaults"), Defaults["bin2dco_controls"])
	for _, src := range []string{"bin2dco_misc.inc", "binary_run.f90", "run_binary_extras.f90", "run_star_extras.f90"} {
		write(t, filepath.Join(dir, "src", src), "! "+src+"\n")
	}
	write(t, filepath.Join(dir, "src/ce/ce_mod.f90"), "! ce\n")
	write(t, filepath.Join(dir, "src/core_collapse/cc_mod.f90"), "! cc\n")
	for _, script := range []string{"clean", "mk", "re", "rn"} {
		write(t, filepath.Join(dir, script), "#!/bin/bash\n")
	}
	write(t, filepath.Join(dir, "make/makefile"), "include $(MESA_DIR)/make\n")
	write(t, filepath.Join(dir, "inlist_ce"), "&ce_controls\n/\n")
	write(t, filepath.Join(dir, "inlist_cc"), "&cc_controls\n/\n")
	return dir
}

func write(t T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

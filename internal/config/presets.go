package config

import (
	"sort"

	"github.com/san-kum/mesagrid/internal/job"
	"github.com/san-kum/mesagrid/internal/mesa"
)

// Presets are starting configurations written by init-config, keyed by run
// kind and then by manager.
var Presets = map[mesa.Kind]map[job.Manager]func() *Config{
	mesa.Star: {
		job.Shell: func() *Config { return kindPreset(mesa.Star, job.Shell) },
		job.Slurm: func() *Config { return kindPreset(mesa.Star, job.Slurm) },
	},
	mesa.Binary: {
		job.Shell: func() *Config { return kindPreset(mesa.Binary, job.Shell) },
		job.Slurm: func() *Config { return kindPreset(mesa.Binary, job.Slurm) },
	},
	mesa.Bin2dco: {
		job.Shell: func() *Config { return kindPreset(mesa.Bin2dco, job.Shell) },
		job.Slurm: func() *Config { return kindPreset(mesa.Bin2dco, job.Slurm) },
	},
}

func kindPreset(k mesa.Kind, m job.Manager) *Config {
	cfg := DefaultConfig()
	cfg.Models.ID = k
	cfg.Template.IsBinaryEvolution = k.IsBinary()
	cfg.Manager.Manager = m
	if m == job.Slurm {
		cfg.Manager.NumberOfJobs = 4
		cfg.Manager.HPC.Name = "mesagrid_" + k.String()
	}
	return cfg
}

// GetPreset returns a fresh copy of a preset, or nil.
func GetPreset(k mesa.Kind, m job.Manager) *Config {
	byManager, ok := Presets[k]
	if !ok {
		return nil
	}
	build, ok := byManager[m]
	if !ok {
		return nil
	}
	return build()
}

// ListPresets returns the managers with a preset for k.
func ListPresets(k mesa.Kind) []job.Manager {
	byManager, ok := Presets[k]
	if !ok {
		return nil
	}
	out := make([]job.Manager, 0, len(byManager))
	for m := range byManager {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

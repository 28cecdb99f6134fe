// Package config loads the settings of a grid manager from a YAML file.
package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mesagrid/internal/job"
	"github.com/san-kum/mesagrid/internal/mesa"
)

const (
	DefaultTemplateDir  = "template"
	DefaultRunsDir      = "runs"
	DefaultOptionsFile  = "template_options.yaml"
	DefaultMeshgridFile = "meshgrid.yaml"
	DefaultJobFile      = "mesagrid_job.sh"
	DefaultDatabase     = "mesagrid.db"
	DefaultTable        = "grid"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Mesa     MesaConfig     `mapstructure:"mesa" yaml:"mesa"`
	Template TemplateConfig `mapstructure:"template" yaml:"template"`
	Models   ModelsConfig   `mapstructure:"models" yaml:"models"`
	Manager  ManagerConfig  `mapstructure:"manager" yaml:"manager"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

type MesaConfig struct {
	MesaDir              string `mapstructure:"mesa_dir" yaml:"mesa_dir"`
	SDKRoot              string `mapstructure:"mesasdk_root" yaml:"mesasdk_root"`
	CachesDir            string `mapstructure:"mesa_caches_dir" yaml:"mesa_caches_dir"`
	Bin2dcoDir           string `mapstructure:"mesabin2dco_dir" yaml:"mesabin2dco_dir"`
	HistoryColumns       string `mapstructure:"history_columns_filename" yaml:"history_columns_filename"`
	ProfileColumns       string `mapstructure:"profile_columns_filename" yaml:"profile_columns_filename"`
	BinaryHistoryColumns string `mapstructure:"binary_history_columns_filename" yaml:"binary_history_columns_filename"`
}

type ExtrasConfig struct {
	DirsInSrc     []string `mapstructure:"extra_dir_in_src" yaml:"extra_dir_in_src"`
	FilesInSrc    []string `mapstructure:"extra_files_in_src" yaml:"extra_files_in_src"`
	TemplateFiles []string `mapstructure:"extra_template_files" yaml:"extra_template_files"`
	Makefiles     []string `mapstructure:"extra_makefile" yaml:"extra_makefile"`
}

type TemplateConfig struct {
	OutputDirectory   string       `mapstructure:"output_directory" yaml:"output_directory"`
	IsBinaryEvolution bool         `mapstructure:"is_binary_evolution" yaml:"is_binary_evolution"`
	OptionsFilename   string       `mapstructure:"options_filename" yaml:"options_filename"`
	Overwrite         bool         `mapstructure:"overwrite" yaml:"overwrite"`
	Extras            ExtrasConfig `mapstructure:"extras" yaml:"extras"`
}

type ModelsConfig struct {
	OutputDirectory  string    `mapstructure:"output_directory" yaml:"output_directory"`
	ID               mesa.Kind `mapstructure:"id" yaml:"id"`
	MeshgridFilename string    `mapstructure:"meshgrid_filename" yaml:"meshgrid_filename"`
	Conditions       []string  `mapstructure:"conditions" yaml:"conditions"`
}

type ManagerConfig struct {
	Manager       job.Manager      `mapstructure:"manager" yaml:"manager"`
	NumberOfJobs  int              `mapstructure:"number_of_jobs" yaml:"number_of_jobs"`
	JobFilePrefix string           `mapstructure:"job_file_prefix" yaml:"job_file_prefix"`
	JobFilename   string           `mapstructure:"job_filename" yaml:"job_filename"`
	HPC           job.SlurmOptions `mapstructure:"hpc" yaml:"hpc"`
}

type DatabaseConfig struct {
	Filename       string `mapstructure:"filename" yaml:"filename"`
	Tablename      string `mapstructure:"tablename" yaml:"tablename"`
	RemoveDatabase bool   `mapstructure:"remove_database" yaml:"remove_database"`
	DropTable      bool   `mapstructure:"drop_table" yaml:"drop_table"`
}

func DefaultConfig() *Config {
	return &Config{
		Template: TemplateConfig{
			OutputDirectory:   DefaultTemplateDir,
			IsBinaryEvolution: true,
			OptionsFilename:   DefaultOptionsFile,
			Overwrite:         true,
		},
		Models: ModelsConfig{
			OutputDirectory:  DefaultRunsDir,
			ID:               mesa.Binary,
			MeshgridFilename: DefaultMeshgridFile,
		},
		Manager: ManagerConfig{
			Manager:      job.Shell,
			NumberOfJobs: 1,
			JobFilename:  DefaultJobFile,
			HPC:          job.DefaultSlurmOptions(),
		},
		Database: DatabaseConfig{
			Filename:  DefaultDatabase,
			Tablename: DefaultTable,
		},
	}
}

// CustomHooks turn the run kind and manager strings into their types.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		KindHookFunc(),
		ManagerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)),
}

func KindHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(mesa.Kind("")) {
			return data, nil
		}
		return mesa.Kind(strings.ToLower(strings.TrimSpace(data.(string)))), nil
	}
}

func ManagerHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(job.Manager("")) {
			return data, nil
		}
		return job.Manager(strings.ToLower(strings.TrimSpace(data.(string)))), nil
	}
}

// Load reads path over the defaults. Installation directories left empty
// fall back to MESA_DIR, MESASDK_ROOT and MESA_CACHES_DIR.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, CustomHooks...); err != nil {
		return nil, errors.Wrapf(err, "decoding config %s", path)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	for _, f := range []struct {
		dst *string
		env string
	}{
		{&c.Mesa.MesaDir, "MESA_DIR"},
		{&c.Mesa.SDKRoot, "MESASDK_ROOT"},
		{&c.Mesa.CachesDir, "MESA_CACHES_DIR"},
	} {
		if *f.dst == "" {
			*f.dst = os.Getenv(f.env)
		}
	}
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing config %s", path)
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	fail := func(format string, args ...interface{}) {
		result = multierror.Append(result, errors.Wrapf(ErrInvalid, format, args...))
	}

	if c.Mesa.MesaDir == "" {
		fail("mesa_dir must be set in the config file or as MESA_DIR")
	}
	if _, err := mesa.DefaultRegistry.Get(c.Models.ID); err != nil {
		fail("models.id %q is not one of %v", c.Models.ID, mesa.DefaultRegistry.Kinds())
	} else if c.Models.ID.IsBinary() != c.Template.IsBinaryEvolution {
		fail("models.id %q does not match is_binary_evolution=%t", c.Models.ID, c.Template.IsBinaryEvolution)
	}
	if c.Models.ID == mesa.Bin2dco && c.Mesa.Bin2dcoDir == "" {
		fail("mesabin2dco_dir is required for %s runs", mesa.Bin2dco)
	}
	if c.Template.OutputDirectory == "" {
		fail("template.output_directory is empty")
	}
	if c.Models.OutputDirectory == "" {
		fail("models.output_directory is empty")
	}
	if c.Models.MeshgridFilename == "" {
		fail("models.meshgrid_filename is empty")
	}
	if c.Manager.NumberOfJobs < 1 {
		fail("number_of_jobs must be >= 1, got %d", c.Manager.NumberOfJobs)
	}
	if _, err := c.JobFile(); err != nil {
		fail("job_file_prefix and job_filename cannot both be empty")
	}
	switch c.Manager.Manager {
	case job.Shell:
	case job.Slurm:
		if err := c.Manager.HPC.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrap(ErrInvalid, err.Error()))
		}
	default:
		fail("unknown manager %q", c.Manager.Manager)
	}
	return result.ErrorOrNil()
}

func (c *Config) Installation() mesa.Installation {
	return mesa.Installation{
		MesaDir:      c.Mesa.MesaDir,
		SDKDir:       c.Mesa.SDKRoot,
		CachesDir:    c.Mesa.CachesDir,
		ExtensionDir: c.Mesa.Bin2dcoDir,
	}
}

// JobFile is the name of the job script.
func (c *Config) JobFile() (string, error) {
	return job.FileName(c.Manager.JobFilePrefix, c.Manager.JobFilename)
}

// ColumnLists returns the column list files configured by the user.
func (c *Config) ColumnLists() []string {
	var out []string
	for _, f := range []string{c.Mesa.HistoryColumns, c.Mesa.ProfileColumns, c.Mesa.BinaryHistoryColumns} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

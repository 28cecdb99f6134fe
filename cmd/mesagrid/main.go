package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/mesagrid/internal/config"
	"github.com/san-kum/mesagrid/internal/logging"
	"github.com/san-kum/mesagrid/internal/materialize"
)

var (
	configFile  string
	debug       bool
	showLogName bool

	// create
	withProgress bool
	skipCompile  bool
	// list
	jsonFile string
	csvFile  string
	// status
	setStatus string
	// init-config
	presetKind    string
	presetManager string
	outputFile    string
)

// errShown stops a command after --show-log-name printed the log path.
var errShown = errors.New("log name shown")

func main() {
	rootCmd := &cobra.Command{
		Use:           "mesagrid",
		Short:         "build and run grids of MESA models",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showLogName {
				fmt.Println(logging.Path())
				return nil
			}
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "C", "config.yaml", "manager configuration file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&showLogName, "show-log-name", false, "print the log file name and exit")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create template, runs, database, manifests and job script",
		Args:  cobra.NoArgs,
		RunE:  createGrid,
	}
	createCmd.Flags().BoolVar(&withProgress, "progress", false, "show a progress view")
	createCmd.Flags().BoolVar(&skipCompile, "skip-compile", false, "do not compile the template")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list the runs of the grid without writing anything",
		Args:  cobra.NoArgs,
		RunE:  listGrid,
	}
	listCmd.Flags().StringVar(&jsonFile, "json", "", "also write the plan as json to this file")
	listCmd.Flags().StringVar(&csvFile, "csv", "", "also write the plan as csv to this file")

	batchesCmd := &cobra.Command{
		Use:   "batches",
		Short: "show how runs are split into batches",
		Args:  cobra.NoArgs,
		RunE:  showBatches,
	}

	compileCmd := &cobra.Command{
		Use:   "compile",
		Short: "compile the template directory",
		Args:  cobra.NoArgs,
		RunE:  compileTemplate,
	}

	submitCmd := &cobra.Command{
		Use:   "submit [batch]",
		Short: "submit one batch",
		Args:  cobra.ExactArgs(1),
		RunE:  submitBatch,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "show the run table",
		Args:  cobra.NoArgs,
		RunE:  showStatus,
	}
	statusCmd.Flags().StringVar(&setStatus, "set", "", "update a run status, as name=status")

	initCmd := &cobra.Command{
		Use:   "init-config",
		Short: "write a starting configuration file",
		Args:  cobra.NoArgs,
		RunE:  initConfig,
	}
	initCmd.Flags().StringVar(&presetKind, "kind", "mesabinary", "run kind (mesastar, mesabinary, mesabin2dco)")
	initCmd.Flags().StringVar(&presetManager, "manager", "shell", "job manager (shell, slurm)")
	initCmd.Flags().StringVarP(&outputFile, "output", "o", "config.yaml", "file to write")

	rootCmd.AddCommand(createCmd, listCmd, batchesCmd, compileCmd, submitCmd, statusCmd, initCmd)

	err := rootCmd.Execute()
	if errors.Is(err, errShown) {
		err = nil
	}
	if err != nil {
		report(err)
	}
	if closeLog != nil {
		closeLog()
	}
	if err != nil {
		os.Exit(1)
	}
}

// Set by setup once the log file is open.
var (
	logEntry *log.Entry
	closeLog func()
)

// setup builds the logger, loads and validates the configuration and returns
// a driver for it.
func setup() (*materialize.Driver, error) {
	if showLogName {
		fmt.Println(logging.Path())
		return nil, errShown
	}

	logger, closer, err := logging.New(logging.Path(), debug, os.Stderr)
	if err != nil {
		return nil, err
	}
	closeLog = func() { closer.Close() }
	logEntry = log.NewEntry(logger)
	logEntry.WithField("config", configFile).Debug("loading settings")

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, errors.WithMessage(err, "could not load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid configuration")
	}
	return materialize.New(cfg, logEntry), nil
}

// report logs err once the logger exists; the console hook echoes it on
// stderr. Earlier failures go to stderr directly.
func report(err error) {
	if logEntry != nil {
		logEntry.WithError(err).Error("mesagrid failed")
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

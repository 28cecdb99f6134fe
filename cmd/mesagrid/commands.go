package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/san-kum/mesagrid/internal/batch"
	"github.com/san-kum/mesagrid/internal/config"
	"github.com/san-kum/mesagrid/internal/export"
	"github.com/san-kum/mesagrid/internal/grid"
	"github.com/san-kum/mesagrid/internal/job"
	"github.com/san-kum/mesagrid/internal/materialize"
	"github.com/san-kum/mesagrid/internal/mesa"
	"github.com/san-kum/mesagrid/internal/progress"
	"github.com/san-kum/mesagrid/internal/storage"
)

var (
	header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func createGrid(cmd *cobra.Command, args []string) error {
	driver, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	opts := materialize.Options{SkipCompile: skipCompile}
	if !withProgress {
		p, err := driver.Run(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Printf("%d runs written to %s\n", len(p.Runs), p.RunsDir)
		return nil
	}
	return progress.Run(os.Stdout, func(report func(progress.Event)) error {
		driver.OnProgress = report
		_, err := driver.Run(ctx, opts)
		return err
	})
}

func enumerate(driver *materialize.Driver) ([]grid.Run, error) {
	cat, err := driver.LoadCatalog()
	if err != nil {
		return nil, err
	}
	return driver.Enumerate(cat)
}

func listGrid(cmd *cobra.Command, args []string) error {
	driver, err := setup()
	if err != nil {
		return err
	}

	runs, err := enumerate(driver)
	if err != nil {
		return err
	}

	fmt.Println(header.Render(fmt.Sprintf("%s grid: %d runs", driver.Config.Models.ID, len(runs))))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBATCH")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%d\n", r.ID, r.Name, r.Batch)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if jsonFile != "" {
		plan := export.NewPlan(driver.Config.Models.ID.String(), driver.Config.Manager.NumberOfJobs, runs)
		if err := export.ToFile(jsonFile, func(w io.Writer) error { return export.WriteJSON(w, plan) }); err != nil {
			return err
		}
		fmt.Println(dim.Render("plan written to " + jsonFile))
	}
	if csvFile != "" {
		if err := export.ToFile(csvFile, func(w io.Writer) error { return export.WriteCSV(w, runs) }); err != nil {
			return err
		}
		fmt.Println(dim.Render("plan written to " + csvFile))
	}
	return nil
}

func showBatches(cmd *cobra.Command, args []string) error {
	driver, err := setup()
	if err != nil {
		return err
	}

	runs, err := enumerate(driver)
	if err != nil {
		return err
	}
	n := driver.Config.Manager.NumberOfJobs
	sizes := batch.Sizes(len(runs), n)

	fmt.Println(header.Render(fmt.Sprintf("%d runs in %d batches", len(runs), n)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tRUNS\tMANIFEST")
	for k, size := range sizes {
		fmt.Fprintf(w, "%d\t%d\t%s\n", k, size, batch.ManifestPath(driver.Config.Models.OutputDirectory, k))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(sizes) > 1 {
		data := make([]float64, len(sizes))
		for i, s := range sizes {
			data[i] = float64(s)
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("runs per batch"),
		))
	}
	return nil
}

func compileTemplate(cmd *cobra.Command, args []string) error {
	driver, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return driver.Compile(ctx)
}

func submitBatch(cmd *cobra.Command, args []string) error {
	k, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrapf(job.ErrInvalidBatch, "%q is not a number", args[0])
	}
	driver, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	out, err := driver.Submit(ctx, k)
	os.Stdout.Write(out)
	return err
}

func showStatus(cmd *cobra.Command, args []string) error {
	driver, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	if setStatus != "" {
		name, status, ok := strings.Cut(setStatus, "=")
		if !ok || name == "" || status == "" {
			return errors.Errorf("--set expects name=status, got %q", setStatus)
		}
		if err := driver.SetStatus(ctx, name, status); err != nil {
			return err
		}
	}

	recs, err := driver.Records(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBATCH\tSTATUS")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", r.ID, r.ModelName, r.JobID, r.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println(dim.Render(statusSummary(recs)))
	return nil
}

// statusSummary counts records per status, statuses in alphabetical order.
func statusSummary(recs []storage.Record) string {
	counts := map[string]int{}
	for _, r := range recs {
		counts[r.Status]++
	}
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, fmt.Sprintf("%s: %d", status, counts[status]))
	}
	return strings.Join(parts, "  ")
}

func initConfig(cmd *cobra.Command, args []string) error {
	kind, err := mesa.ParseKind(presetKind)
	if err != nil {
		return err
	}
	manager, err := job.ParseManager(presetManager)
	if err != nil {
		return err
	}
	cfg := config.GetPreset(kind, manager)
	if cfg == nil {
		return errors.Errorf("no preset for %s with %s", kind, manager)
	}
	if _, err := os.Stat(outputFile); err == nil {
		return errors.Errorf("%s already exists", outputFile)
	}
	if err := config.Save(outputFile, cfg); err != nil {
		return err
	}
	fmt.Printf("configuration written to %s\n", outputFile)
	return nil
}

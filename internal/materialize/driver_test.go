package materialize_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/san-kum/mesagrid/internal/batch"
	"github.com/san-kum/mesagrid/internal/catalog"
	"github.com/san-kum/mesagrid/internal/catalog/catalogtest"
	"github.com/san-kum/mesagrid/internal/config"
	"github.com/san-kum/mesagrid/internal/grid"
	"github.com/san-kum/mesagrid/internal/job"
	"github.com/san-kum/mesagrid/internal/materialize"
	"github.com/san-kum/mesagrid/internal/mesa"
	"github.com/san-kum/mesagrid/internal/progress"
	"github.com/san-kum/mesagrid/internal/storage"
)

type recordingRunner struct {
	mu    sync.Mutex
	names []string
	args  [][]string
}

func (r *recordingRunner) Run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.args = append(r.args, args)
	return []byte("ok\n"), nil
}

func writeFile(path, content string) {
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

var _ = Describe("Driver", func() {
	var (
		root   string
		cfg    *config.Config
		runner *recordingRunner
		driver *materialize.Driver
		events []progress.Event
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		cfg = config.DefaultConfig()
		cfg.Mesa.MesaDir = catalogtest.Install(GinkgoT(), filepath.Join(root, "mesa"))
		cfg.Mesa.SDKRoot = filepath.Join(root, "sdk")
		cfg.Mesa.CachesDir = filepath.Join(root, "caches")
		Expect(os.MkdirAll(cfg.Mesa.SDKRoot, 0755)).To(Succeed())
		Expect(os.MkdirAll(cfg.Mesa.CachesDir, 0755)).To(Succeed())

		cfg.Template.OutputDirectory = filepath.Join(root, "work", "template")
		cfg.Template.OptionsFilename = filepath.Join(root, "template_options.yaml")
		cfg.Models.OutputDirectory = filepath.Join(root, "work", "runs")
		cfg.Models.MeshgridFilename = filepath.Join(root, "meshgrid.yaml")
		cfg.Models.Conditions = []string{"m1 < m2"}
		cfg.Manager.NumberOfJobs = 2
		cfg.Manager.JobFilePrefix = root + string(filepath.Separator)
		cfg.Database.Filename = filepath.Join(root, "grid.db")

		writeFile(cfg.Models.MeshgridFilename, `
binary_controls:
  m1: [10.0, 12.0]
  m2: [8.0, 11.0]
`)
		writeFile(cfg.Template.OptionsFilename, `
binary_controls:
  initial_period_in_days: 2.0
controls:
  history_interval: 1
`)

		logger, _ := test.NewNullLogger()
		runner = &recordingRunner{}
		events = nil
		driver = materialize.New(cfg, logrus.NewEntry(logger))
		driver.Runner = runner
		driver.OnProgress = func(e progress.Event) { events = append(events, e) }
	})

	Describe("Plan", func() {
		It("enumerates, excludes and batches the grid", func() {
			p, err := driver.Plan()
			Expect(err).NotTo(HaveOccurred())

			var names []string
			var ids, batches []int
			for _, r := range p.Runs {
				names = append(names, r.Name)
				ids = append(ids, r.ID)
				batches = append(batches, r.Batch)
			}
			Expect(names).To(Equal([]string{"m1_10_m2_8", "m1_12_m2_8", "m1_12_m2_11"}))
			Expect(ids).To(Equal([]int{0, 1, 3}))
			Expect(batches).To(Equal([]int{0, 0, 1}))
			Expect(p.Configs).To(HaveLen(3))
			Expect(p.Template.Group("controls").Keys()).To(Equal([]string{"history_interval"}))
		})

		It("reports every unknown option of the grid", func() {
			writeFile(cfg.Models.MeshgridFilename, "binary_controls:\n  m3: [1, 2]\n  m4: 1\n")
			_, err := driver.Plan()
			Expect(err).To(MatchError(catalog.ErrUnknownOption))
			Expect(err.Error()).To(ContainSubstring(`"m3"`))
			Expect(err.Error()).To(ContainSubstring(`"m4"`))
		})

		It("fails on a malformed condition", func() {
			cfg.Models.Conditions = []string{"m1 <"}
			_, err := driver.Plan()
			Expect(err).To(HaveOccurred())
		})

		It("refuses runs that share a name before writing anything", func() {
			cfg.Models.Conditions = nil
			writeFile(cfg.Models.MeshgridFilename, "binary_controls:\n  m1: [10, 10.0]\n")

			_, err := driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).To(MatchError(grid.ErrDuplicateName))
			Expect(err.Error()).To(ContainSubstring(`runs 0 and 1 are both "m1_10"`))
			Expect(cfg.Models.OutputDirectory).NotTo(BeADirectory())
			Expect(cfg.Database.Filename).NotTo(BeAnExistingFile())
		})

		It("fails when every run is excluded", func() {
			cfg.Models.Conditions = []string{"true"}
			_, err := driver.Plan()
			Expect(err).To(MatchError(batch.ErrNoRuns))
		})
	})

	Describe("Run", func() {
		It("materializes a binary grid", func() {
			p, err := driver.Run(context.Background(), materialize.Options{})
			Expect(err).NotTo(HaveOccurred())

			tpl := cfg.Template.OutputDirectory
			Expect(filepath.Join(tpl, "src", "binary_run.f90")).To(BeAnExistingFile())
			Expect(filepath.Join(tpl, "make", "makefile")).To(BeAnExistingFile())
			Expect(filepath.Join(tpl, "binary_history_columns.list")).To(BeAnExistingFile())
			Expect(readFile(filepath.Join(tpl, mesa.InitInlist))).To(ContainSubstring(
				"extra_binary_controls_inlist1_name = '" + filepath.Join(tpl, mesa.ProjectInlist) + "'"))
			project := readFile(filepath.Join(tpl, mesa.ProjectInlist))
			Expect(project).To(ContainSubstring("   initial_period_in_days = 2.0000000000d+00\n"))
			Expect(project).To(ContainSubstring("   inlist_names(1) = 'inlist1'\n"))
			Expect(project).To(ContainSubstring("   history_interval = 1\n"))

			run := filepath.Join(cfg.Models.OutputDirectory, "m1_12_m2_11")
			Expect(readFile(filepath.Join(run, mesa.BinaryInlist))).To(Equal(
				"&binary_controls\n   m1 = 1.2000000000d+01\n   m2 = 1.1000000000d+01\n/ ! end of binary_controls namelist\n"))
			star1 := readFile(filepath.Join(run, mesa.Star1Inlist))
			Expect(star1).To(ContainSubstring("log_directory = 'LOGS1'"))
			Expect(star1).To(ContainSubstring("extra_controls_inlist1_name = '" + filepath.Join(tpl, mesa.ProjectInlist) + "'"))
			Expect(readFile(filepath.Join(run, mesa.Star2Inlist))).To(ContainSubstring("log_directory = 'LOGS2'"))

			names, err := batch.ReadManifest(batch.ManifestPath(cfg.Models.OutputDirectory, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"m1_10_m2_8", "m1_12_m2_8"}))
			names, err = batch.ReadManifest(batch.ManifestPath(cfg.Models.OutputDirectory, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"m1_12_m2_11"}))

			script := readFile(filepath.Join(root, config.DefaultJobFile))
			Expect(script).To(HavePrefix("#!/bin/sh\n"))
			Expect(script).To(ContainSubstring("$MESA_TEMPLATE_DIR/binary | tee log"))

			recs, err := driver.Records(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(3))
			Expect(recs[2].ModelName).To(Equal("m1_12_m2_11"))
			Expect(recs[2].JobID).To(Equal(1))
			Expect(recs[2].Status).To(Equal(storage.StatusNotComputed))
			Expect(recs[2].TemplateDirectory).To(Equal(p.TemplateDir))

			Expect(runner.names).To(Equal([]string{"bash"}))
			Expect(runner.args[0][1]).To(HaveSuffix("./mk"))

			Expect(events).NotTo(BeEmpty())
			last := events[len(events)-1]
			Expect(last.Stage).To(Equal(materialize.StageDatabase))
			Expect(last.Done).To(Equal(3))
			Expect(last.Total).To(Equal(3))
		})

		It("keeps existing records on a second pass", func() {
			_, err := driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.SetStatus(context.Background(), "m1_10_m2_8", "done")).To(Succeed())

			_, err = driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).NotTo(HaveOccurred())
			recs, err := driver.Records(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(3))
			Expect(recs[0].Status).To(Equal("done"))
			Expect(runner.names).To(BeEmpty())
		})

		It("writes run directories one by one in id order", func() {
			p, err := driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).NotTo(HaveOccurred())

			var written []string
			for _, e := range events {
				if e.Stage != materialize.StageRuns {
					continue
				}
				written = append(written, e.Item)
				Expect(e.Done).To(Equal(len(written)))
				Expect(e.Total).To(Equal(3))
			}
			Expect(written).To(Equal([]string{"m1_10_m2_8", "m1_12_m2_8", "m1_12_m2_11"}))
			for _, rc := range p.Configs {
				Expect(filepath.Join(rc.Dir, mesa.BinaryInlist)).To(BeAnExistingFile())
				Expect(filepath.Join(rc.Dir, mesa.Star2Inlist)).To(BeAnExistingFile())
			}
		})

		It("starts from an empty table when asked to drop it", func() {
			_, err := driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.SetStatus(context.Background(), "m1_10_m2_8", "done")).To(Succeed())

			cfg.Database.DropTable = true
			_, err = driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).NotTo(HaveOccurred())
			recs, err := driver.Records(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(recs[0].Status).To(Equal(storage.StatusNotComputed))
		})

		It("materializes a single star grid", func() {
			cfg.Models.ID = mesa.Star
			cfg.Template.IsBinaryEvolution = false
			cfg.Models.Conditions = nil
			cfg.Manager.NumberOfJobs = 1
			writeFile(cfg.Models.MeshgridFilename, "controls:\n  initial_mass: [1.0, 2.0]\n")
			writeFile(cfg.Template.OptionsFilename, "star_job:\n  pgstar_flag: true\n")

			_, err := driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).NotTo(HaveOccurred())

			Expect(filepath.Join(cfg.Template.OutputDirectory, "src", "run.f90")).To(BeAnExistingFile())
			Expect(readFile(filepath.Join(cfg.Models.OutputDirectory, "initial_mass_1", mesa.StarInlist))).To(Equal(""))
			Expect(readFile(filepath.Join(cfg.Models.OutputDirectory, "initial_mass_2", mesa.StarInlist))).To(Equal(
				"&controls\n   initial_mass = 2.0000000000d+00\n/ ! end of controls namelist\n"))
			script := readFile(filepath.Join(root, config.DefaultJobFile))
			Expect(script).To(ContainSubstring("$MESA_TEMPLATE_DIR/star | tee log"))
		})

		It("materializes a bin2dco grid", func() {
			cfg.Models.ID = mesa.Bin2dco
			cfg.Mesa.Bin2dcoDir = catalogtest.InstallExtension(GinkgoT(), filepath.Join(root, "bin2dco"))
			writeFile(cfg.Template.OptionsFilename, "bin2dco_controls:\n  do_kicks: true\ncontrols:\n  history_interval: 1\n")

			_, err := driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).NotTo(HaveOccurred())

			tpl := cfg.Template.OutputDirectory
			Expect(filepath.Join(tpl, "inlist_ce")).To(BeAnExistingFile())
			Expect(filepath.Join(tpl, "src", "ce", "ce_mod.f90")).To(BeAnExistingFile())
			Expect(readFile(filepath.Join(tpl, mesa.InitInlist))).To(Equal(
				"&bin2dco_controls\n   do_kicks = .true.\n/ ! end of bin2dco_controls namelist\n"))
		})
	})

	Describe("Submit", func() {
		It("launches one batch with its manifest", func() {
			_, err := driver.Run(context.Background(), materialize.Options{SkipCompile: true})
			Expect(err).NotTo(HaveOccurred())

			out, err := driver.Submit(context.Background(), 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(out)).To(Equal("ok\n"))
			Expect(runner.names).To(Equal([]string{"sh"}))
			Expect(runner.args[0]).To(Equal([]string{
				filepath.Join(root, config.DefaultJobFile),
				batch.ManifestPath(cfg.Models.OutputDirectory, 1),
			}))

			_, err = driver.Submit(context.Background(), 2)
			Expect(err).To(MatchError(job.ErrInvalidBatch))
		})
	})

	It("writes nothing while planning", func() {
		_, err := driver.Plan()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Template.OutputDirectory).NotTo(BeADirectory())
		Expect(cfg.Models.OutputDirectory).NotTo(BeADirectory())
		Expect(cfg.Database.Filename).NotTo(BeAnExistingFile())
	})
})

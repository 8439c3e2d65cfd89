package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vmsim/config"
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/kernel"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/pagefault"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/monitoring"
)

var runCmd = &cobra.Command{
	Use:   "run [program...]",
	Short: "Run programs on the simulated machine.",
	Long: "`run prog1 prog2` loads every program into its own address space " +
		"and switches between them round-robin while each touches its " +
		"memory. Settings come from VMSIM_* variables, the files given " +
		"with --env, and the flags, in increasing priority.",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := runOptionsFromFlags(cmd.Flags())
		if err != nil {
			fatalf("Error: %v", err)
		}

		opts.programs = args

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		err = runPrograms(ctx, opts, os.Stdout, log.New(os.Stderr, "", 0))
		if err != nil {
			fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

func addRunFlags(f *pflag.FlagSet) {
	f.StringSlice("env", nil, "Files to read VMSIM_* settings from")
	f.String("dir", "", "Directory programs are loaded from")

	f.Int("phys-pages", 0, "Number of physical frames")
	f.Int("page-size", 0, "Page size in bytes")
	f.String("policy", "", "Replacement policy: demand, fifo, or random")
	f.String("layout", "", "Page table layout: flat or two-level")
	f.Int("outer-size", 0, "Outer table size of two-level page tables")
	f.Int("inner-size", 0, "Inner table size of two-level page tables")
	f.Int("stack-size", 0, "User stack size in bytes")
	f.BoolP("verbose", "v", false, "Print every fault and the memory map")
	f.Int64("seed", 0, "Seed of the random replacement policy")
	f.String("swap-dir", "", "Directory for swap files, in memory if empty")
	f.String("record", "", "Record faults into this SQLite database")
	f.Int("monitor-port", 0, "Serve the monitor on this port")
	f.Bool("open-browser", false, "Open the monitor in a browser")
	f.Bool("hold", false, "Keep the monitor running after the programs finish")

	defaults := kernel.DefaultWorkload(config.Default().PageSize)
	f.Int("quantum", defaults.Quantum, "Accesses per time slice")
	f.Int("steps", defaults.Steps, "Accesses before a program exits")
	f.Int("stride", 0, "Distance between accesses, about half a page if zero")
	f.Int("write-every", defaults.WriteEvery, "Make every n-th access a store")
}

type runOptions struct {
	config      config.Config
	programDir  string
	programs    []string
	workload    kernel.Workload
	openBrowser bool
	hold        bool
}

func runOptionsFromFlags(f *pflag.FlagSet) (runOptions, error) {
	opts := runOptions{}

	envFiles, _ := f.GetStringSlice("env")

	c, err := config.FromEnv(envFiles...)
	if err != nil {
		return opts, err
	}

	if err := applyFlags(f, &c); err != nil {
		return opts, err
	}

	if err := c.Validate(); err != nil {
		return opts, err
	}

	opts.config = c
	opts.programDir, _ = f.GetString("dir")
	opts.openBrowser, _ = f.GetBool("open-browser")
	opts.hold, _ = f.GetBool("hold")

	opts.workload = kernel.DefaultWorkload(c.PageSize)
	opts.workload.Quantum, _ = f.GetInt("quantum")
	opts.workload.Steps, _ = f.GetInt("steps")
	opts.workload.WriteEvery, _ = f.GetInt("write-every")

	if stride, _ := f.GetInt("stride"); stride > 0 {
		opts.workload.Stride = stride
	}

	return opts, nil
}

// applyFlags overrides the settings whose flags were given.
func applyFlags(f *pflag.FlagSet, c *config.Config) error {
	ints := map[string]*int{
		"phys-pages":   &c.NumPhysPages,
		"page-size":    &c.PageSize,
		"outer-size":   &c.OuterTableSize,
		"inner-size":   &c.InnerTableSize,
		"stack-size":   &c.UserStackSize,
		"monitor-port": &c.MonitorPort,
	}

	for name, dst := range ints {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}

	if f.Changed("policy") {
		s, _ := f.GetString("policy")

		kind, err := replacement.ParseKind(s)
		if err != nil {
			return err
		}

		c.Policy = kind
	}

	if f.Changed("layout") {
		s, _ := f.GetString("layout")

		layout, err := vm.ParseLayout(s)
		if err != nil {
			return err
		}

		c.Layout = layout
	}

	if f.Changed("verbose") {
		c.Verbose, _ = f.GetBool("verbose")
	}

	if f.Changed("seed") {
		c.Seed, _ = f.GetInt64("seed")
	}

	if f.Changed("swap-dir") {
		c.SwapDir, _ = f.GetString("swap-dir")
	}

	if f.Changed("record") {
		c.RecordPath, _ = f.GetString("record")
	}

	return nil
}

func runPrograms(
	ctx context.Context,
	opts runOptions,
	out io.Writer,
	logger *log.Logger,
) error {
	c := opts.config

	k, err := kernel.MakeBuilder().
		WithConfig(c).
		WithLoader(kernel.OSLoader{Dir: opts.programDir}).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	atexit.Register(k.Shutdown)
	defer k.Shutdown()

	if c.RecordPath != "" {
		finish := startRecording(k, c)
		defer finish()
	}

	var bar *monitoring.ProgressBar
	var monitor *monitoring.Monitor
	if c.MonitorPort > 0 {
		monitor = startMonitor(k, c.MonitorPort, opts.openBrowser)
	}

	for _, name := range opts.programs {
		if _, err := k.StartProcess(name); err != nil {
			logger.Printf("Unable to start %s: %v", name, err)
		}
	}

	w := opts.workload
	if monitor != nil {
		bar = monitor.CreateProgressBar("Workload",
			uint64(len(k.Processes())*w.Steps))
		w.Progress = bar
	}

	runErr := k.Run(ctx, w)

	if bar != nil {
		monitor.CompleteProgressBar(bar)
	}

	printSummary(out, k)

	if monitor != nil && opts.hold && runErr == nil {
		fmt.Fprintln(out, "Programs finished. Press Ctrl+C to stop the monitor.")
		<-ctx.Done()
	}

	return runErr
}

func startRecording(k *kernel.Kernel, c config.Config) (finish func()) {
	recorder := datarecording.New(c.RecordPath)

	exec := datarecording.NewExecRecorder(recorder)
	exec.Start()
	exec.Note("Number of Physical Pages", strconv.Itoa(c.NumPhysPages))
	exec.Note("Page Size", strconv.Itoa(c.PageSize))
	exec.Note("Replacement Policy", c.Policy.String())
	exec.Note("Page Table Layout", c.Layout.String())
	exec.Note("Seed", strconv.FormatInt(c.Seed, 10))

	k.Handler().AcceptHook(pagefault.NewRecorder(recorder))

	return func() {
		exec.End()

		if err := recorder.Close(); err != nil {
			log.Printf("Closing recording: %v", err)
		}
	}
}

func startMonitor(
	k *kernel.Kernel,
	port int,
	openBrowser bool,
) *monitoring.Monitor {
	m := monitoring.NewMonitor().WithPortNumber(port)
	m.RegisterKernel(k)

	actualPort := m.StartServer()

	if openBrowser {
		url := fmt.Sprintf("http://localhost:%d", actualPort)
		if err := browser.OpenURL(url); err != nil {
			log.Printf("Unable to open %s: %v", url, err)
		}
	}

	return m
}

func printSummary(w io.Writer, k *kernel.Kernel) {
	fmt.Fprintln(w, "PID  NAME                 STATUS      PAGE-INS  PAGE-OUTS  WRITE-BACKS")

	for _, info := range k.Processes() {
		fmt.Fprintf(w, "%-4d %-20s %-11s %8d  %9d  %11d\n",
			info.PID, info.Name, info.Status,
			info.Stats.PageIns, info.Stats.PageOuts, info.Stats.WriteBacks)

		if info.Error != "" {
			fmt.Fprintf(w, "     %s\n", info.Error)
		}
	}

	fmt.Fprintf(w, "Total page faults: %d\n", k.Handler().NumFaults())
}

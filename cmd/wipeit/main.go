package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wipeit/internal/app"
	"wipeit/internal/config"
	"wipeit/internal/device"
	"wipeit/internal/logging"
)

const (
	Version = "2.0.0"

	// Exit codes. Interrupted is distinguishable from failed so
	// scripts can tell a resumable session apart.
	ExitSuccess     = 0
	ExitError       = 1
	ExitInterrupted = 3
)

var (
	cfg    *config.Config
	logger *zap.SugaredLogger

	bufferSizeStr string
	resume        bool
	skipPretest   bool
	assumeYes     bool
	verbose       bool
	configPath    string
)

var rootCmd = &cobra.Command{
	Use:   "wipeit [device]",
	Short: "Secure block device wiping utility",
	Long: "wipeit overwrites block devices with cryptographically strong random data.\n" +
		"Interrupted wipes can be resumed on the same physical device.\n\n" +
		"WARNING: this tool PERMANENTLY DESTROYS ALL DATA on the target device.",
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWipe,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available block devices",
	RunE:  runList,
}

var pretestCmd = &cobra.Command{
	Use:   "pretest <device>",
	Short: "Measure device write throughput without wiping",
	Args:  cobra.ExactArgs(1),
	RunE:  runPretest,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	rootCmd.Flags().StringVarP(&bufferSizeStr, "buffer-size", "b", "", "buffer size (e.g. 100M, 1G; range 1M-1T)")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "resume previous wipe session")
	rootCmd.Flags().BoolVar(&skipPretest, "skip-pretest", false, "skip HDD pretest (use standard algorithm)")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(listCmd, pretestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if errors.Is(err, app.ErrInterrupted) {
			os.Exit(ExitInterrupted)
		}
		os.Exit(ExitError)
	}

	os.Exit(ExitSuccess)
}

func setup(cmd *cobra.Command) error {
	var err error

	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err = logging.New(cfg, verbose)
	if err != nil {
		return err
	}

	return nil
}

func requireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command must be run as root (sudo)")
	}

	return nil
}

func runWipe(cmd *cobra.Command, args []string) error {
	if err := setup(cmd); err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a := app.New(cfg, logger)

	// Without a device argument, show what can be resumed and what
	// devices exist.
	if len(args) == 0 {
		showResumeInfo(a)
		return runList(cmd, args)
	}

	if err := requireRoot(); err != nil {
		return err
	}

	devicePath := args[0]
	if _, err := os.Stat(devicePath); err != nil {
		return fmt.Errorf("device %s does not exist", devicePath)
	}

	opts := app.Options{
		DevicePath:  devicePath,
		Resume:      resume,
		SkipPretest: skipPretest,
		ExtraSink:   &displaySink{},
	}

	if cmd.Flags().Changed("buffer-size") {
		size, err := config.ParseSize(bufferSizeStr)
		if err != nil {
			return err
		}
		opts.BufferSize = size
		opts.ForcedBuffer = true
	}

	if !resume {
		showResumeInfo(a)
	}

	printDeviceInfo(devicePath)

	if !assumeYes {
		if !confirm(devicePath) {
			fmt.Println("Wipe cancelled by user")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Starting secure wipe...")

	if err := a.Run(ctx, opts); err != nil {
		if errors.Is(err, app.ErrInterrupted) {
			fmt.Println("\nWipe interrupted, progress saved. Run again with --resume to continue.")
		}
		return err
	}

	fmt.Println("\nWipe completed successfully")

	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		if err := setup(cmd); err != nil {
			return err
		}
	}

	devices, err := device.List()
	if err != nil {
		return err
	}

	fmt.Println("Available devices:")

	for _, path := range devices {
		printDeviceInfo(path)
		fmt.Println("---")
	}

	return nil
}

func runPretest(cmd *cobra.Command, args []string) error {
	if err := setup(cmd); err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := requireRoot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("WARNING: the pretest writes random probe data to the device.")

	if !assumeYes && !confirm(args[0]) {
		fmt.Println("Pretest cancelled by user")
		return nil
	}

	a := app.New(cfg, logger)

	result, err := a.RunPretest(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Average speed:   %.2f MB/s\n", result.AverageSpeed)
	fmt.Printf("Speed deviation: %.2f MB/s\n", result.SpeedVariance)
	fmt.Printf("Recommendation:  %s (%s)\n", result.Recommendation, result.Reason)

	return nil
}

func showResumeInfo(a *app.App) {
	rec := a.Store().Load()
	if rec == nil {
		return
	}

	fmt.Println("Found a previous wipe session:")
	fmt.Printf("  Device:   %s\n", rec.Device)
	fmt.Printf("  Progress: %.2f%% (%s / %s)\n",
		rec.ProgressPercent,
		humanize.IBytes(uint64(rec.Written)),
		humanize.IBytes(uint64(rec.TotalSize)))
	fmt.Printf("  Saved:    %s\n", time.Unix(rec.Timestamp, 0).Format(time.RFC1123))
	fmt.Println("Use --resume to continue it.")
	fmt.Println()
}

func printDeviceInfo(path string) {
	dev := device.New(path)

	fmt.Printf("Device: %s\n", path)

	size, err := dev.Size()
	if err != nil {
		fmt.Printf("  size unavailable: %v\n", err)
		return
	}
	fmt.Printf("  Size:  %s\n", humanize.IBytes(uint64(size)))

	if id, err := dev.Identity(); err == nil {
		if id.Model != "" {
			fmt.Printf("  Model: %s\n", id.Model)
		}
		if id.Serial != "" {
			fmt.Printf("  Serial: %s\n", id.Serial)
		}
	}

	diskType, confidence, _ := dev.DetectType()
	fmt.Printf("  Type:  %s (confidence: %s)\n", diskType, confidence)

	if mounted, mounts, err := dev.IsMounted(); err == nil && mounted {
		fmt.Printf("  WARNING: device is mounted: %s\n", strings.Join(mounts, ", "))
	}
}

func confirm(devicePath string) bool {
	fmt.Printf("\nThis will PERMANENTLY DESTROY ALL DATA on %s\n", devicePath)
	fmt.Println("This action CANNOT be undone.")
	fmt.Print("Type 'y' to proceed, anything else to abort: ")

	reader := bufio.NewReader(os.Stdin)

	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.ToLower(strings.TrimSpace(line)) == "y"
}

// displaySink renders progress on the terminal while the progress
// store handles persistence.
type displaySink struct{}

func (d *displaySink) Checkpoint(written, totalSize, chunkSize int64) {
	percent := float64(written) / float64(totalSize) * 100

	fmt.Printf("\rProgress: %.1f%% (%s / %s)",
		percent,
		humanize.IBytes(uint64(written)),
		humanize.IBytes(uint64(totalSize)))
}

func (d *displaySink) Milestone(percent int, estimatedFinish time.Time) {
	if estimatedFinish.IsZero() {
		fmt.Printf("\n%d%% complete\n", percent)
		return
	}

	fmt.Printf("\n%d%% complete, estimated finish %s\n", percent, estimatedFinish.Format("3:04 PM"))
}

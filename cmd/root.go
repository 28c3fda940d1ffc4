// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/vcnpu-sim/vcnpu-sim/sim"
)

var (
	logLevel string

	genMasks  bool
	outDir    string
	maskDir   string
	macReport bool

	frameH         int
	frameW         int
	channels       int
	tileColumns    int
	dramBW         float64
	dramLatency    int64
	banks          int
	groupSlots     int
	numParallel    int
	bypassMode     bool
	seed           int64
	maxCycles      int64
	hardwareConfig string
)

var rootCmd = &cobra.Command{
	Use:   "vcnpu-sim",
	Short: "Cycle-approximate simulator for the VCNPU video-restoration accelerator",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		layers := defaultLayers(channels)

		if macReport {
			report, err := sim.EstimateMacsFromMaskDir(maskDir, frameH, frameW)
			if err != nil {
				logrus.Fatalf("mac report failed: %v", err)
			}
			for _, layer := range layers {
				if macs, ok := report[layer.Name]; ok {
					fmt.Printf("%-16s: %d\n", layer.Name, macs)
				}
			}
			fmt.Printf("%-16s: %d\n", "total", report["total"])
			return nil
		}

		if genMasks {
			logrus.WithFields(logrus.Fields{
				"outdir": outDir,
				"seed":   seed,
			}).Info("generating synthetic transform masks")
			if err := runGenMasks(layers, outDir, seed); err != nil {
				logrus.Fatalf("mask generation failed: %v", err)
			}
			logrus.Info("mask generation complete")
			return nil
		}

		cfg, err := buildConfig()
		if err != nil {
			logrus.Fatalf("invalid configuration: %v", err)
		}

		logrus.WithFields(logrus.Fields{
			"frame":      [2]int{frameH, frameW},
			"units":      numParallel,
			"mask_dir":   maskDir,
			"max_cycles": maxCycles,
		}).Info("starting simulation")

		controller := sim.NewController(cfg, frameH, frameW, numParallel, maskDir)
		stats := controller.Run(layers, channels, maxCycles)
		stats.Print()
		logrus.Info("simulation complete")
		return nil
	},
}

// defaultLayers builds the documented video-restoration layer pipeline
// (spec.md §1's representative model stack), parameterized by channel
// width. Grounded on original_source/Sim/vcnpu.py's default layer list.
func defaultLayers(channels int) []sim.LayerSpec {
	return []sim.LayerSpec{
		sim.NewRFConvLayer("RFConv0", channels, channels),
		sim.NewRFConvLayer("RFConv1", channels, channels),
		sim.NewRFDeConvLayer("RFDeConv0", channels, channels),
		sim.NewDfConvLayer("DfConv_comp", channels, channels, 3),
		sim.NewRFConvLayer("RFConv2", channels, channels),
		sim.NewRFConvLayer("RFConv3", channels, channels),
		sim.NewRFDeConvLayer("RFDeConv1", channels, channels),
	}
}

// buildConfig assembles a sim.Config from documented defaults, optionally
// overridden by a YAML hardware profile (--hw-config), then applies the
// --dram-bw, --dram-latency, --banks, --group-slots, --tile-columns and
// --bypass-mode values unconditionally: their flag values, defaults
// included, replace whatever the profile set for those fields.
func buildConfig() (sim.Config, error) {
	cfg := sim.NewDefaultConfig()
	if hardwareConfig != "" {
		overridden, err := loadHardwareConfig(hardwareConfig, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = overridden
	}

	cfg.DRAM.BWBytesPerCycle = dramBW
	cfg.DRAM.LatencyCycles = dramLatency
	cfg.FIFO.Banks = banks
	cfg.FIFO.GroupSlotsPerBank = groupSlots
	cfg.TileColumnsOverride = tileColumns
	cfg.ForceBypass = bypassMode
	return cfg, nil
}

// Execute runs the root command; main.go's sole responsibility is to call this.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")

	rootCmd.Flags().BoolVar(&genMasks, "gen-masks", false, "Generate synthetic sparse transform masks instead of running a simulation")
	rootCmd.Flags().StringVar(&outDir, "outdir", "./masks", "Output directory for generated mask artifacts")
	rootCmd.Flags().StringVar(&maskDir, "mask-dir", "./masks", "Directory to load sparse transform masks from")
	rootCmd.Flags().BoolVar(&macReport, "mac-report", false, "Print a fast per-layer MAC estimate from --mask-dir without running the tile pipeline")

	rootCmd.Flags().IntVar(&frameH, "frame-H", 1080, "Frame height in pixels")
	rootCmd.Flags().IntVar(&frameW, "frame-W", 1920, "Frame width in pixels")
	rootCmd.Flags().IntVar(&channels, "channels", 36, "Feature channel width of the restoration model")
	rootCmd.Flags().IntVar(&tileColumns, "tile-columns", 0, "Override the computed column tile width (0 = auto)")
	rootCmd.Flags().Float64Var(&dramBW, "dram-bw", 1024, "DRAM bandwidth in bytes/cycle")
	rootCmd.Flags().Int64Var(&dramLatency, "dram-latency", 800, "Fixed DRAM round-trip latency in cycles")
	rootCmd.Flags().IntVar(&banks, "banks", 4, "Number of group-FIFO banks per unit")
	rootCmd.Flags().IntVar(&groupSlots, "group-slots", 2, "Group-FIFO slots per bank")
	rootCmd.Flags().IntVar(&numParallel, "num-parallel-units", 1, "Number of parallel SFTM+DPM units")
	rootCmd.Flags().BoolVar(&bypassMode, "bypass-mode", false, "Mark every tile as bypassed instead of pushing it into the group-FIFO")
	rootCmd.Flags().Int64Var(&seed, "seed", 1, "Master RNG seed")
	rootCmd.Flags().Int64Var(&maxCycles, "max-cycles", 10_000_000, "Maximum cycle budget before a run is forcibly terminated")
	rootCmd.Flags().StringVar(&hardwareConfig, "hw-config", "", "Optional YAML file overriding hardware timing constants")
}

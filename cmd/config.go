package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/vcnpu-sim/vcnpu-sim/sim"
)

// hardwareProfile is the YAML shape accepted by --hw-config: a
// partial override of the documented default timing constants (spec.md
// §6's configuration surface table). Any field left unset in the file
// keeps the default already present in base.
type hardwareProfile struct {
	Grid struct {
		POF                int `yaml:"pof"`
		PIF                int `yaml:"pif"`
		SCUMultipliers     int `yaml:"scu_multipliers"`
		PretuLatency       int `yaml:"pretu_latency"`
		PosttuLatency      int `yaml:"posttu_latency"`
		SCUPipelineLatency int `yaml:"scu_pipeline_latency"`
	} `yaml:"grid"`
	Memory struct {
		InputBufferBytes  int `yaml:"input_buffer_bytes"`
		OutputBufferBytes int `yaml:"output_buffer_bytes"`
		NumBanks          int `yaml:"num_banks"`
	} `yaml:"memory"`
	DRAM struct {
		LatencyCycles   int64   `yaml:"latency_cycles"`
		BWBytesPerCycle float64 `yaml:"bw_bytes_per_cycle"`
		AlignmentBytes  int64   `yaml:"alignment_bytes"`
	} `yaml:"dram"`
	Prefetch struct {
		MaxOutstanding int   `yaml:"max_outstanding"`
		TableEntries   int   `yaml:"table_entries"`
		CoalesceBytes  int64 `yaml:"coalesce_bytes"`
	} `yaml:"prefetch"`
}

// loadHardwareConfig decodes path as a hardwareProfile and layers any
// non-zero fields on top of base, strict on unknown keys so a typo'd
// field name fails loudly rather than silently keeping the default.
func loadHardwareConfig(path string, base sim.Config) (sim.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("opening hardware config %q: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var profile hardwareProfile
	if err := dec.Decode(&profile); err != nil {
		return base, fmt.Errorf("parsing hardware config %q: %w", path, err)
	}

	cfg := base
	if profile.Grid.POF != 0 {
		cfg.Grid.POF = profile.Grid.POF
	}
	if profile.Grid.PIF != 0 {
		cfg.Grid.PIF = profile.Grid.PIF
	}
	if profile.Grid.SCUMultipliers != 0 {
		cfg.Grid.SCUMultipliers = profile.Grid.SCUMultipliers
	}
	if profile.Grid.PretuLatency != 0 {
		cfg.Grid.PretuLatency = profile.Grid.PretuLatency
	}
	if profile.Grid.PosttuLatency != 0 {
		cfg.Grid.PosttuLatency = profile.Grid.PosttuLatency
	}
	if profile.Grid.SCUPipelineLatency != 0 {
		cfg.Grid.SCUPipelineLatency = profile.Grid.SCUPipelineLatency
	}
	if profile.Memory.InputBufferBytes != 0 {
		cfg.Memory.InputBufferBytes = profile.Memory.InputBufferBytes
	}
	if profile.Memory.OutputBufferBytes != 0 {
		cfg.Memory.OutputBufferBytes = profile.Memory.OutputBufferBytes
	}
	if profile.Memory.NumBanks != 0 {
		cfg.Memory.NumBanks = profile.Memory.NumBanks
	}
	if profile.DRAM.LatencyCycles != 0 {
		cfg.DRAM.LatencyCycles = profile.DRAM.LatencyCycles
	}
	if profile.DRAM.BWBytesPerCycle != 0 {
		cfg.DRAM.BWBytesPerCycle = profile.DRAM.BWBytesPerCycle
	}
	if profile.DRAM.AlignmentBytes != 0 {
		cfg.DRAM.AlignmentBytes = profile.DRAM.AlignmentBytes
	}
	if profile.Prefetch.MaxOutstanding != 0 {
		cfg.Prefetch.MaxOutstanding = profile.Prefetch.MaxOutstanding
	}
	if profile.Prefetch.TableEntries != 0 {
		cfg.Prefetch.TableEntries = profile.Prefetch.TableEntries
	}
	if profile.Prefetch.CoalesceBytes != 0 {
		cfg.Prefetch.CoalesceBytes = profile.Prefetch.CoalesceBytes
	}
	return cfg, nil
}

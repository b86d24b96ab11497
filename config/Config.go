// Package config parses the parameters of a data collection agent from
// command line arguments and an optional JSON file
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/samuelfneumann/drivelearn/solver"
)

// Required lists the parameters that must always be given
var Required = []string{
	"data_dir",
	"max_epoch_runtime_sec",
	"replay_memory_size",
	"batch_size",
	"min_epsilon",
	"per_iter_epsilon_reduction",
	"experiment_name",
	"train_conv_layers",
}

// RequiredLocal lists the parameters that must also be given when the
// agent trains locally
var RequiredLocal = []string{
	"batch_update_frequency",
}

// Config holds the parameters of an agent
type Config struct {
	DataDir                 string  `json:"data_dir"`
	MaxEpochRuntimeSec      float64 `json:"max_epoch_runtime_sec"`
	ReplayMemorySize        int     `json:"replay_memory_size"`
	BatchSize               int     `json:"batch_size"`
	MinEpsilon              float64 `json:"min_epsilon"`
	PerIterEpsilonReduction float64 `json:"per_iter_epsilon_reduction"`
	ExperimentName          string  `json:"experiment_name"`
	TrainConvLayers         bool    `json:"train_conv_layers"`

	// Whether epochs end after max_epoch_runtime_sec
	EnforceMaxEpochRuntime bool `json:"enforce_max_epoch_runtime"`

	// Number of minibatches between target network updates when
	// training locally
	BatchUpdateFrequency int `json:"batch_update_frequency"`

	WeightsPath         string   `json:"weights_path,omitempty"`
	LocalRun            bool     `json:"local_run"`
	AirSimAddress       string   `json:"airsim_address"`
	TrainerPort         int      `json:"trainer_port"`
	PrioritizedSampling bool     `json:"prioritized_sampling"`
	Seed                uint64   `json:"seed"`
	RPCTimeout          Duration `json:"rpc_timeout"`
	LogLevel            string   `json:"log_level"`
	PlotEvery           int      `json:"plot_every"` // 0 disables plots
	Ledger              bool     `json:"ledger"`

	// Solver of the local critic, which can only be set from a file
	Solver *solver.Solver `json:"solver,omitempty"`
}

// Default returns a Config holding the default value of each optional
// parameter
func Default() Config {
	return Config{
		AirSimAddress: "127.0.0.1:41451",
		TrainerPort:   80,
		Seed:          uint64(time.Now().UnixNano()),
		RPCTimeout:    Duration(30 * time.Second),
		LogLevel:      zerolog.LevelInfoValue,
		Ledger:        true,
	}
}

// Validate checks the values of a Config
func (c Config) Validate() error {
	switch {
	case c.DataDir == "":
		return fmt.Errorf("validate: data_dir must not be empty")
	case c.ExperimentName == "":
		return fmt.Errorf("validate: experiment_name must not be empty")
	case c.MaxEpochRuntimeSec < 0:
		return fmt.Errorf("validate: max_epoch_runtime_sec must be >= 0")
	case c.ReplayMemorySize <= 0:
		return fmt.Errorf("validate: replay_memory_size must be > 0")
	case c.BatchSize <= 0:
		return fmt.Errorf("validate: batch_size must be > 0")
	case c.MinEpsilon < 0 || c.MinEpsilon > 1:
		return fmt.Errorf("validate: min_epsilon must be in [0, 1]")
	case c.PerIterEpsilonReduction < 0:
		return fmt.Errorf("validate: per_iter_epsilon_reduction must be >= 0")
	case c.LocalRun && c.BatchUpdateFrequency <= 0:
		return fmt.Errorf("validate: batch_update_frequency must be > 0")
	case c.TrainerPort <= 0 || c.TrainerPort > 65535:
		return fmt.Errorf("validate: invalid trainer_port %d", c.TrainerPort)
	case c.RPCTimeout <= 0:
		return fmt.Errorf("validate: rpc_timeout must be > 0")
	case c.PlotEvery < 0:
		return fmt.Errorf("validate: plot_every must be >= 0")
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("validate: log_level: %w", err)
	}
	return nil
}

// MaxEpochRuntime returns the longest an epoch may run, or 0 if epochs
// are not limited. Epochs are only limited when
// enforce_max_epoch_runtime is set.
func (c Config) MaxEpochRuntime() time.Duration {
	if !c.EnforceMaxEpochRuntime {
		return 0
	}
	return time.Duration(c.MaxEpochRuntimeSec * float64(time.Second))
}

// Seeds holds the seed of each randomized component of an agent
type Seeds struct {
	Starter uint64
	Critic  uint64
	Sampler uint64 // The sampler also uses Sampler+1
	Driver  uint64
}

// Seeds derives a distinct seed for each component from the seed
// parameter
func (c Config) Seeds() Seeds {
	return Seeds{
		Starter: c.Seed,
		Critic:  c.Seed + 1,
		Sampler: c.Seed + 2,
		Driver:  c.Seed + 4,
	}
}

// Level returns the logging level
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// RoadLinesPath returns the path of the road line file
func (c Config) RoadLinesPath() string {
	return filepath.Join(c.DataDir, "data", "road_lines.txt")
}

// RewardLinesPath returns the path of the reward line file
func (c Config) RewardLinesPath() string {
	return filepath.Join(c.DataDir, "data", "reward_points.txt")
}

// CheckpointDir returns the directory of the experiment's checkpoints
func (c Config) CheckpointDir() string {
	return filepath.Join(c.DataDir, "checkpoint", c.ExperimentName)
}

// LedgerPath returns the path of the experiment's epoch ledger
func (c Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger", c.ExperimentName+".db")
}

// PlotDir returns the directory of the experiment's path plots
func (c Config) PlotDir() string {
	return filepath.Join(c.DataDir, "plots", c.ExperimentName)
}

// MakeDirs creates the working directories of the agent under data_dir
// if they do not already exist
func (c Config) MakeDirs() error {
	dirs := []string{
		filepath.Join(c.DataDir, "minibatches"),
		filepath.Join(c.DataDir, "models"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("makeDirs: %w", err)
		}
	}
	return nil
}

// Duration is a time.Duration which is written as a string such as
// "30s" in JSON
type Duration time.Duration

// String implements the fmt.Stringer interface
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements the encoding.TextMarshaler interface
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

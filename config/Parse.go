package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileKey is the argument naming a JSON file of base parameters.
// Arguments override the values in the file.
const FileKey = "config"

// MissingParameterError is returned when a required parameter is not
// given
type MissingParameterError struct {
	Name string
}

func (m *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %v", m.Name)
}

// param sets one field of a Config from its string form
type param struct {
	set  func(*Config, string) error
	flag bool // Whether the parameter may be given without a value
}

var params = map[string]param{
	"data_dir":                   stringParam(func(c *Config) *string { return &c.DataDir }),
	"max_epoch_runtime_sec":      floatParam(func(c *Config) *float64 { return &c.MaxEpochRuntimeSec }),
	"replay_memory_size":         intParam(func(c *Config) *int { return &c.ReplayMemorySize }),
	"batch_size":                 intParam(func(c *Config) *int { return &c.BatchSize }),
	"min_epsilon":                floatParam(func(c *Config) *float64 { return &c.MinEpsilon }),
	"per_iter_epsilon_reduction": floatParam(func(c *Config) *float64 { return &c.PerIterEpsilonReduction }),
	"experiment_name":            stringParam(func(c *Config) *string { return &c.ExperimentName }),
	"train_conv_layers":          lenientBoolParam(func(c *Config) *bool { return &c.TrainConvLayers }),
	"enforce_max_epoch_runtime":  boolParam(func(c *Config) *bool { return &c.EnforceMaxEpochRuntime }),
	"batch_update_frequency":     intParam(func(c *Config) *int { return &c.BatchUpdateFrequency }),
	"weights_path":               stringParam(func(c *Config) *string { return &c.WeightsPath }),
	"local_run":                  boolParam(func(c *Config) *bool { return &c.LocalRun }),
	"airsim_address":             stringParam(func(c *Config) *string { return &c.AirSimAddress }),
	"trainer_port":               intParam(func(c *Config) *int { return &c.TrainerPort }),
	"prioritized_sampling":       boolParam(func(c *Config) *bool { return &c.PrioritizedSampling }),
	"seed":                       uintParam(func(c *Config) *uint64 { return &c.Seed }),
	"rpc_timeout":                durationParam(func(c *Config) *Duration { return &c.RPCTimeout }),
	"log_level":                  stringParam(func(c *Config) *string { return &c.LogLevel }),
	"plot_every":                 intParam(func(c *Config) *int { return &c.PlotEvery }),
	"ledger":                     boolParam(func(c *Config) *bool { return &c.Ledger }),
}

// Parse returns the Config described by args. Each argument has the
// form key=value, optionally prefixed by "--". Flags such as local_run
// may be given without a value. If a config=path argument is given,
// the JSON file at path provides the base parameters.
func Parse(args []string) (Config, error) {
	values, err := split(args)
	if err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}

	cfg := Default()
	given := make(map[string]bool)
	if path, ok := values[FileKey]; ok {
		keys, err := loadFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parse: %w", err)
		}
		for _, k := range keys {
			given[k] = true
		}
		delete(values, FileKey)
	}

	// Apply arguments in sorted order so errors are deterministic
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p, ok := params[k]
		if !ok {
			return Config{}, fmt.Errorf("parse: unknown parameter %v", k)
		}
		v := values[k]
		if v == "" {
			if !p.flag {
				return Config{}, fmt.Errorf("parse: %v: no value given", k)
			}
			v = "true"
		}
		if err := p.set(&cfg, v); err != nil {
			return Config{}, fmt.Errorf("parse: %v: %w", k, err)
		}
		given[k] = true
	}

	required := Required
	if cfg.LocalRun {
		required = append(append([]string{}, Required...), RequiredLocal...)
	}
	for _, name := range required {
		if !given[name] {
			return Config{}, &MissingParameterError{Name: name}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	return cfg, nil
}

// split splits each key=value argument. Arguments without a value map
// to the empty string.
func split(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		arg = strings.TrimLeft(arg, "-")
		if arg == "" {
			continue
		}

		key, value, _ := strings.Cut(arg, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid argument %q", arg)
		}
		if _, ok := values[key]; ok {
			return nil, fmt.Errorf("parameter %v given more than once", key)
		}
		values[key] = value
	}
	return values, nil
}

// loadFile decodes the JSON object in the file at path onto cfg and
// returns the keys it holds
func loadFile(path string, cfg *Config) ([]string, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, "+
			"got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if _, ok := params[k]; !ok && k != "solver" {
			return nil, fmt.Errorf("unknown parameter %v in %v", k, path)
		}
		keys = append(keys, k)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}
	return keys, nil
}

func stringParam(field func(*Config) *string) param {
	return param{set: func(c *Config, v string) error {
		*field(c) = v
		return nil
	}}
}

func intParam(field func(*Config) *int) param {
	return param{set: func(c *Config, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = i
		return nil
	}}
}

func uintParam(field func(*Config) *uint64) param {
	return param{set: func(c *Config, v string) error {
		i, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		*field(c) = i
		return nil
	}}
}

func floatParam(field func(*Config) *float64) param {
	return param{set: func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}}
}

func boolParam(field func(*Config) *bool) param {
	return param{
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
		flag: true,
	}
}

// lenientBoolParam treats any value other than "true", ignoring case
// and surrounding space, as false
func lenientBoolParam(field func(*Config) *bool) param {
	return param{
		set: func(c *Config, v string) error {
			*field(c) = strings.EqualFold(strings.TrimSpace(v), "true")
			return nil
		},
		flag: true,
	}
}

func durationParam(field func(*Config) *Duration) param {
	return param{set: func(c *Config, v string) error {
		return field(c).UnmarshalText([]byte(v))
	}}
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/vadtune/internal/optimizer"
	"github.com/signalnine/vadtune/internal/simulator"
)

const DefaultPath = "vadtune.yaml"

// Simulator backends.
const (
	BackendNative    = "native"
	BackendContainer = "container"
)

type Config struct {
	Simulator Simulator `yaml:"simulator"`
	Plans     Plans     `yaml:"plans"`
	Optimizer Optimizer `yaml:"optimizer"`
	Results   Results   `yaml:"results"`
	LogLevel  string    `yaml:"log_level"`
}

type Simulator struct {
	Backend   string    `yaml:"backend"`
	Library   string    `yaml:"library"`
	Container Container `yaml:"container"`
}

type Container struct {
	Image       string            `yaml:"image"`
	Command     []string          `yaml:"command"`
	Env         map[string]string `yaml:"env"`
	Timeout     time.Duration     `yaml:"timeout"`
	CPULimit    float64           `yaml:"cpu_limit"`
	MemoryLimit int64             `yaml:"memory_limit"`
}

type Plans struct {
	Debug    string `yaml:"debug"`
	Optimize string `yaml:"optimize"`
}

type Optimizer struct {
	PopSize             int     `yaml:"pop_size"`
	Seed                int64   `yaml:"seed"`
	EliminateDuplicates bool    `yaml:"eliminate_duplicates"`
	MaxGenerations      int     `yaml:"max_generations"`
	MaxEvaluations      int     `yaml:"max_evaluations"`
	FTol                float64 `yaml:"ftol"`
	Period              int     `yaml:"period"`
}

type Results struct {
	Dir    string `yaml:"dir"`
	Record bool   `yaml:"record"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	ga := optimizer.DefaultOptions()
	return &Config{
		Simulator: Simulator{
			Backend: BackendNative,
			Library: simulator.DefaultLibraryPath(),
			Container: Container{
				Timeout: simulator.DefaultContainerTimeout,
			},
		},
		Plans: Plans{
			Debug:    "tmp/plan_debug.json",
			Optimize: "tmp/plan.json",
		},
		Optimizer: Optimizer{
			PopSize:             ga.PopSize,
			Seed:                ga.Seed,
			EliminateDuplicates: ga.EliminateDuplicates,
			MaxGenerations:      ga.MaxGenerations,
			MaxEvaluations:      ga.MaxEvaluations,
			FTol:                ga.FTol,
			Period:              ga.Period,
		},
		Results:  Results{Dir: "results"},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding existing values. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from VADTUNE_* variables. A nil lookup uses
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	overrideString(lookup, "VADTUNE_SIM_BACKEND", &c.Simulator.Backend)
	overrideString(lookup, "VADTUNE_SIM_LIB", &c.Simulator.Library)
	overrideString(lookup, "VADTUNE_SIM_IMAGE", &c.Simulator.Container.Image)
	overrideString(lookup, "VADTUNE_RESULTS_DIR", &c.Results.Dir)
	overrideString(lookup, "VADTUNE_LOG_LEVEL", &c.LogLevel)
	return overrideBool(lookup, "VADTUNE_RECORD", &c.Results.Record)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Simulator.Backend {
	case BackendNative:
	case BackendContainer:
		if c.Simulator.Container.Image == "" {
			errs = append(errs, fmt.Errorf("simulator.container.image is required for the container backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("simulator.backend %q is not one of %s, %s", c.Simulator.Backend, BackendNative, BackendContainer))
	}
	if c.Simulator.Container.Timeout < 0 {
		errs = append(errs, fmt.Errorf("simulator.container.timeout must not be negative"))
	}
	if c.Simulator.Container.CPULimit < 0 {
		errs = append(errs, fmt.Errorf("simulator.container.cpu_limit must not be negative"))
	}
	if c.Simulator.Container.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("simulator.container.memory_limit must not be negative"))
	}
	if c.Optimizer.PopSize < 3 {
		errs = append(errs, fmt.Errorf("optimizer.pop_size must be at least 3, got %d", c.Optimizer.PopSize))
	}
	if c.Optimizer.MaxGenerations < 0 || c.Optimizer.MaxEvaluations < 0 || c.Optimizer.Period < 0 {
		errs = append(errs, fmt.Errorf("optimizer limits must not be negative"))
	}
	if c.Optimizer.FTol < 0 {
		errs = append(errs, fmt.Errorf("optimizer.ftol must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options converts the optimizer section.
func (o Optimizer) Options() optimizer.Options {
	opts := optimizer.DefaultOptions()
	opts.PopSize = o.PopSize
	opts.Seed = o.Seed
	opts.EliminateDuplicates = o.EliminateDuplicates
	opts.MaxGenerations = o.MaxGenerations
	opts.MaxEvaluations = o.MaxEvaluations
	opts.FTol = o.FTol
	opts.Period = o.Period
	return opts
}

// ContainerOpts converts the container section.
func (c Container) ContainerOpts() simulator.ContainerOpts {
	return simulator.ContainerOpts{
		Image:       c.Image,
		Command:     c.Command,
		Env:         c.Env,
		Timeout:     c.Timeout,
		CPULimit:    c.CPULimit,
		MemoryLimit: c.MemoryLimit,
	}
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

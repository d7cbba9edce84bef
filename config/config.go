// Package config loads the analyzer configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhamidi/symbex/se"
	"github.com/dhamidi/symbex/se/checks"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCheck is returned when a configuration enables a rule that
// no detector implements.
var ErrUnknownCheck = checks.ErrUnknownCheck

// Config holds the options of a run, the enabled checks and the paths
// left out of it. Fields missing from a config file keep their defaults.
type Config struct {
	Options `yaml:",inline"`

	// Checks lists the enabled rule keys. An empty list enables every check.
	Checks []string `yaml:"checks"`

	// Exclude lists glob patterns matched against file paths and base
	// names. Matching files and directories are not analyzed.
	Exclude []string `yaml:"exclude"`

	sourceFile string
}

type Options struct {
	// LogLevel controls the verbosity of the tool, from 0 (errors only) up.
	LogLevel int `yaml:"log-level"`

	// Workers bounds the number of files analyzed concurrently.
	Workers int `yaml:"workers"`

	// MethodTimeout bounds the exploration of a single method.
	MethodTimeout time.Duration `yaml:"method-timeout"`

	MaxSteps              int `yaml:"max-steps"`
	MaxNodes              int `yaml:"max-nodes"`
	MaxProgramPointVisits int `yaml:"max-program-point-visits"`

	// Format is the report format: text, json or sarif.
	Format string `yaml:"format"`
}

const (
	DefaultFormat  = "text"
	DefaultWorkers = 4
)

// Formats lists the accepted report formats.
var Formats = []string{"text", "json", "sarif"}

// NewDefault returns the configuration used when no file is given.
func NewDefault() *Config {
	limits := se.DefaultLimits()
	return &Config{
		Options: Options{
			LogLevel:              0,
			Workers:               DefaultWorkers,
			MethodTimeout:         limits.MaxDuration,
			MaxSteps:              limits.MaxSteps,
			MaxNodes:              limits.MaxNodes,
			MaxProgramPointVisits: limits.MaxProgramPointVisits,
			Format:                DefaultFormat,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Validate checks the enabled rules and the option ranges. Zero limits
// are replaced by their defaults.
func (c *Config) Validate() error {
	if _, err := checks.Select(c.Checks); err != nil {
		return err
	}
	defaults := NewDefault()
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.MethodTimeout <= 0 {
		c.MethodTimeout = defaults.MethodTimeout
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaults.MaxSteps
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = defaults.MaxNodes
	}
	if c.MaxProgramPointVisits <= 0 {
		c.MaxProgramPointVisits = defaults.MaxProgramPointVisits
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	for _, f := range Formats {
		if c.Format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q, expected one of %s", c.Format, strings.Join(Formats, ", "))
}

// Factories returns the detector factories for the enabled checks.
func (c *Config) Factories() ([]checks.Factory, error) {
	return checks.Select(c.Checks)
}

// Limits returns the engine ceilings for one method.
func (c *Config) Limits() se.Limits {
	return se.Limits{
		MaxSteps:              c.MaxSteps,
		MaxNodes:              c.MaxNodes,
		MaxDuration:           c.MethodTimeout,
		MaxProgramPointVisits: c.MaxProgramPointVisits,
	}
}

// Excluded reports whether path matches one of the Exclude patterns,
// either as a whole or by its base name.
func (c *Config) Excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range c.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(filepath.ToSlash(pattern), slashed); ok {
			return true
		}
		if strings.HasSuffix(pattern, "/**") && strings.HasPrefix(slashed+"/", strings.TrimSuffix(pattern, "**")) {
			return true
		}
	}
	return false
}

// RelPath returns filename relative to the directory of the config file.
func (c *Config) RelPath(filename string) string {
	if c.sourceFile == "" || filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(filepath.Dir(c.sourceFile), filename)
}

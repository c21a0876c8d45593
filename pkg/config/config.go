// Package config handles noodle.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked for in the project directory.
const FileName = "noodle.toml"

// Config represents a noodle.toml configuration.
type Config struct {
	Runtime  Runtime  `toml:"runtime"`
	Compiler Compiler `toml:"compiler"`

	// Dir is the directory containing the noodle.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the interpreter.
type Runtime struct {
	// MaxExecutionTime bounds one Execute call; 0 keeps the default.
	MaxExecutionTime duration `toml:"max_execution_time"`
	// StackCapacity is the initial operand stack allocation.
	StackCapacity int `toml:"stack_capacity"`
}

// Compiler configures the compile pipeline.
type Compiler struct {
	Optimize bool `toml:"optimize"`
	Debug    bool `toml:"debug"`
}

// duration parses TOML strings like "5s" or "250ms".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// MaxExecutionDuration returns the configured execution bound.
func (r Runtime) MaxExecutionDuration() time.Duration {
	return time.Duration(r.MaxExecutionTime)
}

// Default returns the configuration used when no noodle.toml exists.
func Default() *Config {
	return &Config{
		Runtime: Runtime{
			MaxExecutionTime: duration(5 * time.Second),
			StackCapacity:    256,
		},
		Compiler: Compiler{Optimize: true},
	}
}

// Load parses a noodle.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if c.Runtime.StackCapacity <= 0 {
		c.Runtime.StackCapacity = Default().Runtime.StackCapacity
	}
	if c.Runtime.MaxExecutionTime <= 0 {
		c.Runtime.MaxExecutionTime = Default().Runtime.MaxExecutionTime
	}

	return c, nil
}

// FindAndLoad walks up from startDir to find a noodle.toml file, then loads
// and returns it. Returns the defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/go-incr/pkg/incr"
	"github.com/consensys/go-incr/pkg/solver"
	"github.com/consensys/go-incr/pkg/update"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvLogLevel names the environment variable which overrides the configured
// log level.
const EnvLogLevel = "INCR_LOG_LEVEL"

// Config holds the settings of an incrementalization session, as read from a
// YAML file.
type Config struct {
	Oracle OracleConfig `yaml:"oracle"`
	Limits LimitsConfig `yaml:"limits"`
	Update UpdateConfig `yaml:"update"`
	// Log level (e.g. "info" or "debug").
	LogLevel string `yaml:"log_level"`
}

// OracleConfig bounds the search performed by the oracle.
type OracleConfig struct {
	IntDomain       []int64 `yaml:"int_domain"`
	CollectionDepth uint    `yaml:"collection_depth"`
	MaxModels       uint64  `yaml:"max_models"`
}

// LimitsConfig bounds the work done for a single result.
type LimitsConfig struct {
	MaxDeltaSize uint `yaml:"max_delta_size"`
	MaxForkDepth uint `yaml:"max_fork_depth"`
}

// UpdateConfig determines the shape of synthesized update code.
type UpdateConfig struct {
	UpdateNumbersWithDeltas bool `yaml:"update_numbers_with_deltas"`
	SkipStatelessSynthesis  bool `yaml:"skip_stateless_synthesis"`
}

// Default returns the default configuration.
func Default() *Config {
	var (
		oracle  = solver.DefaultConfig()
		limits  = incr.DefaultLimits()
		options = update.DefaultOptions()
	)
	//
	return &Config{
		Oracle: OracleConfig{
			IntDomain:       oracle.IntDomain,
			CollectionDepth: oracle.CollectionDepth,
			MaxModels:       oracle.MaxModels,
		},
		Limits:   LimitsConfig{limits.MaxDeltaSize, limits.MaxForkDepth},
		Update:   UpdateConfig{options.UpdateNumbersWithDeltas, options.SkipStatelessSynthesis},
		LogLevel: "info",
	}
}

// Load reads a configuration from a YAML file.  Settings missing from the file
// keep their default values, and a missing file yields the default
// configuration.
func Load(path string) (*Config, error) {
	cfg := Default()
	//
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug(fmt.Sprintf("no configuration at %s, using defaults", path))
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	//
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}
	//
	return cfg, cfg.Validate()
}

// Save writes this configuration to a YAML file, creating its directory if
// necessary.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	//
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	//
	return os.WriteFile(path, data, 0644)
}

// Validate checks this configuration describes a usable session.
func (c *Config) Validate() error {
	if len(c.Oracle.IntDomain) == 0 {
		return errors.New("oracle.int_domain must not be empty")
	} else if c.Oracle.MaxModels == 0 {
		return errors.New("oracle.max_models must be positive")
	} else if c.Limits.MaxDeltaSize == 0 {
		return errors.New("limits.max_delta_size must be positive")
	} else if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	//
	return nil
}

// Level returns the configured log level.  This assumes the configuration has
// been validated.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	//
	return level
}

// SolverConfig returns the oracle bounds of this configuration.
func (c *Config) SolverConfig() solver.Config {
	return solver.Config{
		IntDomain:       c.Oracle.IntDomain,
		CollectionDepth: c.Oracle.CollectionDepth,
		MaxModels:       c.Oracle.MaxModels,
	}
}

// EngineLimits returns the engine limits of this configuration.
func (c *Config) EngineLimits() incr.Limits {
	return incr.Limits{MaxDeltaSize: c.Limits.MaxDeltaSize, MaxForkDepth: c.Limits.MaxForkDepth}
}

// UpdateOptions returns the synthesis options of this configuration.
func (c *Config) UpdateOptions() update.Options {
	return update.Options{
		UpdateNumbersWithDeltas: c.Update.UpdateNumbersWithDeltas,
		SkipStatelessSynthesis:  c.Update.SkipStatelessSynthesis,
	}
}

// NewEngine constructs a session configured by this configuration.
func (c *Config) NewEngine() *incr.Engine {
	return incr.NewEngine(c.SolverConfig(), c.EngineLimits())
}

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
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/go-incr/pkg/incr"
	"github.com/consensys/go-incr/pkg/solver"
	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
)

func Test_Config_01(t *testing.T) {
	cfg := Default()
	//
	if diff := cmp.Diff(solver.DefaultConfig(), cfg.SolverConfig()); diff != "" {
		t.Errorf("unexpected oracle bounds (-want +got):\n%s", diff)
	}
	//
	if diff := cmp.Diff(incr.DefaultLimits(), cfg.EngineLimits()); diff != "" {
		t.Errorf("unexpected limits (-want +got):\n%s", diff)
	}
	//
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}

func Test_Config_02(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	// Missing files give the defaults
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	//
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func Test_Config_03(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	// Settings absent from the file keep their defaults
	cfg := check_Load(t, "oracle:\n  max_models: 1000\nlimits:\n  max_fork_depth: 2\n")
	//
	expected := Default()
	expected.Oracle.MaxModels = 1000
	expected.Limits.MaxForkDepth = 2
	//
	if diff := cmp.Diff(expected, cfg); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func Test_Config_04(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	//
	cfg := check_Load(t, "oracle:\n  int_domain: [-1, 0, 1]\nupdate:\n  update_numbers_with_deltas: true\n")
	//
	if diff := cmp.Diff([]int64{-1, 0, 1}, cfg.SolverConfig().IntDomain); diff != "" {
		t.Errorf("unexpected domain (-want +got):\n%s", diff)
	}
	//
	if opts := cfg.UpdateOptions(); !opts.UpdateNumbersWithDeltas || !opts.SkipStatelessSynthesis {
		t.Errorf("unexpected options %v", opts)
	}
}

func Test_Config_05(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	//
	cfg := check_Load(t, "log_level: warn\n")
	//
	if cfg.Level() != log.DebugLevel {
		t.Errorf("expected debug level, got %s", cfg.Level())
	}
}

func Test_Config_06(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	//
	for _, text := range []string{
		"oracle:\n  int_domain: []\n",
		"oracle:\n  max_models: 0\n",
		"limits:\n  max_delta_size: 0\n",
		"log_level: loud\n",
		"oracle: [",
	} {
		path := writeConfig(t, text)
		//
		if _, err := Load(path); err == nil {
			t.Errorf("expected error loading %q", text)
		}
	}
}

func Test_Config_07(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	//
	path := filepath.Join(t.TempDir(), "nested", "incr.yaml")
	cfg := Default()
	cfg.Limits.MaxDeltaSize = 7
	cfg.LogLevel = "debug"
	//
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	//
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	} else if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
	//
	if engine := loaded.NewEngine(); engine.Metrics() == nil {
		t.Errorf("expected engine with metrics")
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_Load(t *testing.T, text string) *Config {
	t.Helper()
	//
	cfg, err := Load(writeConfig(t, text))
	if err != nil {
		t.Fatal(err)
	}
	//
	return cfg
}

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	//
	path := filepath.Join(t.TempDir(), "incr.yaml")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	//
	return path
}

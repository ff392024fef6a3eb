// Package config loads mindctl's layered configuration via Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Should be called once
// at application startup, before any Get* accessor is used.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate config.yaml so we never accidentally pick up a
	// same-named file of a different format.
	// Precedence: project .mindcore/config.yaml > ~/.config/mindctl/config.yaml > ~/.mindcore/config.yaml
	configFileSet := false

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".mindcore", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "mindctl", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".mindcore", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file.
	// E.g. MIND_HOME, MIND_RETRIEVAL_MAX_NODES.
	v.SetEnvPrefix("MIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("home", "")
	v.SetDefault("state_warnings_stderr", "")

	v.SetDefault("retrieval.max_nodes", 6)
	v.SetDefault("retrieval.max_values_claims", 8)
	v.SetDefault("retrieval.max_pref_goal_claims", 8)
	v.SetDefault("retrieval.max_query_claims", 10)
	v.SetDefault("retrieval.max_edges", 20)

	v.SetDefault("whytrace.min_write_confidence", 0.7)
	v.SetDefault("whytrace.top_k", 12)

	v.SetDefault("lock.timeout", "5s")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	return nil
}

// Home returns the configured home directory, or "" when unset (callers fall
// back to paths.DefaultHomeDir in that case).
func Home() string {
	if v == nil {
		return ""
	}
	return v.GetString("home")
}

// RetrievalBudgets holds the decide_next context builder's per-dimension caps.
type RetrievalBudgets struct {
	MaxNodes          int
	MaxValuesClaims   int
	MaxPrefGoalClaims int
	MaxQueryClaims    int
	MaxEdges          int
}

// RetrievalBudgetsFromConfig returns the configured retrieval budgets, falling back to
// the package defaults when Initialize was never called.
func RetrievalBudgetsFromConfig() RetrievalBudgets {
	if v == nil {
		return RetrievalBudgets{MaxNodes: 6, MaxValuesClaims: 8, MaxPrefGoalClaims: 8, MaxQueryClaims: 10, MaxEdges: 20}
	}
	return RetrievalBudgets{
		MaxNodes:          v.GetInt("retrieval.max_nodes"),
		MaxValuesClaims:   v.GetInt("retrieval.max_values_claims"),
		MaxPrefGoalClaims: v.GetInt("retrieval.max_pref_goal_claims"),
		MaxQueryClaims:    v.GetInt("retrieval.max_query_claims"),
		MaxEdges:          v.GetInt("retrieval.max_edges"),
	}
}

// MinWriteConfidence returns the confidence threshold below which WhyTrace
// refuses to materialize edges.
func MinWriteConfidence() float64 {
	if v == nil {
		return 0.7
	}
	return v.GetFloat64("whytrace.min_write_confidence")
}

// WhyTraceTopK returns the candidate cap for WhyTrace.
func WhyTraceTopK() int {
	if v == nil {
		return 12
	}
	return v.GetInt("whytrace.top_k")
}

// LockTimeout returns the advisory-lock acquisition timeout for the CLI's
// optional --lock flag.
func LockTimeout() time.Duration {
	if v == nil {
		return 5 * time.Second
	}
	return v.GetDuration("lock.timeout")
}

// StateWarningsStderr returns the raw MI_STATE_WARNINGS_STDERR-equivalent
// config value; logging.WarningsStderrPolicy reads the environment variable
// directly per spec §6.4, this accessor exists for completeness/testing.
func StateWarningsStderr() string {
	if v == nil {
		return ""
	}
	return v.GetString("state_warnings_stderr")
}

// GetString retrieves an arbitrary string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// Set overrides a configuration value programmatically (used by tests).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// Reset clears the package-level viper instance so a subsequent Initialize
// starts from a clean slate; used by tests only.
func Reset() {
	v = nil
}

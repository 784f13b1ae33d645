// Package config provides application settings loaded from environment
// variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider selection
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/richinex/ixion/faults"
	"github.com/richinex/ixion/hooks"
	"github.com/richinex/ixion/llm"
)

// Settings holds all application configuration.
type Settings struct {
	Provider llm.ProviderType
	Agent    AgentConfig
	Hooks    hooks.Limits
	Faults   faults.Options
	Storage  StorageConfig
}

// AgentConfig holds loop execution configuration.
type AgentConfig struct {
	MaxTurns int
}

// StorageConfig holds checkpoint persistence configuration.
type StorageConfig struct {
	// Path is the SQLite database file for checkpoints. Empty disables
	// persistence.
	Path string
}

// New creates settings for the specified provider name, loading values
// from environment variables. Returns an error if the provider is unknown
// or an environment variable contains an invalid value.
func New(provider string) (Settings, error) {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTurns, err := getEnvInt("AGENT_MAX_TURNS", 10)
	if err != nil {
		return Settings{}, err
	}

	maxActive, err := getEnvInt("HOOK_MAX_ACTIVE", 0)
	if err != nil {
		return Settings{}, err
	}
	slotWait, err := getEnvDuration("HOOK_SLOT_WAIT", 0)
	if err != nil {
		return Settings{}, err
	}
	observeTimeout, err := getEnvDuration("HOOK_OBSERVE_TIMEOUT", 0)
	if err != nil {
		return Settings{}, err
	}

	dedupWindow, err := getEnvDuration("FAULT_DEDUP_WINDOW", 0)
	if err != nil {
		return Settings{}, err
	}
	dedupThreshold, err := getEnvInt("FAULT_DEDUP_THRESHOLD", 0)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Provider: pt,
		Agent:    AgentConfig{MaxTurns: maxTurns},
		Hooks: hooks.Limits{
			MaxActive:      maxActive,
			SlotWait:       slotWait,
			ObserveTimeout: observeTimeout,
		},
		Faults: faults.Options{
			DedupWindow:    dedupWindow,
			DedupThreshold: dedupThreshold,
		},
		Storage: StorageConfig{
			Path: os.Getenv("CHECKPOINT_DB"),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}

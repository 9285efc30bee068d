// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const configFileName = "omniwatch.json"

// LoadConfig loads and validates configuration from the specified JSON file.
// If the file doesn't exist, returns default configuration.
func LoadConfig(path string) (*Configuration, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), err
	}

	// Start from defaults so a partial file only overrides what it names.
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("validate %s: %w", path, err)
	}

	return config, nil
}

// LoadDefaultConfig loads configuration from "omniwatch.json" in the current
// working directory, then next to the executable.
func LoadDefaultConfig() (*Configuration, error) {
	if _, err := os.Stat(configFileName); err == nil {
		return LoadConfig(configFileName)
	}

	exePath, err := os.Executable()
	if err == nil {
		configPath := filepath.Join(filepath.Dir(exePath), configFileName)
		if _, err := os.Stat(configPath); err == nil {
			return LoadConfig(configPath)
		}
	}

	return DefaultConfig(), nil
}

// SaveConfig writes configuration to the specified JSON file.
func SaveConfig(config *Configuration, path string) error {
	if err := config.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv loads an optional .env file and applies OMNIWATCH_* overrides on
// top of c. Malformed values are reported and the result is re-validated.
func (c *Configuration) ApplyEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var bad []string
	if v := os.Getenv("OMNIWATCH_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	for key, dst := range map[string]*int{
		"OMNIWATCH_REFRESH_INTERVAL": &c.RefreshInterval,
		"OMNIWATCH_BACKOFF_INTERVAL": &c.BackoffInterval,
		"OMNIWATCH_KILL_TIMEOUT":     &c.KillTimeout,
		"OMNIWATCH_OPEN_FILES_LIMIT": &c.OpenFilesLimit,
		"OMNIWATCH_SEND_QUEUE_SIZE":  &c.SendQueueSize,
	} {
		if !envInt(key, dst) {
			bad = append(bad, key)
		}
	}
	for key, dst := range map[string]*bool{
		"OMNIWATCH_AUTO_REFRESH":      &c.AutoRefresh,
		"OMNIWATCH_BROADCAST_ACTIONS": &c.BroadcastActions,
		"OMNIWATCH_ENABLE_GPU":        &c.EnableGPU,
	} {
		if !envBool(key, dst) {
			bad = append(bad, key)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid environment overrides: %v", bad)
	}

	return c.Validate()
}

// envInt overwrites dst when key is set; it reports false on a malformed value.
func envInt(key string, dst *int) bool {
	v := os.Getenv(key)
	if v == "" {
		return true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false
	}
	*dst = n
	return true
}

func envBool(key string, dst *bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	*dst = b
	return true
}

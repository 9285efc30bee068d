package config

import (
	"errors"
	"fmt"
	"time"
)

const DefaultListenAddr = ":9999"

// Configuration defines the user-configurable settings for omniwatch.
type Configuration struct {
	ListenAddr       string `json:"listen_addr"`
	RefreshInterval  int    `json:"refresh_interval"` // In milliseconds
	BackoffInterval  int    `json:"backoff_interval"` // In milliseconds
	KillTimeout      int    `json:"kill_timeout"`     // In milliseconds
	OpenFilesLimit   int    `json:"open_files_limit"`
	SendQueueSize    int    `json:"send_queue_size"`
	AutoRefresh      bool   `json:"auto_refresh"`
	BroadcastActions bool   `json:"broadcast_actions"`
	EnableGPU        bool   `json:"enable_gpu"`
}

// DefaultConfig returns the hardcoded default configuration.
func DefaultConfig() *Configuration {
	return &Configuration{
		ListenAddr:       DefaultListenAddr,
		RefreshInterval:  2000,
		BackoffInterval:  5000,
		KillTimeout:      1000,
		OpenFilesLimit:   10,
		SendQueueSize:    64,
		AutoRefresh:      true,
		BroadcastActions: true,
		EnableGPU:        true,
	}
}

// Validate checks the configuration and fills in the listen address when it
// was left empty.
func (c *Configuration) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	var errs []error
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval must be positive, got %d", c.RefreshInterval))
	}
	if c.BackoffInterval < c.RefreshInterval {
		errs = append(errs, fmt.Errorf("backoff_interval (%d) must not be shorter than refresh_interval (%d)", c.BackoffInterval, c.RefreshInterval))
	}
	if c.KillTimeout <= 0 {
		errs = append(errs, fmt.Errorf("kill_timeout must be positive, got %d", c.KillTimeout))
	}
	if c.OpenFilesLimit <= 0 {
		errs = append(errs, fmt.Errorf("open_files_limit must be positive, got %d", c.OpenFilesLimit))
	}
	if c.SendQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("send_queue_size must be positive, got %d", c.SendQueueSize))
	}
	return errors.Join(errs...)
}

func (c *Configuration) Refresh() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Millisecond
}

func (c *Configuration) Backoff() time.Duration {
	return time.Duration(c.BackoffInterval) * time.Millisecond
}

func (c *Configuration) KillWait() time.Duration {
	return time.Duration(c.KillTimeout) * time.Millisecond
}

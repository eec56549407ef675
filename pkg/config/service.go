package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/serial_event_log/pkg/pathing"
)

var ActiveCollectorConfig *CollectorConfig

var ErrInvalidConfig = errors.New("invalid config")

func DefaultCollectorConfig() *CollectorConfig {
	return &CollectorConfig{
		SerialDevice:     "/dev/ttyACM1",
		Baudrate:         115200,
		EventLogPath:     pathing.GetEventLogPath(),
		ExportPath:       pathing.GetExportPath(),
		ArchivePath:      pathing.GetArchiveDbPath(),
		RestoreOnStart:   true,
		MenuThreshold:    3,
		DedupCapacity:    65536,
		MaxLineLength:    256,
		FlushIntervalSec: 5,
		Environment:      "production",
	}
}

// LoadCollectorConfig reads the config at configPath.
// An empty path means the default location.
func LoadCollectorConfig(configPath string) error {
	if configPath == "" {
		configPath = pathing.GetConfigPath()
	}

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultCollectorConfig()
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return err
		}
		ActiveCollectorConfig = cfg
		return nil
	}

	// Load existing config on top of the defaults so new fields get sane values
	config := DefaultCollectorConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	ActiveCollectorConfig = config
	return nil
}

func (c *CollectorConfig) Validate() error {
	switch {
	case c.SerialDevice == "":
		return fmt.Errorf("%w: serial_device is empty", ErrInvalidConfig)
	case c.Baudrate == 0:
		return fmt.Errorf("%w: baudrate must be positive", ErrInvalidConfig)
	case c.EventLogPath == "":
		return fmt.Errorf("%w: event_log_path is empty", ErrInvalidConfig)
	case c.MenuThreshold <= 0:
		return fmt.Errorf("%w: menu_threshold must be positive", ErrInvalidConfig)
	case c.MaxLineLength <= 0:
		return fmt.Errorf("%w: max_line_length must be positive", ErrInvalidConfig)
	case c.FlushIntervalSec <= 0:
		return fmt.Errorf("%w: flush_interval_sec must be positive", ErrInvalidConfig)
	case c.DedupCapacity < 0:
		return fmt.Errorf("%w: dedup_capacity cannot be negative", ErrInvalidConfig)
	}
	return nil
}

package pathing

import (
	"os"
	"path/filepath"
)

// Environment variable that relocates both data and config directories.
// Mostly useful for running the collector without root.
const HomeEnvVar = "SERIAL_EVENT_LOG_HOME"

// Ensure directories exist. Called on startup by the collector.
func EnsureDirs() error {
	// Directories that must exist:
	dirs := []string{
		GetDataDir(),
		GetConfigDir(),
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

func GetEventLogPath() string {
	return filepath.Join(GetDataDir(), "events.log")
}

func GetExportPath() string {
	return filepath.Join(GetDataDir(), "events_export.csv")
}

func GetArchiveDbPath() string {
	return filepath.Join(GetDataDir(), "sel-archive.db")
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "collector.toml")
}

func GetDataDir() string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return filepath.Join(home, "data")
	}
	return "/var/lib/serial_event_log"
}

func GetConfigDir() string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return filepath.Join(home, "config")
	}
	return "/etc/serial_event_log"
}

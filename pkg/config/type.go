package config

type CollectorConfig struct {
	SerialDevice string `toml:"serial_device"`
	Baudrate     uint   `toml:"baudrate"`

	// Persistence
	EventLogPath   string `toml:"event_log_path"`
	ExportPath     string `toml:"export_path"`
	ArchivePath    string `toml:"archive_path"` // empty disables the SQLite archive
	RestoreOnStart bool   `toml:"restore_on_start"`

	// Pipeline tuning
	MenuThreshold    int `toml:"menu_threshold"`
	DedupCapacity    int `toml:"dedup_capacity"` // 0 keeps every line ever seen
	MaxLineLength    int `toml:"max_line_length"`
	FlushIntervalSec int `toml:"flush_interval_sec"`

	// "production" logs JSON, anything else logs to the console
	Environment string `toml:"environment"`
	// host:port for /metrics, empty disables
	MetricsListen string `toml:"metrics_listen"`
}

// Package config defines the configuration structure for the scan agent.
//
// Configuration is organized into logical sections (Store, History, Lock)
// plus the logging settings. Defaults come from `default` struct tags applied
// by creasty/defaults; values are then layered by viper.
//
// # Configuration Structure
//
//	Configuration
//	├── Store          - SQLite database settings
//	├── History        - Scan history log bound
//	├── Lock           - Single-instance lock
//	├── LogFormat      - Logging format
//	└── LogLevel       - Logging verbosity
//
// # Store Configuration
//
//	┌──────────────────┬─────────────────┬────────────────────────────────────────┐
//	│ Field            │ Default         │ Description                            │
//	├──────────────────┼─────────────────┼────────────────────────────────────────┤
//	│ Path             │ "scan-agent.db" │ Database file                          │
//	│ BusyTimeout      │ 5s              │ PRAGMA busy_timeout                    │
//	│ Synchronous      │ "NORMAL"        │ PRAGMA synchronous                     │
//	└──────────────────┴─────────────────┴────────────────────────────────────────┘
//
// # History Configuration
//
//	┌──────────────────┬─────────┬────────────────────────────────────────┐
//	│ Field            │ Default │ Description                            │
//	├──────────────────┼─────────┼────────────────────────────────────────┤
//	│ MaxItems         │ 50      │ Entries kept in the history log        │
//	└──────────────────┴─────────┴────────────────────────────────────────┘
//
// # Lock Configuration
//
//	┌──────────────────┬─────────┬────────────────────────────────────────┐
//	│ Field            │ Default │ Description                            │
//	├──────────────────┼─────────┼────────────────────────────────────────┤
//	│ Enabled          │ true    │ Take the lock before opening the store │
//	│ Path             │ ""      │ Lock file, "<store.path>.lock" if empty│
//	│ Timeout          │ 3s      │ How long to retry a held lock          │
//	└──────────────────┴─────────┴────────────────────────────────────────┘
//
// # Sources
//
// Highest precedence first:
//
//  1. command line flags bound to the viper instance
//  2. SCAN_AGENT_* environment variables, dots replaced by underscores
//     (SCAN_AGENT_STORE_PATH, SCAN_AGENT_HISTORY_MAX_ITEMS)
//  3. the file given with --config (yaml, json or toml)
//  4. defaults
//
// # Usage Example
//
//	v := config.NewViper()
//	_ = v.BindPFlag("store.path", cmd.Flags().Lookup("db"))
//	cfg, err := config.Load(v, configFile)
//
// # Debug Logging
//
//	zap.S().Infow("configuration loaded", "config", cfg.DebugMap())
package config

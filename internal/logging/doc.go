// Package logging provides module-scoped slog loggers with per-module levels.
//
// Every record is routed to stdout (text or JSON) when stdout is attached, to
// the systemd journal when journald is reachable, and always to an in-memory
// history buffer that backs the log API.
//
// Initialize once at startup, then fetch loggers by module name:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture": "debug",
//			"mirror":  "warn",
//		},
//	})
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Capture started", "mode", mode)
//
// Loggers obtained before Initialize remain valid. UpdateLevels changes levels
// in place when the config file is edited at runtime.
//
// Journal entries carry SYSLOG_IDENTIFIER=framelink and upper-cased attribute
// fields:
//
//	journalctl -t framelink -f
//	journalctl -t framelink MODULE=capture -p warning
package logging

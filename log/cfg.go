package log

import "fmt"

// LogCfg is the logger configuration. Loaded under the name "logger" and
// hot-reloadable: level and rotation settings apply without a restart.
type LogCfg struct {
	// LogPath is the target file for the file appender.
	LogPath string `mapstructure:"path"`

	// LogLevelName is the minimum level, by name ("debug".."fatal").
	LogLevelName string `mapstructure:"level"`

	// FileSplitMB rotates the log file when it grows past this many
	// megabytes. Zero disables size rotation.
	FileSplitMB int `mapstructure:"splitmb"`

	// IsAsync moves file writes off the logging goroutine.
	IsAsync bool `mapstructure:"isasync"`

	// AsyncCacheSize bounds the async write queue.
	AsyncCacheSize int `mapstructure:"asynccachesize"`

	// AsyncWriteMillSec is the async flush interval.
	AsyncWriteMillSec int `mapstructure:"asyncwritemillsec"`

	// CallerSkip adjusts stack depth for caller capture when the logger is
	// wrapped.
	CallerSkip int `mapstructure:"callerSkip"`

	// FileAppender and ConsoleAppender choose the output destinations.
	FileAppender    bool `mapstructure:"fileAppender"`
	ConsoleAppender bool `mapstructure:"consoleAppender"`

	// EnabledCallerInfo adds file:line to every event.
	EnabledCallerInfo bool `mapstructure:"enabledCallerInfo"`
}

// GetName returns the configuration name for LogCfg.
func (c *LogCfg) GetName() string {
	return "logger"
}

// Validate validates the LogCfg parameters.
func (c *LogCfg) Validate() error {
	if c.FileAppender && c.LogPath == "" {
		return fmt.Errorf("path must be set when fileAppender is enabled")
	}
	if c.FileSplitMB < 0 {
		return fmt.Errorf("splitmb cannot be negative")
	}
	return nil
}

// Level resolves the configured level name.
func (c *LogCfg) Level() Level {
	if c.LogLevelName == "" {
		return DebugLevel
	}
	return ParseLevel(c.LogLevelName)
}

var _defaultCfg = &LogCfg{
	LogPath:         "./arena.log",
	LogLevelName:    "debug",
	FileSplitMB:     50,
	IsAsync:         true,
	ConsoleAppender: true,
}

func getDefaultCfg() *LogCfg {
	return _defaultCfg
}

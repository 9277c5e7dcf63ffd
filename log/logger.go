package log

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lcx/arena/config"
)

// Logger is the fluent logging contract.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	Fatal() *LogEvent
	AddAppender(appender LogAppender)
	Refresh()
}

// GameLogger is a pooled, appender-based logger. The logging path is
// lock-free: level checks are one atomic load, events come from a sync.Pool,
// and appenders serialize internally.
type GameLogger struct {
	appenders         []LogAppender
	minLevel          atomic.Uint32
	callerSkip        int
	enabledCallerInfo bool
	eventPool         *sync.Pool
	callerCache       sync.Map
}

// NewLogger creates a GameLogger from the configuration, or with defaults
// when cfg is nil.
func NewLogger(cfg *LogCfg) *GameLogger {
	if cfg == nil {
		cfg = getDefaultCfg()
	}

	logger := &GameLogger{
		callerSkip:        cfg.CallerSkip,
		enabledCallerInfo: cfg.EnabledCallerInfo,
	}
	logger.minLevel.Store(uint32(cfg.Level()))
	logger.eventPool = &sync.Pool{
		New: func() any {
			return newEvent(logger)
		},
	}

	if cfg.FileAppender {
		logger.AddAppender(NewFileAppender(cfg))
	}
	if cfg.ConsoleAppender {
		logger.AddAppender(NewConsoleAppender())
	}
	return logger
}

// NewLoggerWithConfigManager creates a GameLogger registered for
// configuration hot-reload.
func NewLoggerWithConfigManager(cfg *LogCfg, configManager config.ConfigManager) *GameLogger {
	logger := NewLogger(cfg)
	if configManager != nil {
		configManager.AddChangeListener(logger)
	}
	return logger
}

// OnConfigChanged implements the config.ConfigChangeListener interface.
// Only the level applies live; appender topology needs a new logger.
func (x *GameLogger) OnConfigChanged(configName string, newConfig, oldConfig config.Config) error {
	if configName != "logger" {
		return nil
	}
	newCfg, ok := newConfig.(*LogCfg)
	if !ok {
		return nil
	}
	x.minLevel.Store(uint32(newCfg.Level()))
	x.Refresh()
	return nil
}

// GetConfigName implements the config.ConfigChangeListener interface.
func (x *GameLogger) GetConfigName() string {
	return "logger"
}

// SetLevel changes the minimum level at runtime.
func (x *GameLogger) SetLevel(level Level) {
	x.minLevel.Store(uint32(level))
}

func (x *GameLogger) checkLevel(level Level) bool {
	return Level(x.minLevel.Load()) <= level
}

// AddAppender adds an output destination. Not safe to call concurrently
// with logging; wire appenders up during initialization.
func (x *GameLogger) AddAppender(appender LogAppender) {
	x.appenders = append(x.appenders, appender)
}

// Refresh asks every appender to reopen its destination.
func (x *GameLogger) Refresh() {
	for _, appender := range x.appenders {
		appender.Refresh()
	}
}

// OnEventEnd implements the eventSink contract: flush to the appenders and
// recycle. Fatal events panic after flushing.
func (x *GameLogger) OnEventEnd(e *LogEvent) {
	for _, appender := range x.appenders {
		appender.Write(e.buf.Bytes())
	}
	level := e.level
	x.eventPool.Put(e)
	if level == FatalLevel {
		panic("fatal log event")
	}
}

// Debug creates a debug-level event, or nil when filtered.
func (x *GameLogger) Debug() *LogEvent { return x.log(DebugLevel) }

// Info creates an info-level event, or nil when filtered.
func (x *GameLogger) Info() *LogEvent { return x.log(InfoLevel) }

// Warn creates a warn-level event, or nil when filtered.
func (x *GameLogger) Warn() *LogEvent { return x.log(WarnLevel) }

// Error creates an error-level event, or nil when filtered.
func (x *GameLogger) Error() *LogEvent { return x.log(ErrorLevel) }

// Fatal creates a fatal-level event; its Msg panics after flushing.
func (x *GameLogger) Fatal() *LogEvent { return x.log(FatalLevel) }

func (x *GameLogger) log(level Level) *LogEvent {
	if !x.checkLevel(level) {
		return nil
	}

	e := x.eventPool.Get().(*LogEvent)
	e.Reset()
	e.level = level

	t := time.Now()
	e.Time("time", &t)
	e.Str("level", level.String())
	if x.enabledCallerInfo {
		e.Str("caller", x.getCallerInfo())
	}
	return e
}

// getCallerInfo resolves the logging call site as "pkg/file.go:line",
// cached per program counter.
func (x *GameLogger) getCallerInfo() string {
	pc, file, line, ok := runtime.Caller(3 + x.callerSkip)
	if !ok {
		return "unknown"
	}
	if cached, found := x.callerCache.Load(pc); found {
		return cached.(string)
	}

	if lastSlash := strings.LastIndexByte(file, '/'); lastSlash > 0 {
		if secondLastSlash := strings.LastIndexByte(file[:lastSlash], '/'); secondLastSlash >= 0 {
			file = file[secondLastSlash+1:]
		}
	}
	info := fmt.Sprintf("%s:%d", file, line)
	x.callerCache.Store(pc, info)
	return info
}

var _defaultLogger = NewLogger(nil)

// SetDefaultLogger replaces the package-level default logger.
func SetDefaultLogger(logger *GameLogger) {
	_defaultLogger = logger
}

// InitializeWithConfigManager loads the "logger" configuration from the
// given manager and installs a hot-reloading default logger.
func InitializeWithConfigManager(configManager config.ConfigManager) error {
	if configManager == nil {
		return nil
	}
	logCfg := &LogCfg{}
	if err := configManager.LoadConfig("logger", logCfg); err != nil {
		return err
	}
	SetDefaultLogger(NewLoggerWithConfigManager(logCfg, configManager))
	return nil
}

// Initialize installs a hot-reloading default logger backed by the
// singleton configuration manager.
func Initialize() error {
	return InitializeWithConfigManager(config.GetInstance())
}

// AddAppender adds an appender to the default logger.
func AddAppender(appender LogAppender) {
	_defaultLogger.AddAppender(appender)
}

// Refresh refreshes the default logger's appenders.
func Refresh() {
	_defaultLogger.Refresh()
}

// Debug creates a debug-level event on the default logger.
func Debug() *LogEvent { return _defaultLogger.Debug() }

// Info creates an info-level event on the default logger.
func Info() *LogEvent { return _defaultLogger.Info() }

// Warn creates a warn-level event on the default logger.
func Warn() *LogEvent { return _defaultLogger.Warn() }

// Error creates an error-level event on the default logger.
func Error() *LogEvent { return _defaultLogger.Error() }

// Fatal creates a fatal-level event on the default logger.
func Fatal() *LogEvent { return _defaultLogger.Fatal() }

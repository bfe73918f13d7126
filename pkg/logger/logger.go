package logger

// LoggerInstance defines the interface for logging backends. Library packages
// that must not depend on the global logger accept a LoggerInstance instead.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger holds multiple logging backends and dispatches log calls to all of them.
type Logger struct {
	instances []LoggerInstance
}

var singleton *Logger

// Init initializes the global logger with one or more logging backends.
// Calls made before Init are dropped.
func Init(instances ...LoggerInstance) {
	singleton = &Logger{
		instances: instances,
	}
}

func each(fn func(LoggerInstance)) {
	logger := singleton
	if logger == nil {
		return
	}
	for _, instance := range logger.instances {
		fn(instance)
	}
}

// Log writes a message at the default log level to all configured backends.
func Log(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Log(message, keyvals...) })
}

// Info writes a message at INFO level to all configured backends.
func Info(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Info(message, keyvals...) })
}

// Warn writes a message at WARN level to all configured backends.
func Warn(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Warn(message, keyvals...) })
}

// Error writes a message at ERROR level to all configured backends.
func Error(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Error(message, keyvals...) })
}

// Debug writes a message at DEBUG level to all configured backends.
func Debug(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Debug(message, keyvals...) })
}

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) {
	each(func(l LoggerInstance) { l.Fatal(message, keyvals...) })
}

type global struct{}

func (global) Log(message string, keyvals ...any)   { Log(message, keyvals...) }
func (global) Debug(message string, keyvals ...any) { Debug(message, keyvals...) }
func (global) Info(message string, keyvals ...any)  { Info(message, keyvals...) }
func (global) Warn(message string, keyvals ...any)  { Warn(message, keyvals...) }
func (global) Error(message string, keyvals ...any) { Error(message, keyvals...) }
func (global) Fatal(message string, keyvals ...any) { Fatal(message, keyvals...) }

// Default returns a LoggerInstance that forwards to the global logger.
func Default() LoggerInstance {
	return global{}
}

type nop struct{}

func (nop) Log(string, ...any)   {}
func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}
func (nop) Fatal(string, ...any) {}

// Nop returns a LoggerInstance that discards everything.
func Nop() LoggerInstance {
	return nop{}
}

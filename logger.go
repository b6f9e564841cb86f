package auth

import (
	"fmt"
	"strings"
)

// Logger is the structured logger used across the engine. Arguments are
// key/value pairs, the same contract as log/slog and go-logger/glog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// LoggerProviderFunc adapts a function to LoggerProvider
type LoggerProviderFunc func(name string) Logger

// GetLogger implements LoggerProvider.
func (f LoggerProviderFunc) GetLogger(name string) Logger {
	if f == nil {
		return nil
	}
	return f(name)
}

// ResolveLogger picks the logger for a named component. An explicit
// logger wins, then the provider's named logger, then the default one.
// The returned provider is never nil.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger != nil {
		if provider == nil {
			provider = staticProvider{logger: logger}
		}
		return provider, logger
	}

	if provider != nil {
		if named := provider.GetLogger(name); named != nil {
			return provider, named
		}
	}

	def := defLogger{name: name}
	if provider == nil {
		provider = staticProvider{logger: def}
	}
	return provider, def
}

type staticProvider struct {
	logger Logger
}

func (s staticProvider) GetLogger(string) Logger {
	return s.logger
}

type defLogger struct {
	name string
}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }

func (d defLogger) print(level, msg string, args ...any) {
	var b strings.Builder
	b.WriteString("[" + level + "] ")
	if d.name != "" {
		b.WriteString(d.name + " ")
	}
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	fmt.Println(b.String())
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

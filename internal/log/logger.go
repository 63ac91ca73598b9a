// Package log wraps log/slog with a component-aware logger and the
// field names shared by every tracker binary.
package log

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger bound to one component. The component is
// attached once as an attribute, so every record carries it exactly once.
type Logger struct {
	*slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// ForEnvironment returns a config writing JSON in production and text
// elsewhere, at the given level.
func ForEnvironment(production bool, level slog.Level, component string) Config {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if production {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return Config{Level: level, Component: component, Handler: handler}
}

// New builds a logger from config, tagged with config.Component when set.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	l := &Logger{Logger: slog.New(handler)}
	if config.Component != "" {
		return l.WithComponent(config.Component)
	}
	return l
}

// With returns a logger with the given attributes and the same component.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

// WithComponent returns a logger tagging records with component. Only
// call it on an untagged logger, slog attributes cannot be replaced.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(FieldComponent, component),
		component: component,
	}
}

func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}

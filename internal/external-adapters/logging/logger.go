// Package logging implements the domain logger on top of logrus.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
)

const (
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorReset = "\x1b[0m"
)

// Options configures the logger
type Options struct {
	// Level is a logrus level name ("debug", "info", ...)
	Level string
	// File receives a plain-text copy of every entry; empty disables it
	File string
	// Console defaults to stdout
	Console io.Writer
	// Colors forces ANSI colors on or off; nil detects a terminal
	Colors *bool
}

// Logger adapts a logrus logger to interfaces.Logger
type Logger struct {
	log  *logrus.Logger
	file *lumberjack.Logger
}

// New creates a logger writing colored lines to the console and, optionally,
// a rotating plain-text copy to a file
func New(opts Options) (*Logger, error) {
	if opts.Level == "" {
		opts.Level = "info"
	}
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("failed parsing log-level %s: %w", opts.Level, err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	colors := isTerminal(console)
	if opts.Colors != nil {
		colors = *opts.Colors
	}

	l := logrus.New()
	l.SetOutput(console)
	l.SetLevel(level)
	l.SetFormatter(&ConsoleFormatter{Colors: colors})

	logger := &Logger{log: l}

	if opts.File != "" && opts.File != "console" {
		logger.file = &lumberjack.Logger{
			Filename:   filepath.ToSlash(opts.File),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
		}
		l.AddHook(&FileHook{
			Writer:    logger.file,
			Formatter: &logrus.TextFormatter{DisableColors: true, FullTimestamp: true},
		})
	}

	return logger, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Close flushes and closes the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.log.WithFields(toFields(fields)).Debug(msg)
}

// Info logs progress and success messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.log.WithFields(toFields(fields)).Info(msg)
}

// Warn logs advisory warnings
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.log.WithFields(toFields(fields)).Warn(msg)
}

// Error logs fatal conditions
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.log.WithFields(toFields(fields)).Error(msg)
}

func toFields(fields []interfaces.Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

// ConsoleFormatter prints the message with its fields, green for info and
// red for warnings and errors
type ConsoleFormatter struct {
	Colors bool
}

// Format renders one entry
func (f *ConsoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	color := ""
	if f.Colors {
		switch entry.Level {
		case logrus.InfoLevel:
			color = colorGreen
		case logrus.WarnLevel, logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
			color = colorRed
		}
	}

	b.WriteString(color)
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}

	if color != "" {
		b.WriteString(colorReset)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// FileHook copies every entry to a writer with its own formatter
type FileHook struct {
	Writer    io.Writer
	Formatter logrus.Formatter
}

// Levels set the supported levels for this hook
func (h *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire writes the entry
func (h *FileHook) Fire(entry *logrus.Entry) error {
	line, err := h.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.Writer.Write(line)
	return err
}

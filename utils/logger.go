/*
 * Copyright 2025 quarrydb.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package utils holds shared logging helpers: named logrus loggers with a
// colored console formatter or JSON output, a registry for runtime level
// changes, and small environment lookups.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the concrete logger type handed out by NewLogger.
type Logger = logrus.Logger

var (
	registryMu sync.RWMutex
	registry   = map[string]*logrus.Logger{}

	defaultLevel  = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "debug"))
	defaultFormat = strings.ToLower(EnvDefaultString("LOG_FORMAT", "text"))
)

// ParseLogLevel maps a level name to a logrus level. Unknown names fall
// back to info.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger builds a named logger writing to stdout. The LOG_LEVEL and
// LOG_FORMAT environment variables set the initial level and pick text or
// json output for every logger created by this package.
func NewLogger(name string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	if defaultFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
		l.AddHook(&nameFieldHook{name: name})
	} else {
		l.SetFormatter(&ConsoleFormatter{
			LoggerName:      name,
			TimestampFormat: "2006-01-02 15:04:05.000",
			NameWidth:       10,
		})
	}

	registryMu.Lock()
	registry[name] = l
	registryMu.Unlock()
	return l
}

// SetLoggerLevel changes the level of a named logger. It reports whether
// the name was registered.
func SetLoggerLevel(name string, levelStr string) bool {
	lvl := ParseLogLevel(levelStr)
	registryMu.RLock()
	l, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return false
	}
	l.SetLevel(lvl)
	return true
}

// SetAllLoggersLevel changes the level of every registered logger and of
// loggers created afterwards.
func SetAllLoggersLevel(lvl logrus.Level) {
	registryMu.Lock()
	defaultLevel = lvl
	for _, l := range registry {
		l.SetLevel(lvl)
	}
	registryMu.Unlock()
	logrus.SetLevel(lvl)
}

// nameFieldHook stamps the logger name onto every entry; the JSON formatter
// has no logger name concept of its own.
type nameFieldHook struct {
	name string
}

func (h *nameFieldHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *nameFieldHook) Fire(e *logrus.Entry) error {
	e.Data["logger"] = h.name
	return nil
}

var (
	levelColors = map[logrus.Level]*color.Color{
		logrus.TraceLevel: color.New(color.FgMagenta),
		logrus.DebugLevel: color.New(color.FgBlue),
		logrus.InfoLevel:  color.New(color.FgGreen),
		logrus.WarnLevel:  color.New(color.FgYellow),
		logrus.ErrorLevel: color.New(color.FgRed),
		logrus.FatalLevel: color.New(color.FgRed),
		logrus.PanicLevel: color.New(color.FgRed),
	}
	loggerNameColor = color.New(color.FgCyan)
	pidColor        = color.New(color.FgMagenta)
	faintColor      = color.New(color.Faint)
)

func levelColor(lvl logrus.Level) *color.Color {
	if c, ok := levelColors[lvl]; ok {
		return c
	}
	return levelColors[logrus.TraceLevel]
}

// ConsoleFormatter renders log4j-style lines: timestamp, colored level,
// pid, logger name, caller, message, then any data fields as key=value.
type ConsoleFormatter struct {
	LoggerName      string
	TimestampFormat string
	NameWidth       int
}

func (f *ConsoleFormatter) tsFormat() string {
	if f.TimestampFormat != "" {
		return f.TimestampFormat
	}
	return "2006-01-02 15:04:05.000"
}

func (f *ConsoleFormatter) nameWidth() int {
	if f.NameWidth > 0 {
		return f.NameWidth
	}
	return 10
}

func (f *ConsoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := entry.Time.Format(f.tsFormat())
	lvl := levelColor(entry.Level).Sprintf("%7s", strings.ToUpper(entry.Level.String()))
	pid := pidColor.Sprintf("%-6d", os.Getpid())
	name := loggerNameColor.Sprintf("%*s", f.nameWidth(), limitRunes(f.LoggerName, f.nameWidth()))

	caller := ""
	if entry.Caller != nil {
		caller = faintColor.Sprintf(" %s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	line := fmt.Sprintf("%s %s %s - %s%s %s %s%s\n",
		ts, lvl, pid, name, caller, faintColor.Sprint(":"), entry.Message, formatDataFields(entry.Data))
	return []byte(line), nil
}

func formatDataFields(data logrus.Fields) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", k, data[k]))
	}
	return b.String()
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// EnvDefaultString returns the environment value for key, or def when the
// variable is unset or empty.
func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvDefaultBool parses the environment value for key as a bool, returning
// def when the variable is unset or empty.
func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}

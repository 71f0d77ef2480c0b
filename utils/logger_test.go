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

package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func muteColors(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want logrus.Level
	}{
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"fatal", logrus.FatalLevel},
		{"panic", logrus.PanicLevel},
		{" info ", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseLogLevel(tc.in), "input %q", tc.in)
	}
}

func TestConsoleFormatter_Format(t *testing.T) {
	muteColors(t)

	f := &ConsoleFormatter{
		LoggerName:      "TEST",
		TimestampFormat: "2006-01-02 15:04:05.000",
		NameWidth:       10,
	}
	entry := &logrus.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "hello world",
		Data:    logrus.Fields{"b": 2, "a": 1},
		Caller:  &runtime.Frame{File: "/tmp/pkg/caller.go", Line: 42},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	line := string(out)

	assert.True(t, strings.HasPrefix(line, "2026-01-02 15:04:05.000"), line)
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "      TEST")
	assert.Contains(t, line, "caller.go:42")
	assert.Contains(t, line, "hello world")
	assert.Contains(t, line, " a=1 b=2")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestConsoleFormatter_ZeroValueDefaults(t *testing.T) {
	muteColors(t)

	f := &ConsoleFormatter{LoggerName: "X"}
	entry := &logrus.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "careful",
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	line := string(out)

	assert.True(t, strings.HasPrefix(line, "2026-01-02 15:04:05.000"), line)
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "         X")
	assert.Contains(t, line, "careful")
}

func TestConsoleFormatter_TruncatesLongNames(t *testing.T) {
	muteColors(t)

	f := &ConsoleFormatter{LoggerName: "ABCDEFGHIJKLM", NameWidth: 4}
	entry := &logrus.Entry{Time: time.Now(), Level: logrus.InfoLevel, Message: "m"}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "ABCD")
	assert.NotContains(t, string(out), "ABCDE")
}

func TestLimitRunes(t *testing.T) {
	assert.Equal(t, "short", limitRunes("short", 10))
	assert.Equal(t, "ABCDEFGHIJ", limitRunes("ABCDEFGHIJKLM", 10))
	assert.Equal(t, "hél", limitRunes("héllo", 3))
}

func TestNewLogger_JSONFormat(t *testing.T) {
	prev := defaultFormat
	defaultFormat = "json"
	t.Cleanup(func() { defaultFormat = prev })

	l := NewLogger("JSONTEST")
	l.SetLevel(logrus.InfoLevel)
	buf := &bytes.Buffer{}
	l.SetOutput(buf)

	l.Info("structured hello")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "JSONTEST", payload["logger"])
	assert.Equal(t, "structured hello", payload["msg"])
	assert.Equal(t, "info", payload["level"])
}

func TestSetLoggerLevel(t *testing.T) {
	l := NewLogger("LEVELTEST")

	require.True(t, SetLoggerLevel("LEVELTEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())

	require.True(t, SetLoggerLevel("LEVELTEST", "warn"))
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	assert.False(t, SetLoggerLevel("NEVER_REGISTERED", "debug"))
}

func TestSetAllLoggersLevel(t *testing.T) {
	prev := defaultLevel
	t.Cleanup(func() { SetAllLoggersLevel(prev) })

	a := NewLogger("ALL_A")
	b := NewLogger("ALL_B")

	SetAllLoggersLevel(logrus.WarnLevel)
	assert.Equal(t, logrus.WarnLevel, a.GetLevel())
	assert.Equal(t, logrus.WarnLevel, b.GetLevel())

	// loggers created afterwards inherit the new default
	c := NewLogger("ALL_C")
	assert.Equal(t, logrus.WarnLevel, c.GetLevel())
}

func TestEnvDefaultString(t *testing.T) {
	t.Setenv("QUARRY_TEST_STR", "from-env")
	assert.Equal(t, "from-env", EnvDefaultString("QUARRY_TEST_STR", "fallback"))

	t.Setenv("QUARRY_TEST_STR", "")
	assert.Equal(t, "fallback", EnvDefaultString("QUARRY_TEST_STR", "fallback"))

	t.Setenv("QUARRY_TEST_ABSENT", "")
	_ = os.Unsetenv("QUARRY_TEST_ABSENT")
	assert.Equal(t, "fallback", EnvDefaultString("QUARRY_TEST_ABSENT", "fallback"))
}

func TestEnvDefaultBool(t *testing.T) {
	t.Setenv("QUARRY_TEST_BOOL", "true")
	assert.True(t, EnvDefaultBool("QUARRY_TEST_BOOL", false))

	t.Setenv("QUARRY_TEST_BOOL", "0")
	assert.False(t, EnvDefaultBool("QUARRY_TEST_BOOL", true))

	// unparsable values read as false rather than the default
	t.Setenv("QUARRY_TEST_BOOL", "nonsense")
	assert.False(t, EnvDefaultBool("QUARRY_TEST_BOOL", true))

	t.Setenv("QUARRY_TEST_BOOL", "")
	assert.True(t, EnvDefaultBool("QUARRY_TEST_BOOL", true))
}

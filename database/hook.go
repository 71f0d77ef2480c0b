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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

var (
	selectColor  = color.New(color.FgGreen)
	insertColor  = color.New(color.FgBlue)
	updateColor  = color.New(color.FgYellow)
	deleteColor  = color.New(color.FgMagenta)
	otherColor   = color.New(color.FgRed)
	tagColor     = color.New(color.FgCyan)
	slowTagColor = color.New(color.FgYellow)
	errBadge     = color.New(color.BgRed, color.FgWhite)
	slowBadge    = color.New(color.BgYellow, color.FgBlack)
)

var queryLogSilence bool

// SilenceQueryLogs mutes the query and slow-query hooks; useful around
// probing queries whose failures are expected.
func SilenceQueryLogs(b bool) {
	queryLogSilence = b
}

func operationColor(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return selectColor.Sprint(event.Query)
	case "INSERT":
		return insertColor.Sprint(event.Query)
	case "UPDATE":
		return updateColor.Sprint(event.Query)
	case "DELETE":
		return deleteColor.Sprint(event.Query)
	default:
		return otherColor.Sprint(event.Query)
	}
}

// QueryLogHook prints every completed query with its duration, colored by
// operation. The QUARRY_QUERY_LOG environment variable overrides the
// configured state at runtime: empty or "0" disables, "2" turns on verbose
// mode where successful queries print too.
type QueryLogHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryLogHook)(nil)

// NewQueryLogHook returns a query log hook writing to stdout.
func NewQueryLogHook(enabled, verbose bool) *QueryLogHook {
	return &QueryLogHook{
		envName: "QUARRY_QUERY_LOG",
		enabled: enabled,
		verbose: verbose,
		writer:  os.Stdout,
	}
}

func (h *QueryLogHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryLogHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if queryLogSilence {
		return
	}
	enabled := h.enabled
	verbose := h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}

	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	dur := now.Sub(event.StartTime)

	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		tagColor.Sprintf("%10s", "[QUARRY]"),
		fmt.Sprintf("%14s", dur.Round(time.Microsecond)),
		" ", operationColor(event),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", errBadge.Sprintf(" %s: %s ", typ, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

// SlowQueryHook prints queries whose duration exceeds the threshold. The
// QUARRY_SLOW_LOG environment variable overrides the configured state:
// "1" enables, anything else disables.
type SlowQueryHook struct {
	envName  string
	enabled  bool
	slowTime time.Duration
	writer   io.Writer
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

// NewSlowQueryHook returns a slow-query hook writing to stdout.
func NewSlowQueryHook(slowTime time.Duration) *SlowQueryHook {
	return &SlowQueryHook{
		envName:  "QUARRY_SLOW_LOG",
		enabled:  true,
		slowTime: slowTime,
		writer:   os.Stdout,
	}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if queryLogSilence || event.Err != nil {
		return
	}
	enabled := h.enabled
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = strings.TrimSpace(env) == "1"
	}
	if !enabled {
		return
	}

	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		args := []interface{}{
			time.Now().Format("2006-01-02 15:04:05.000"),
			slowTagColor.Sprintf("%10s", "[SLOW]"),
			fmt.Sprintf("%14s", duration.Round(time.Microsecond)),
			" ", slowBadge.Sprint(event.Query),
		}
		_, _ = fmt.Fprintln(h.writer, args...)
	}
}

// MetricsHook records per-operation query counts and latency histograms
// with Prometheus.
type MetricsHook struct {
	queries   *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var _ bun.QueryHook = (*MetricsHook)(nil)

// NewMetricsHook builds a metrics hook and registers its collectors. A nil
// registerer falls back to the Prometheus default.
func NewMetricsHook(namespace string, reg prometheus.Registerer) *MetricsHook {
	if namespace == "" {
		namespace = "quarry"
	}
	h := &MetricsHook{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "Completed queries by operation and status.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Query latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(h.queries, h.durations)
	return h
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	operation := event.Operation()
	status := "ok"
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		status = "error"
	}
	h.queries.WithLabelValues(operation, status).Inc()
	h.durations.WithLabelValues(operation).Observe(time.Since(event.StartTime).Seconds())
}

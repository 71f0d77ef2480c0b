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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"

	"github.com/quarrydb/quarry/repository"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "2h45m", or from bare numbers interpreted as seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// numbers first: a bare scalar also decodes into a string, so the
	// order decides whether 90 means 90 seconds or a parse error
	var seconds float64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	return fmt.Errorf("invalid duration value %q", value.Value)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// AbstractDatabaseManager defines the operations for managing a database
// connection, bootstrapping tables, and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	CreateTables(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
// For sqlite, DBName may be a file stem, ":memory:", or a full "file:" DSN.
type ConnectionConfig struct {
	Type                string   `yaml:"type"` // postgres, mysql, sqlite
	Host                string   `yaml:"host"`
	Port                int      `yaml:"port"`
	Username            string   `yaml:"username"`
	Password            string   `yaml:"password"`
	DBName              string   `yaml:"dbname"`
	SSLMode             string   `yaml:"sslmode"`
	Charset             string   `yaml:"charset"` // MySQL:utf8mb4, Postgres:UTF8
	MaxIdleConns        int      `yaml:"max_idle_conns"`
	MaxOpenConns        int      `yaml:"max_open_conns"`
	ConnMaxLifetime     Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime     Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout      Duration `yaml:"connect_timeout"`
	ReadTimeout         Duration `yaml:"read_timeout"`
	WriteTimeout        Duration `yaml:"write_timeout"`
	EnableReconnect     bool     `yaml:"enable_reconnect"`
	ReconnectInterval   Duration `yaml:"reconnect_interval"`
	MaxReconnectTries   int      `yaml:"max_reconnect_tries"`
	HealthCheckInterval Duration `yaml:"health_check_interval"`
	EnableQueryLog      bool     `yaml:"enable_query_log"`
	SlowQueryTime       Duration `yaml:"slow_query_time"`
	EnableMetrics       bool     `yaml:"enable_metrics"`
	MetricsNamespace    string   `yaml:"metrics_namespace"`
}

// RepositoryConfig is the YAML shape of the repository tuning block.
type RepositoryConfig struct {
	PaginationLimit      int      `yaml:"pagination_limit"`
	CacheTTL             Duration `yaml:"cache_ttl"`
	CacheCleanupInterval Duration `yaml:"cache_cleanup_interval"`
}

// ToConfig converts the YAML shape into a repository.Config, filling unset
// fields from the repository defaults.
func (rc RepositoryConfig) ToConfig() repository.Config {
	conf := repository.DefaultConfig()
	if rc.PaginationLimit > 0 {
		conf.PaginationLimit = rc.PaginationLimit
	}
	if rc.CacheTTL > 0 {
		conf.CacheTTL = rc.CacheTTL.Std()
	}
	if rc.CacheCleanupInterval > 0 {
		conf.CacheCleanupInterval = rc.CacheCleanupInterval.Std()
	}
	return conf
}

// Config aggregates connection settings, repository tuning, and startup
// behavior.
type Config struct {
	Connection       ConnectionConfig `yaml:"connection"`
	Repository       RepositoryConfig `yaml:"repository"`
	AutoCreateTables bool             `yaml:"auto_create_tables"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     Duration(time.Hour),
		ConnMaxIdleTime:     Duration(time.Minute * 30),
		ConnectTimeout:      Duration(time.Second * 10),
		ReadTimeout:         Duration(time.Second * 30),
		WriteTimeout:        Duration(time.Second * 30),
		EnableReconnect:     true,
		ReconnectInterval:   Duration(time.Second * 5),
		MaxReconnectTries:   3,
		HealthCheckInterval: Duration(time.Minute * 5),
		EnableQueryLog:      false,
		SlowQueryTime:       Duration(time.Second * 2),
		MetricsNamespace:    "quarry",
	}
}

// DefaultRepositoryConfig mirrors the repository package defaults.
func DefaultRepositoryConfig() RepositoryConfig {
	conf := repository.DefaultConfig()
	return RepositoryConfig{
		PaginationLimit:      conf.PaginationLimit,
		CacheTTL:             Duration(conf.CacheTTL),
		CacheCleanupInterval: Duration(conf.CacheCleanupInterval),
	}
}

// DefaultConfig returns a config with default connection and repository
// settings. Table creation on startup stays off.
func DefaultConfig() *Config {
	return &Config{
		Connection: *DefaultConnectionConfig(),
		Repository: DefaultRepositoryConfig(),
	}
}

// LoadConfig reads a YAML config file, layering it over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// OverrideFromEnv overrides connection values from environment variables,
// so credentials never need to live in config files.
func (c *ConnectionConfig) OverrideFromEnv() {
	if host := os.Getenv("DB_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if username := os.Getenv("DB_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		c.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		c.SSLMode = sslmode
	}
	if maxIdle := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil {
			c.MaxIdleConns = val
		}
	}
	if maxOpen := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil {
			c.MaxOpenConns = val
		}
	}
	if maxLifetime := os.Getenv("DB_CONN_MAX_LIFETIME"); maxLifetime != "" {
		if val, err := strconv.Atoi(maxLifetime); err == nil {
			c.ConnMaxLifetime = Duration(time.Duration(val) * time.Second)
		}
	}
	if enableReconnect := os.Getenv("DB_ENABLE_RECONNECT"); enableReconnect != "" {
		c.EnableReconnect = enableReconnect == "true"
	}
	if reconnectInterval := os.Getenv("DB_RECONNECT_INTERVAL"); reconnectInterval != "" {
		if val, err := strconv.Atoi(reconnectInterval); err == nil {
			c.ReconnectInterval = Duration(time.Duration(val) * time.Second)
		}
	}
	if enableQueryLog := os.Getenv("DB_ENABLE_QUERY_LOG"); enableQueryLog != "" {
		c.EnableQueryLog = enableQueryLog == "true"
	}
}

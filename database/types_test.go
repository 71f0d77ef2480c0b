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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/quarrydb/quarry/repository"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{"seconds", "d: 30s", 30 * time.Second},
		{"compound", "d: 2h45m", 2*time.Hour + 45*time.Minute},
		{"millis", "d: 250ms", 250 * time.Millisecond},
		{"bare integer is seconds", "d: 90", 90 * time.Second},
		{"bare float is seconds", "d: 1.5", 1500 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out struct {
				D Duration `yaml:"d"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(tc.yaml), &out))
			assert.Equal(t, tc.want, out.D.Std())
		})
	}
}

func TestDuration_UnmarshalYAML_Invalid(t *testing.T) {
	var out struct {
		D Duration `yaml:"d"`
	}
	err := yaml.Unmarshal([]byte("d: banana"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid duration "banana"`)
}

func TestDuration_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(struct {
		D Duration `yaml:"d"`
	}{D: Duration(90 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "d: 1m30s\n", string(out))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100, cfg.Connection.MaxOpenConns)
	assert.Equal(t, 10, cfg.Connection.MaxIdleConns)
	assert.Equal(t, time.Hour, cfg.Connection.ConnMaxLifetime.Std())
	assert.Equal(t, 10*time.Second, cfg.Connection.ConnectTimeout.Std())
	assert.Equal(t, 2*time.Second, cfg.Connection.SlowQueryTime.Std())
	assert.Equal(t, "quarry", cfg.Connection.MetricsNamespace)
	assert.True(t, cfg.Connection.EnableReconnect)
	assert.False(t, cfg.Connection.EnableQueryLog)
	assert.False(t, cfg.AutoCreateTables)

	def := repository.DefaultConfig()
	assert.Equal(t, def.PaginationLimit, cfg.Repository.PaginationLimit)
	assert.Equal(t, def.CacheTTL, cfg.Repository.CacheTTL.Std())
	assert.Equal(t, def.CacheCleanupInterval, cfg.Repository.CacheCleanupInterval.Std())
}

func TestLoadConfig_LayersOverDefaults(t *testing.T) {
	content := `
connection:
  type: postgres
  host: db.internal
  port: 5433
  dbname: quarry
  max_open_conns: 12
  conn_max_lifetime: 45m
  slow_query_time: 250ms
repository:
  pagination_limit: 50
  cache_ttl: 90
auto_create_tables: true
`
	path := filepath.Join(t.TempDir(), "db.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Connection.Type)
	assert.Equal(t, "db.internal", cfg.Connection.Host)
	assert.Equal(t, 5433, cfg.Connection.Port)
	assert.Equal(t, "quarry", cfg.Connection.DBName)
	assert.Equal(t, 12, cfg.Connection.MaxOpenConns)
	assert.Equal(t, 45*time.Minute, cfg.Connection.ConnMaxLifetime.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Connection.SlowQueryTime.Std())
	assert.True(t, cfg.AutoCreateTables)
	assert.Equal(t, 50, cfg.Repository.PaginationLimit)
	assert.Equal(t, 90*time.Second, cfg.Repository.CacheTTL.Std())

	// keys the file never mentions keep their defaults
	assert.Equal(t, 10, cfg.Connection.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.Connection.ConnMaxIdleTime.Std())
	assert.Equal(t, "quarry", cfg.Connection.MetricsNamespace)
	assert.Equal(t, 10*time.Minute, cfg.Repository.CacheCleanupInterval.Std())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection:\n  connect_timeout: fast\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid duration "fast"`)
}

func TestRepositoryConfig_ToConfig(t *testing.T) {
	assert.Equal(t, repository.DefaultConfig(), RepositoryConfig{}.ToConfig())

	conf := RepositoryConfig{
		PaginationLimit:      25,
		CacheTTL:             Duration(time.Minute),
		CacheCleanupInterval: Duration(2 * time.Minute),
	}.ToConfig()
	assert.Equal(t, 25, conf.PaginationLimit)
	assert.Equal(t, time.Minute, conf.CacheTTL)
	assert.Equal(t, 2*time.Minute, conf.CacheCleanupInterval)
}

func TestConnectionConfig_OverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("DB_PORT", "6033")
	t.Setenv("DB_USERNAME", "svc")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("DB_NAME", "appdb")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_CONN_MAX_LIFETIME", "120")
	t.Setenv("DB_ENABLE_RECONNECT", "false")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")

	cfg := DefaultConnectionConfig()
	cfg.OverrideFromEnv()

	assert.Equal(t, "envhost", cfg.Host)
	assert.Equal(t, 6033, cfg.Port)
	assert.Equal(t, "svc", cfg.Username)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "appdb", cfg.DBName)
	assert.Equal(t, "require", cfg.SSLMode)
	assert.Equal(t, 7, cfg.MaxOpenConns)
	assert.Equal(t, 120*time.Second, cfg.ConnMaxLifetime.Std())
	assert.False(t, cfg.EnableReconnect)
	assert.True(t, cfg.EnableQueryLog)
}

func TestConnectionConfig_OverrideFromEnv_IgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DB_MAX_OPEN_CONNS", "many")

	cfg := DefaultConnectionConfig()
	cfg.Port = 5432
	cfg.OverrideFromEnv()

	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, 100, cfg.MaxOpenConns)
}

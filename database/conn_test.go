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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/quarrydb/quarry/repository"
)

type connNote struct {
	bun.BaseModel `bun:"table:conn_notes"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Text string `bun:"text"`
}

// clearConnEnv removes every DB_* override so the test config is what
// actually connects.
func clearConnEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DB_HOST", "DB_PORT", "DB_USERNAME", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"DB_MAX_IDLE_CONNS", "DB_MAX_OPEN_CONNS", "DB_CONN_MAX_LIFETIME",
		"DB_ENABLE_RECONNECT", "DB_RECONNECT_INTERVAL", "DB_ENABLE_QUERY_LOG",
	} {
		unsetEnv(t, name)
	}
}

func TestInitDB_Validation(t *testing.T) {
	_, err := InitDB(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration cannot be empty")

	cfg := DefaultConfig()
	cfg.Connection.Type = "oracle"
	_, err = InitDB(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type: oracle")
}

// The package globals are one shared connection, so the whole lifecycle
// runs as a single test: accessors before init, init, use, close.
func TestGlobalLifecycle(t *testing.T) {
	clearConnEnv(t)
	ctx := context.Background()

	assert.Nil(t, GetDB())
	assert.Nil(t, GetManager())
	assert.Equal(t, repository.DefaultConfig(), GetRepositoryConfig())

	status := GetHealthStatus(ctx)
	assert.False(t, status.Healthy)
	assert.Equal(t, "Database not initialized", status.LastError)
	assert.Equal(t, &DBStats{}, GetDatabaseStats())

	RegisterModel((*connNote)(nil), 1)

	cfg := &Config{
		Connection: ConnectionConfig{
			Type:         "sqlite",
			DBName:       "file:quarry_conn_lifecycle?mode=memory&cache=shared",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Repository:       RepositoryConfig{PaginationLimit: 25},
		AutoCreateTables: true,
	}
	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	require.NotNil(t, GetManager())

	conf := GetRepositoryConfig()
	assert.Equal(t, 25, conf.PaginationLimit)
	assert.Equal(t, repository.DefaultConfig().CacheTTL, conf.CacheTTL)

	// the registered model's table came up with the connection
	_, err = db.NewInsert().Model(&connNote{Text: "hello"}).Exec(ctx)
	require.NoError(t, err)

	status = GetHealthStatus(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.Nil(t, GetManager())
	require.NoError(t, CloseDB())
}

func TestInitDBFromFile(t *testing.T) {
	clearConnEnv(t)

	content := `
connection:
  type: sqlite
  dbname: "file:quarry_conn_file?mode=memory&cache=shared"
  max_open_conns: 1
  max_idle_conns: 1
`
	path := filepath.Join(t.TempDir(), "db.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	db, err := InitDBFromFile(path)
	require.NoError(t, err)
	require.NotNil(t, db)
	t.Cleanup(func() { _ = CloseDB() })
	require.NoError(t, db.PingContext(context.Background()))

	_, err = InitDBFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

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
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	"github.com/quarrydb/quarry/repository"
)

var (
	globalMu      sync.RWMutex
	globalManager AbstractDatabaseManager
	globalConfig  *Config
)

var supportedTypes = []string{"mysql", "postgres", "sqlite"}

func supportedType(t string) bool {
	for _, s := range supportedTypes {
		if t == s {
			return true
		}
	}
	return false
}

// InitDB initializes the global database from the provided configuration:
// environment overrides, connect, relation model registration, and optional
// table creation.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn := &cfg.Connection
	if !supportedType(conn.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", conn.Type, supportedTypes)
	}
	conn.OverrideFromEnv()

	manager := NewDatabaseManager(conn)
	manager.SetLogger(GetLogger())

	ctx := context.Background()
	if err := manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := manager.GetDB()
	db.RegisterModel(RegisteredModelInstances()...)

	if cfg.AutoCreateTables {
		if err := manager.CreateTables(ctx); err != nil {
			_ = manager.Disconnect()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	globalMu.Lock()
	globalManager = manager
	globalConfig = cfg
	globalMu.Unlock()

	GetLogger().Info("Database initialization completed!")
	return db, nil
}

// InitDBFromFile loads a YAML config file and initializes the global
// database from it.
func InitDBFromFile(path string) (*bun.DB, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return InitDB(cfg)
}

// GetDB returns the global Bun database instance, or nil before InitDB.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalManager == nil {
		return nil
	}
	return globalManager.GetDB()
}

// GetManager returns the global database manager, or nil before InitDB.
func GetManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// GetRepositoryConfig returns the repository tuning from the loaded config,
// or the repository defaults before InitDB.
func GetRepositoryConfig() repository.Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalConfig == nil {
		return repository.DefaultConfig()
	}
	return globalConfig.Repository.ToConfig()
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	manager := globalManager
	globalManager = nil
	globalConfig = nil
	globalMu.Unlock()

	if manager == nil {
		return nil
	}
	return manager.Disconnect()
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	manager := GetManager()
	if manager == nil {
		return &HealthStatus{
			Healthy:   false,
			Connected: false,
			LastError: "Database not initialized",
		}
	}
	return manager.HealthCheck(ctx)
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	manager := GetManager()
	if manager == nil {
		return &DBStats{}
	}
	return manager.GetStats()
}

// Package database provides connection management, pooled Bun instances for
// mysql, postgres, and sqlite, query logging and metrics hooks, driver error
// classification, model registration with ordered table creation, YAML
// configuration, and health checks.
package database

package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func prepareGoose() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Migrate applies all pending migrations
func Migrate(conn *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.Up(conn, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration
func MigrateDown(conn *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	if err := goose.Down(conn, migrationsDir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// MigrationStatus prints the applied state of every migration
func MigrationStatus(conn *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.Status(conn, migrationsDir)
}

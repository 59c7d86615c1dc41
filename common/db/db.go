package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sethvargo/go-retry"

	"github.com/digioh-event-services/common/config"
	"github.com/digioh-event-services/common/logger"
)

var db *sql.DB

// MySQL server error numbers
const (
	errDuplicateEntry   = 1062
	errNoReferencedRow  = 1452
	errLockWaitTimeout  = 1205
	errDeadlockDetected = 1213
)

// Config holds database configuration
type Config struct {
	Server   string
	Port     int
	Database string
	User     string
	Password string
	Timezone string
}

// InitDB initializes the database connection pool from the environment
func InitDB() error {
	app := config.FromEnv()
	return InitDBWithConfig(Config{
		Server:   app.DBServer,
		Port:     app.DBPort,
		Database: app.DBName,
		User:     app.DBUser,
		Password: app.DBPassword,
		Timezone: app.DBTimezone,
	})
}

// DSN builds a MySQL DSN with parseTime and the configured location
func (c Config) DSN() string {
	tz := c.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=%s&multiStatements=true",
		c.User,
		c.Password,
		c.Server,
		c.Port,
		c.Database,
		url.QueryEscape(tz),
	)
}

// InitDBWithConfig initializes database with custom config
func InitDBWithConfig(cfg Config) error {
	conn, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db = conn
	logger.WithFields(map[string]interface{}{
		"server":   cfg.Server,
		"port":     cfg.Port,
		"database": cfg.Database,
		"timezone": cfg.Timezone,
	}).Info("Database connected")

	return nil
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Transaction helpers

// WithTx executes fn within a transaction on conn, rolling back on error or panic
func WithTx(ctx context.Context, conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// WithRetryTx runs fn in a transaction and starts over after a lock wait
// timeout or deadlock, at most attempts times in total
func WithRetryTx(ctx context.Context, conn *sql.DB, attempts uint64, fn func(*sql.Tx) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(20*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := WithTx(ctx, conn, fn)
		if IsRetryable(err) {
			logger.WithError(err).Warn("transaction conflict, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
}

// Error classification

func mysqlErrorNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

// IsDuplicateKey reports a unique constraint violation
func IsDuplicateKey(err error) bool {
	return mysqlErrorNumber(err) == errDuplicateEntry
}

// IsForeignKeyViolation reports an insert referencing a missing parent row
func IsForeignKeyViolation(err error) bool {
	return mysqlErrorNumber(err) == errNoReferencedRow
}

// IsRetryable reports lock wait timeouts and deadlocks
func IsRetryable(err error) bool {
	n := mysqlErrorNumber(err)
	return n == errLockWaitTimeout || n == errDeadlockDetected
}

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/digioh-event-services/common/config"
	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/common/logger"
)

// Usage: migrate [up|down|status]
func main() {
	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	steps := map[string]func(*sql.DB) error{
		"up":     db.Migrate,
		"down":   db.MigrateDown,
		"status": db.MigrationStatus,
	}
	step, ok := steps[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q (want up, down or status)\n", command)
		os.Exit(2)
	}

	if err := run(command, step); err != nil {
		logger.Default().Error("%v", err)
		os.Exit(1)
	}
}

func run(command string, step func(*sql.DB) error) error {
	config.LoadEnv()
	if err := db.InitDB(); err != nil {
		return fmt.Errorf("failed to init DB: %w", err)
	}
	defer db.CloseDB()

	if err := step(db.GetDB()); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	logger.Default().Info("migrate %s done", command)
	return nil
}

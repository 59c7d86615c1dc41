package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/digioh-event-services/common/config"
	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/services/auth-lambda/usecase"
)

// Creates an admin account, or promotes an existing user to admin.
// The password defaults to $ADMIN_PASSWORD.
func main() {
	email := flag.String("email", "", "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (min 6 characters)")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*email, *password); err != nil {
		logger.Default().Error("%v", err)
		os.Exit(1)
	}
}

func run(email, password string) error {
	config.LoadEnv()
	if err := db.InitDB(); err != nil {
		return fmt.Errorf("failed to init DB: %w", err)
	}
	defer db.CloseDB()

	id, err := usecase.NewAuthUseCase().EnsureAdmin(context.Background(), email, password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	fmt.Printf("Admin ready: %s (id %d)\n", email, id)
	return nil
}

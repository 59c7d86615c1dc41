package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/digioh-event-services/common/config"
	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/router"
	"github.com/digioh-event-services/services/guest-lambda/handler"
)

// Standalone Lambda for the guest, scan and file routes
func main() {
	config.LoadEnv()
	cfg := config.FromEnv()
	if err := db.InitDB(); err != nil {
		logger.Default().Fatal("failed to initialize database: %v", err)
	}

	r := router.New(cfg)
	handler.NewGuestHandler().Register(r)
	lambda.Start(r.HandleLambda)
}

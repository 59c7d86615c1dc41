package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/digioh-event-services/common/config"
	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/router"
	authHandler "github.com/digioh-event-services/services/auth-lambda/handler"
	eventHandler "github.com/digioh-event-services/services/event-lambda/handler"
	guestHandler "github.com/digioh-event-services/services/guest-lambda/handler"
)

// Single Lambda serving the whole /api surface behind API Gateway
func main() {
	config.LoadEnv()
	cfg := config.FromEnv()
	if err := db.InitDB(); err != nil {
		logger.Default().Fatal("failed to initialize database: %v", err)
	}

	r := router.New(cfg)
	authHandler.NewAuthHandler().Register(r)
	eventHandler.NewEventHandler().Register(r)
	guestHandler.NewGuestHandler().Register(r)
	lambda.Start(r.HandleLambda)
}

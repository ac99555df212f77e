package main

import (
	"log"

	"mcspec/app"
	"mcspec/internal"
	"mcspec/internal/config"
	"mcspec/internal/resolver"
	"mcspec/ui"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))

	a, err := ui.NewApp(ui.Config{
		Port:      appConfig.Server.UIPort,
		Assembler: app.NewAssembler(logger),
		Options:   resolver.Options{AssumeContinuous: appConfig.Resolver.AssumeContinuous},
		Logger:    logger,
	})
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}
	log.Fatal(a.Start())
}

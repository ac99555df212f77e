package main

import (
	"context"
	"log"
	"strings"

	"mcspec/adapters/memory"
	"mcspec/adapters/postgres"
	"mcspec/adapters/tabular"
	"mcspec/app"
	"mcspec/internal"
	"mcspec/internal/config"
	"mcspec/internal/errors"
	"mcspec/internal/migration"
	"mcspec/internal/resolver"
	"mcspec/ports"
	"mcspec/ui"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects to PostgreSQL and applies the schema
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	dsn := appConfig.Database.URL
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=" + appConfig.Database.SSLMode
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))
	gin.SetMode(appConfig.Server.GinMode)

	var historyRepo ports.HistoryRepository
	if appConfig.Database.URL != "" {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()
		historyRepo = postgres.NewHistoryRepository(db)
		logger.Info("history stored in PostgreSQL")
	} else {
		historyRepo = memory.NewHistoryRepository()
		logger.Info("DATABASE_URL not set, history kept in memory")
	}

	reader := tabular.NewReader(tabular.NewProfiler(0))
	datasets := tabular.NewDatasetCache(appConfig.Data.TTL)
	if appConfig.Data.File != "" {
		ds, err := reader.Read(context.Background(), appConfig.Data.File)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", appConfig.Data.File, err)
		}
		if err := datasets.Save(context.Background(), ds); err != nil {
			log.Fatalf("Failed to cache %s: %v", appConfig.Data.File, err)
		}
		logger.Info("preloaded dataset %s as %s (%d rows)", ds.Name, ds.ID, ds.Rows)
	}

	assembler := app.NewAssembler(logger)
	server := ui.NewServer(ui.Deps{
		Assembler: assembler,
		Design:    app.NewDesignService(assembler),
		History:   app.NewHistoryService(historyRepo, appConfig.History.Limit),
		Datasets:  datasets,
		Reader:    reader,
		Options:   resolver.Options{AssumeContinuous: appConfig.Resolver.AssumeContinuous},
		Logger:    logger,
	})

	log.Fatal(server.Start(":" + appConfig.Server.Port))
}

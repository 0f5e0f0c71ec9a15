package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duckdns_agent/internal/duckdns"
	"duckdns_agent/internal/handlers"
	"duckdns_agent/internal/logger"
	"duckdns_agent/internal/repository"
	"duckdns_agent/internal/repository/db"
	"duckdns_agent/internal/server"
	"duckdns_agent/internal/service"

	"github.com/spf13/viper"
)

func main() {
	// load config.yml, then init the logger with the configured level
	cfgErr := loadConfig()
	log := logger.Get(viper.GetString("log.level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	client := duckdns.New(viper.GetString("duckdns.base_url"))
	sink := service.NewBufferedSink(repos.EventRepo, log)
	services := service.NewService(repos, client, sink, viper.GetString("auth.signing_key"), log)
	apiHandler := handlers.NewHandler(services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, services, sink, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetDefault("duckdns.base_url", duckdns.DefaultBaseURL)
	viper.SetDefault("log.level", logger.InfoLevel)
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "agent.db")
		dbPath = "agent.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals, stops the updater, flushes
// the event sink and shuts the server down gracefully.
func waitForShutdown(srv *server.Server, services *service.Service, sink *service.BufferedSink, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the background updater if one is running
	if err := services.Runner.Stop(); err != nil && !errors.Is(err, service.ErrNotRunning) {
		log.Errorw("failed to stop updater", "err", err)
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}

	// persist whatever the updater managed to log before exit
	sink.Close()
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/okravchenko/parking-api/internal/blacklist"
	"github.com/okravchenko/parking-api/internal/config"
	"github.com/okravchenko/parking-api/internal/es"
	"github.com/okravchenko/parking-api/internal/handlers"
	"github.com/okravchenko/parking-api/internal/logging"
	authmw "github.com/okravchenko/parking-api/internal/middleware/auth"
	loggingmw "github.com/okravchenko/parking-api/internal/middleware/logging"
	"github.com/okravchenko/parking-api/internal/mykafka"
	"github.com/okravchenko/parking-api/internal/repo"
	"github.com/okravchenko/parking-api/internal/tokens"
	httpserver "github.com/okravchenko/parking-api/internal/transport/http"
)

const recordsIndex = "parking_records"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	tokenService := tokens.NewService(
		[]byte(configuration.JWT_SECRET),
		[]byte(configuration.REFRESH_SECRET),
	)
	gormRepo := repo.New(db)
	revoked := blacklist.New()
	guard := &authmw.Guard{Tokens: tokenService, Repo: gormRepo, Blacklist: revoked}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:    db,
		Guard: guard,
		AuthHandler: &handlers.AuthHandler{
			Repo:      gormRepo,
			Tokens:    tokenService,
			Blacklist: revoked,
			Producer:  prod,
		},
		AdminHandler: &handlers.AdminHandler{Repo: gormRepo},
		ParkingHandler: &handlers.ParkingHandler{
			Repo:     gormRepo,
			Producer: prod,
			ES:       esClient,
			Index:    recordsIndex,
		},
		SearchHandler: handlers.NewSearchHandler(esClient, recordsIndex),
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dfryer1193/postboard/blog/application"
	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/dfryer1193/postboard/blog/events"
	"github.com/dfryer1193/postboard/blog/persistence"
	"github.com/dfryer1193/postboard/internal/middleware"
	"github.com/dfryer1193/postboard/internal/rest"
	"github.com/dfryer1193/postboard/shared/config"
	"github.com/dfryer1193/postboard/shared/db/postgres"
	"github.com/dfryer1193/postboard/shared/db/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)
	if cfg.LogConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", string(cfg.Driver)).Msg("Failed to open post storage")
	}
	defer closeRepo()

	broadcaster := events.NewBroadcaster()
	defer broadcaster.Close()

	publishers := events.Multi{broadcaster, events.NewLogPublisher(log.Logger)}
	if cfg.MQTT != nil {
		mqttPublisher, err := events.NewMQTTPublisher(*cfg.MQTT)
		if err != nil {
			log.Fatal().Err(err).Str("broker", cfg.MQTT.Broker).Msg("Failed to connect to MQTT broker")
		}
		defer mqttPublisher.Close()
		publishers = append(publishers, mqttPublisher)
	}

	store := application.NewPostStore(cfg.Admin, publishers)
	postService := application.NewPostService(store, repo)
	defer func() {
		if err := postService.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to gracefully close post service")
		}
	}()

	if err := postService.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load posts from storage")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(gin.CustomRecovery(middleware.HandlePanics()))
	rest.NewApi(r, postService, broadcaster)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("admin", string(postService.Admin())).Str("driver", string(cfg.Driver)).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	// Event streams only end once their subscriptions close.
	broadcaster.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}

// openRepository returns the durable mirror for the configured driver. The
// memory driver has none.
func openRepository(cfg config.Config) (domain.PostRepository, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		database := sqlite.NewSQLiteDB(cfg.SQLite)
		if err := database.Connect(); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := database.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close SQLite database")
			}
		}
		return persistence.NewPostRepository(database.DB()), closeFn, nil
	case config.DriverPostgres:
		pool, err := postgres.Connect(context.Background(), cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return persistence.NewPostgresPostRepository(pool), pool.Close, nil
	default:
		return nil, func() {}, nil
	}
}

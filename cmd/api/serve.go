package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pest-tracker-api-server/config"
	"pest-tracker-api-server/internal/api/routes"
	"pest-tracker-api-server/internal/auth"
	"pest-tracker-api-server/internal/database"
	"pest-tracker-api-server/internal/log"
	"pest-tracker-api-server/internal/repository"
	"pest-tracker-api-server/internal/repository/memory"
	"pest-tracker-api-server/internal/s3"
	"pest-tracker-api-server/internal/service"
	"pest-tracker-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		inMemory, _ := cmd.Flags().GetBool("memory")
		return runServe(cmd, inMemory)
	},
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig(requireMongo bool) (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	log.Init(log.Config{Level: log.Level(cfg.Log.Level), JSONOutput: cfg.Log.JSON})
	return cfg, cfg.Validate(requireMongo)
}

// openStore connects to MongoDB, or returns the in-memory store. The returned
// close function releases the connection.
func openStore(ctx context.Context, cfg config.Config, inMemory bool) (*repository.Store, func(), error) {
	if inMemory {
		log.Warn("using the in-memory store, data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}

	client, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Errorf("failed to disconnect from MongoDB", err)
		}
	}

	db := client.Database(cfg.Mongo.DBName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		closeFn()
		return nil, nil, err
	}
	logger := log.WithComponent("database")
	logger.Info().Str("db", cfg.Mongo.DBName).Bool("transactions", cfg.Mongo.Transactions).Msg("connected to MongoDB")
	return database.NewStore(client, db, cfg.Mongo.Transactions), closeFn, nil
}

func runServe(cmd *cobra.Command, inMemory bool) error {
	cfg, err := loadConfig(!inMemory)
	if err != nil {
		return err
	}
	if cfg.Log.Level != string(log.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, inMemory)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := database.SeedAdmin(ctx, store.Users, cfg.Admin); err != nil {
		return err
	}

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.TokenTTL())
	hub := socket.NewHub()
	opts := service.Options{Tokens: tokens, Notifier: hub}

	if cfg.S3.Enabled() {
		uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			return err
		}
		opts.Images = uploader
		logger := log.WithComponent("s3")
		logger.Info().Str("bucket", cfg.S3.Bucket).Msg("report image uploads enabled")
	} else {
		log.Info("S3 is not configured, report image uploads are disabled")
	}

	router := routes.SetupRouter(cfg, service.New(store, opts), tokens, hub)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Info().Str("port", cfg.Server.Port).Msg("starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"norne/internal/api"
	"norne/internal/app"
	"norne/internal/config"
	"norne/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "", "path to config file (default $NORNE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(config.ResolvePath(*cfgFlag))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("initializing app: %v", err)
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := api.NewServer(a, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		logger.Info("norne-server starting", "http", srv.HTTPAddr(), "grpc", srv.GRPCAddr())
		errc <- srv.ListenAndServe(ctx)
	}()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("server error", "error", err)
		}
		return
	case <-ctx.Done():
	}
	logger.Info("shutting down norne-server")

	// ListenAndServe drains both servers once ctx is cancelled.
	if err := <-errc; err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

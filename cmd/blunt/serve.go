package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/blunt-app/blunt/internal/handlers"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func newServer(a *app) *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	if a.Server.TrustProxy {
		server.IPExtractor = echo.ExtractIPFromXFFHeader()
	}
	server.Use(middleware.BodyLimit("2M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("blunt"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     a.AllowedOrigins(),
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))

	handlers.Register(server, a.services())
	return server
}

func startPruning(a *app) (*cron.Cron, error) {
	location, err := a.Location()
	if err != nil {
		return nil, err
	}
	scheduler := cron.New(cron.WithLocation(location))
	_, err = scheduler.AddFunc(a.RateLimit.PruneSchedule, func() {
		if _, err := a.limiter.Prune(context.Background()); err != nil {
			log.Errorf("pruning usage: %+v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	return scheduler, nil
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.IsDevelopment() && a.AuthoritiesFile != "" {
		if err := a.authorities.Watch(a.AuthoritiesFile); err != nil {
			log.Warnf("not watching authorities: %+v", err)
		}
	}

	scheduler, err := startPruning(a)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	server := newServer(a)

	metrics := echo.New()
	metrics.HideBanner = true
	metrics.GET("/metrics", echoprometheus.NewHandler())
	go func() {
		if err := metrics.Start(":" + a.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + a.Server.Port); err != nil && err != http.ErrServerClosed {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return shutdown(shutdownCtx, server, metrics)
}

// shutdown stops every server, returning the first error seen.
func shutdown(ctx context.Context, servers ...*echo.Echo) error {
	var first error
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			log.Errorf("shutting down server: %+v", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

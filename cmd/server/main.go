package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/internal/config"
	"github.com/jrsteele09/vistara-dashboard/server"
	"github.com/jrsteele09/vistara-dashboard/session"
	"github.com/jrsteele09/vistara-dashboard/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const janitorInterval = 5 * time.Minute

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file (environment variables take precedence)")
	pflag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run(configPath string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := apiclient.New(c.GetAPIBaseURL(),
		apiclient.WithTimeout(c.GetAPITimeout()),
		apiclient.WithBypassHeaders(c.GetBypassHeaders()),
		apiclient.WithLogger(log.Logger),
	)
	if err != nil {
		return fmt.Errorf("apiclient.New: %w", err)
	}

	backend, err := storage.Open(ctx, c.GetStateBackend(), c.GetStatePath(), c.GetStateSecret())
	if err != nil {
		return fmt.Errorf("storage.Open: %w", err)
	}
	defer backend.Close()

	var opts []server.Option
	if issuer := c.GetTokenIssuer(); issuer != "" {
		inspector, err := session.NewOIDCInspector(ctx, issuer, c.GetAPITimeout())
		if err != nil {
			return fmt.Errorf("session.NewOIDCInspector: %w", err)
		}
		opts = append(opts, server.WithInspector(inspector))
	}

	s, err := server.New(c, client, backend, opts...)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	if err := s.Bootstrap(ctx); err != nil {
		return err
	}
	go s.Janitor(ctx, janitorInterval)

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer) }()

	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			return err
		}
	}
	return shutdown(httpServer)
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if env == "DEV" {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(level)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit/internal/archive"
	"github.com/coursekit/coursekit/internal/cert"
	"github.com/coursekit/coursekit/internal/config"
	"github.com/coursekit/coursekit/internal/content"
	"github.com/coursekit/coursekit/internal/fetch"
	"github.com/coursekit/coursekit/internal/images"
	"github.com/coursekit/coursekit/internal/importer"
	"github.com/coursekit/coursekit/internal/quiz"
	"github.com/coursekit/coursekit/internal/store"
	"github.com/coursekit/coursekit/internal/web"
)

func main() {
	configName := flag.String("config", "coursekit", "config file name without extension")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Str("level", cfg.LogLevel).Msg("unknown log level")
	}
	log = log.Level(level)

	st, err := store.New(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open data store")
	}

	fetcher := fetch.NewFetcher(fetch.NewValidator(nil), fetch.Options{
		MaxRedirects: cfg.Fetch.MaxRedirects,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		UserAgent:    cfg.Fetch.UserAgent,
	}, log)

	pipeline := images.NewPipeline(fetcher, st.ResourceDir(), images.Options{
		MaxImages:    cfg.Fetch.MaxImages,
		MaxImageSize: cfg.Fetch.MaxImageSize,
	}, log)

	imp := importer.NewImporter(fetcher, pipeline, content.NewBuilder(content.DefaultResourceBase),
		cfg.Fetch.MaxDocumentSize, log)

	server := web.NewServer(st, imp, quiz.NewGenerator(log), cert.NewGenerator(),
		archive.NewArchiver(cfg.DataDir), log)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

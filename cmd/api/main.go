package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/huddlechat/huddle/backend/internal/config"
	"github.com/huddlechat/huddle/backend/internal/feed"
	"github.com/huddlechat/huddle/backend/internal/handler"
	applog "github.com/huddlechat/huddle/backend/internal/log"
	"github.com/huddlechat/huddle/backend/internal/service/ai"
	"github.com/huddlechat/huddle/backend/internal/service/roomsync"
	"github.com/huddlechat/huddle/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	applog.Init(cfg.Env)

	broker := feed.NewBroker()

	var st store.Store
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLiteStore(ctx, cfg.Store.SQLitePath, broker)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite store")
		}
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("sqlite store ready")
	default:
		st = store.NewMemoryStore(broker)
		log.Info().Msg("in-memory store ready")
	}
	defer st.Close()

	var responder roomsync.Responder
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("ai initialization failed, mentions will go unanswered")
		} else {
			responder = aiSvc
			log.Info().Str("model", cfg.AI.Model).Msg("ai responder ready")
		}
	} else {
		log.Info().Msg("ark credentials not configured, running without ai")
	}

	manager := roomsync.NewManager(st, broker, responder)
	router := handler.NewRouter(manager)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("huddle backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-quiz/internal/config"
	"pdf-quiz/internal/hooks"
	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/quizapi"
	"pdf-quiz/internal/session"
	"pdf-quiz/internal/state"
	"pdf-quiz/internal/state/redisstore"
	"pdf-quiz/internal/state/sqlite"
	"pdf-quiz/internal/webapp"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		fmt.Fprintln(os.Stderr, "error: load .env:", err)
		os.Exit(1)
	}
	cfg := config.FromEnv()

	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	apiURL := flag.String("api", cfg.QuizAPIURL, "quiz generation service base URL")
	driver := flag.String("state", string(cfg.StateDriver), "session state driver: sqlite, redis or memory")
	dsn := flag.String("state-dsn", cfg.StateDSN, "sqlite database path")
	flag.Parse()
	cfg.HTTPAddr = *addr
	cfg.QuizAPIURL = *apiURL
	cfg.StateDriver = config.StateDriver(*driver)
	cfg.StateDSN = *dsn

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, closeSnapshots, err := openSnapshots(ctx, cfg)
	if err != nil {
		log.Fatal("open session state", "driver", string(cfg.StateDriver), "error", err)
	}
	defer closeSnapshots()

	client := quizapi.NewClient(cfg.QuizAPIURL, &http.Client{Timeout: cfg.HTTPTimeout})
	sessions := state.NewManager(snapshots, func(sessionID string) *quiz.Store {
		return quiz.NewStore(
			quiz.WithLogger(log.With("session_id", sessionID)),
			quiz.WithSyncer(client.Syncer(sessionID), cfg.SyncTimeout),
		)
	}, log, state.WithIdleTimeout(cfg.SessionIdle))
	defer sessions.Close()
	go sessions.Run(ctx)

	api := webapp.NewAPI(client, sessions, session.Cookies{Secure: cfg.CookieSecure}, cfg.FeedbackDebounce, log)
	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: webapp.NewRouter(api, webapp.RouterOptions{
			AllowedOrigins: cfg.CORSOrigins,
			RequestTimeout: cfg.HTTPTimeout + 5*time.Second,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("quiz-web listening",
		"addr", cfg.HTTPAddr,
		"quiz_api", client.BaseURL(),
		"state", string(cfg.StateDriver),
		"max_upload_bytes", hooks.MaxUploadBytes,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "error", err)
	}
}

func openSnapshots(ctx context.Context, cfg config.Config) (state.SnapshotStore, func(), error) {
	switch cfg.StateDriver {
	case config.StateMemory:
		return state.NewMemoryStore(), func() {}, nil
	case config.StateRedis:
		store, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.StateTTL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.StateSQLite, "":
		store, err := sqlite.NewSQLiteStore(cfg.StateDSN, cfg.StateTTL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown state driver %q", cfg.StateDriver)
	}
}

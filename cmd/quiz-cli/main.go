package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"pdf-quiz/internal/cli"
	"pdf-quiz/internal/config"
	"pdf-quiz/internal/logger"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		fmt.Fprintln(os.Stderr, "error: load .env:", err)
		os.Exit(1)
	}
	cfg := config.FromEnv()

	server := flag.String("server", cfg.QuizAPIURL, "quiz generation service base URL")
	pdf := flag.String("pdf", "", "PDF to generate the quiz from (prompted when empty)")
	name := flag.String("name", "", "your name for the results (prompted when empty)")
	timeout := flag.Duration("timeout", cfg.HTTPTimeout, "HTTP timeout")
	logMode := flag.String("log", "prod", "log mode: dev or prod")
	flag.Parse()

	log, err := logger.New(*logMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = cli.Run(ctx, os.Stdin, os.Stdout, cli.Config{
		ServerURL:        *server,
		PDFPath:          *pdf,
		UserName:         *name,
		HTTPTimeout:      *timeout,
		SyncTimeout:      cfg.SyncTimeout,
		FeedbackDebounce: cfg.FeedbackDebounce,
		Logger:           log,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

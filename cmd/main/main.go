package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/BartekS5/roomstat/internal/cli"
	"github.com/BartekS5/roomstat/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := cli.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

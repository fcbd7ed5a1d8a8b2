package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/graphrag-assistant/internal/adapters/mcp"
	"github.com/kirillkom/graphrag-assistant/internal/bootstrap"
	"github.com/kirillkom/graphrag-assistant/internal/config"
	"github.com/kirillkom/graphrag-assistant/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// stdout carries protocol frames only.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.RoleTool, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	s := mcpadapter.NewServer(mcpadapter.Services{
		Classifier: app.Classifier,
		Search:     app.SearchUC,
		Answer:     app.AnswerUC,
		Stores:     app.StoresUC,
		Counts:     app.CountUC,
	})

	logger.Info("mcp_serving_stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}

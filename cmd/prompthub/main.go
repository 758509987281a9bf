// Command prompthub starts the PromptHub API server: it loads
// configuration, connects to Postgres (running embedded migrations), wires
// the store, cache, resolver, scene engine and call-log sink, then serves
// the REST API until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prompthub/prompthub/pkg/api"
	"github.com/prompthub/prompthub/pkg/cache"
	"github.com/prompthub/prompthub/pkg/calllog"
	"github.com/prompthub/prompthub/pkg/config"
	"github.com/prompthub/prompthub/pkg/database"
	"github.com/prompthub/prompthub/pkg/resolver"
	"github.com/prompthub/prompthub/pkg/sceneengine"
	"github.com/prompthub/prompthub/pkg/services"
	"github.com/prompthub/prompthub/pkg/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("prompthub exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbClient, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbClient.Close()
	slog.Info("connected to database", "host", cfg.Database.Host, "database", cfg.Database.Database)

	st := store.New(dbClient.Pool())
	resultCache := cache.New(cfg.CacheTTL)

	callLogWriter := st.CallLogs
	sink := calllog.New(callLogWriter, cfg.CallLogQueueSize, cfg.CallLogWorkerCount)
	sink.Start(ctx)
	defer sink.Stop()

	dependencyResolver := resolver.New(st)
	engine := sceneengine.New(st, dependencyResolver, resultCache, sink, cache.Fingerprint)

	projectService := services.NewProjectService(st)
	promptService := services.NewPromptService(st, resultCache)
	sceneService := services.NewSceneService(st, resultCache, dependencyResolver, engine)

	authenticator := api.NewAuthenticator(cfg.APIKeys)
	server := api.NewServer(cfg, dbClient, resultCache, sink, projectService, promptService, sceneService, authenticator)

	serverErrs := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr)
		serverErrs <- server.Start(cfg.HTTPAddr)
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrs:
		return err
	case <-stop:
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

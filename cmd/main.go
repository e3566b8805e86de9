// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/patrik-rangel/melcloud-data-logger/internal/bootstrap"
	"github.com/patrik-rangel/melcloud-data-logger/internal/config"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Erro fatal ao carregar configuração: %v", err)
	}

	app, err := bootstrap.New(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Erro fatal ao iniciar: %v", err)
	}
	defer app.Close()
	logger := app.Logs.Get("main")

	if cfg.Metrics.Enabled {
		server := serveMetrics(cfg.Metrics.Addr)
		logger.Infof("Métricas disponíveis em %s/metrics", cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if err := app.Poller.Bootstrap(ctx); err != nil {
		logger.Errorf("Erro fatal: %v", err)
		app.Close()
		os.Exit(1)
	}

	if err := app.Poller.Run(ctx); err != nil {
		logger.Errorf("Coleta interrompida: %v", err)
	}
	logger.Info("Encerrando")
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Servidor de métricas encerrado: %v", err)
		}
	}()
	return server
}

// cmd/lambda/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/patrik-rangel/melcloud-data-logger/internal/bootstrap"
	"github.com/patrik-rangel/melcloud-data-logger/internal/config"
)

// The app survives between warm invocations so the session token and the
// sink connections are reused. A failed start is not kept: the next
// invocation tries again.
var (
	mu  sync.Mutex
	app *bootstrap.App

	newApp = func(ctx context.Context) (*bootstrap.App, error) {
		cfg, err := config.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("erro ao carregar configuração: %w", err)
		}
		a, err := bootstrap.New(ctx, cfg, os.Stdout)
		if err != nil {
			return nil, err
		}
		if err := a.Poller.Bootstrap(ctx); err != nil {
			a.Close()
			return nil, err
		}
		return a, nil
	}
)

func setup(ctx context.Context) (*bootstrap.App, error) {
	mu.Lock()
	defer mu.Unlock()

	if app != nil {
		return app, nil
	}
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	app = a
	return app, nil
}

// Handler runs one refresh-fetch-persist cycle per scheduled event.
func Handler(ctx context.Context, event events.CloudWatchEvent) error {
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	logger := app.Logs.Get("lambda")
	logger.Infof("Evento agendado %s recebido", event.ID)

	report := app.Poller.RunCycle(ctx)
	if report.FetchErr != nil {
		return fmt.Errorf("ciclo sem dados: %w", report.FetchErr)
	}
	if report.Snapshot != nil {
		logger.Infof("Snapshot %s processado", report.Snapshot.Key())
	}
	return nil
}

func main() {
	lambda.Start(Handler)
}

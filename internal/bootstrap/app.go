package bootstrap

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/config"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/services"
	"github.com/patrik-rangel/melcloud-data-logger/internal/logging"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/melcloud"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/metrics"
)

// App is the wired logger: API client, session, sinks and poller.
type App struct {
	Config *config.Config
	Logs   *logging.Logrus
	Poller *services.Poller
	Sinks  *Sinks

	log *logrus.Entry
}

// New wires everything cfg asks for. Sinks that fail to connect are left
// out; only an invalid time zone is an error here.
func New(ctx context.Context, cfg *config.Config, output io.Writer) (*App, error) {
	logs := logging.NewLogrus(cfg.LogLevel, output)
	log := logs.Get("bootstrap")

	loc, err := cfg.Location()
	if err != nil {
		return nil, errors.Wrap(err, "carregar fuso horário")
	}
	log.Infof("Fuso horário do dispositivo: %s (agora %s)", loc, time.Now().In(loc).Format(time.RFC3339))

	metrics.Init()

	client := melcloud.NewClient(cfg.BaseURL, logs.Get("melcloud"))
	session := services.NewSession(client, cfg.Email, cfg.Password, cfg.AccessToken, logs.Get("session"))
	sinks := BuildSinks(ctx, cfg, logs, DefaultConnectTimeout)

	poller := services.NewPoller(client, session, sinks.List, services.PollerConfig{
		FetchInterval:   cfg.FetchAfter(),
		RefreshInterval: cfg.RefreshEvery(),
		Location:        loc,
		Identity:        entities.DeviceIdentity{DeviceID: cfg.DeviceID, BuildingID: cfg.BuildingID},
	}, logs.Get("poller"))

	return &App{
		Config: cfg,
		Logs:   logs,
		Poller: poller,
		Sinks:  sinks,
		log:    log,
	}, nil
}

// Close releases every sink connection.
func (a *App) Close() {
	if err := a.Sinks.Close(); err != nil {
		a.log.Errorf("Erro ao fechar destinos de gravação: %v", err)
	}
}

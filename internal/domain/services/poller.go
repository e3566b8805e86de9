package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/gateways"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/melcloud"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/metrics"
)

var (
	// ErrNoDevice is returned by Bootstrap when discovery finds nothing to poll.
	ErrNoDevice = errors.New("nenhum dispositivo encontrado na conta")

	errDeviceNotListed = errors.New("dispositivo ausente na lista de dispositivos")
)

type PollerConfig struct {
	FetchInterval   time.Duration
	RefreshInterval time.Duration
	// Location is the zone the device list reports its wall clock in.
	Location *time.Location
	// Identity holds the configured overrides. Discovery fills what is missing.
	Identity entities.DeviceIdentity
}

// CycleReport describes what one cycle did. Snapshot is nil when nothing was
// persisted. SinkErrors has one entry per enabled sink, nil on success.
type CycleReport struct {
	RefreshErr error
	FetchErr   error
	Snapshot   *entities.DeviceSnapshot
	SinkErrors map[string]error
}

type Poller struct {
	api      gateways.MelCloudAPI
	session  *Session
	sinks    []gateways.SnapshotSink
	cfg      PollerConfig
	identity entities.DeviceIdentity
	log      *logrus.Entry
}

func NewPoller(api gateways.MelCloudAPI, session *Session, sinks []gateways.SnapshotSink, cfg PollerConfig, log *logrus.Entry) *Poller {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Poller{
		api:      api,
		session:  session,
		sinks:    sinks,
		cfg:      cfg,
		identity: cfg.Identity,
		log:      log,
	}
}

// Identity returns the device being polled. It is complete after Bootstrap.
func (p *Poller) Identity() entities.DeviceIdentity {
	return p.identity
}

// Bootstrap obtains a token when none was configured and resolves the device
// identity. Any error is fatal for the process.
func (p *Poller) Bootstrap(ctx context.Context) error {
	if p.session.Token() == "" {
		if err := p.session.Authenticate(ctx); err != nil {
			return fmt.Errorf("não foi possível obter a chave de contexto inicial: %w", err)
		}
	}

	if p.identity.Complete() {
		p.log.Infof("Usando dispositivo configurado %d (prédio %d)", p.identity.DeviceID, p.identity.BuildingID)
		return nil
	}

	entries, err := WithReauth(ctx, p.session, p.listDevices)
	if err != nil {
		return fmt.Errorf("falha na descoberta do dispositivo: %w", err)
	}

	identity, err := discoverIdentity(entries, p.identity)
	if err != nil {
		return err
	}
	p.identity = identity
	p.log.Infof("Dispositivo descoberto: %d (prédio %d)", identity.DeviceID, identity.BuildingID)
	return nil
}

// discoverIdentity fills the missing half of want from the device list. With
// no overrides it takes the first device of the first building.
func discoverIdentity(entries []melcloud.ListDevicesResponse, want entities.DeviceIdentity) (entities.DeviceIdentity, error) {
	for _, building := range entries {
		if want.BuildingID != 0 && building.ID != want.BuildingID {
			continue
		}
		for _, entry := range building.Structure.Devices {
			if want.DeviceID != 0 && entry.DeviceID != want.DeviceID {
				continue
			}
			identity := entities.DeviceIdentity{DeviceID: entry.DeviceID, BuildingID: entry.BuildingID}
			if identity.BuildingID == 0 {
				identity.BuildingID = building.ID
			}
			return identity, nil
		}
	}
	return entities.DeviceIdentity{}, fmt.Errorf("%w (dispositivo %d, prédio %d)", ErrNoDevice, want.DeviceID, want.BuildingID)
}

// Run repeats cycles until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Infof("Iniciando coleta: refresh a cada %s, leitura %s após o refresh", p.cfg.RefreshInterval, p.cfg.FetchInterval)
	for {
		p.RunCycle(ctx)
		if err := sleep(ctx, p.cfg.RefreshInterval); err != nil {
			p.log.Info("Coleta encerrada")
			return nil
		}
	}
}

// RunCycle asks for a refresh, waits FetchInterval, then fetches one snapshot
// and writes it to every enabled sink.
func (p *Poller) RunCycle(ctx context.Context) CycleReport {
	var report CycleReport
	start := time.Now()

	report.RefreshErr = p.refresh(ctx)
	refreshTook := time.Since(start)
	// The fetch sleep is not part of the cycle latency.
	busy := func(fetchStart time.Time) time.Duration {
		return refreshTook + time.Since(fetchStart)
	}

	if err := sleep(ctx, p.cfg.FetchInterval); err != nil {
		report.FetchErr = err
		return report
	}
	fetchStart := time.Now()

	src, err := p.fetch(ctx)
	if err != nil {
		report.FetchErr = err
		p.log.Errorf("Nenhum dado persistido neste ciclo: %v", err)
		metrics.ObserveCycle(metrics.ResultError, busy(fetchStart))
		return report
	}

	snapshot, ok := Normalize(src, p.cfg.Location)
	if !ok {
		p.log.Debug("Timestamp do dispositivo inválido, nada a persistir")
		metrics.ObserveCycle(metrics.ResultSkipped, busy(fetchStart))
		return report
	}
	metrics.IncSnapshot(string(snapshot.Source))

	report.Snapshot = &snapshot
	report.SinkErrors = p.persist(ctx, snapshot)

	result := metrics.ResultSuccess
	for _, sinkErr := range report.SinkErrors {
		if sinkErr != nil {
			result = metrics.ResultError
			break
		}
	}
	metrics.ObserveCycle(result, busy(fetchStart))
	return report
}

func (p *Poller) refresh(ctx context.Context) error {
	ack, err := WithReauth(ctx, p.session, func(ctx context.Context, token string) (bool, error) {
		ack, err := p.api.RequestRefresh(ctx, token, p.identity.DeviceID)
		recordCall("requestrefresh", err)
		return ack, err
	})
	switch {
	case errors.Is(err, melcloud.ErrUnauthorized):
		p.log.Errorf("Refresh rejeitado novamente após novo login: %v", err)
	case err != nil:
		p.log.Warnf("Falha ao solicitar refresh do dispositivo %d: %v", p.identity.DeviceID, err)
	case !ack:
		p.log.Debugf("Refresh do dispositivo %d não confirmado", p.identity.DeviceID)
	}
	return err
}

// fetch prefers the device list and falls back to Device/Get on any failure
// that is not an authorization failure.
func (p *Poller) fetch(ctx context.Context) (Source, error) {
	entries, err := WithReauth(ctx, p.session, p.listDevices)
	if err == nil {
		if device, found := findDevice(entries, p.identity); found {
			return DeviceListSource{Device: device}, nil
		}
		err = errDeviceNotListed
	}
	if isAuthFailure(err) || ctx.Err() != nil {
		return nil, err
	}

	p.log.Warnf("Lista de dispositivos indisponível (%v), usando dados atuais", err)
	data, err := WithReauth(ctx, p.session, func(ctx context.Context, token string) (*melcloud.CurrentDataResponse, error) {
		data, err := p.api.GetCurrentData(ctx, token, p.identity.DeviceID, p.identity.BuildingID)
		recordCall("deviceget", err)
		return data, err
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("resposta vazia de dados atuais")
	}
	return CurrentDataSource{Data: *data}, nil
}

func (p *Poller) listDevices(ctx context.Context, token string) ([]melcloud.ListDevicesResponse, error) {
	entries, err := p.api.ListDevices(ctx, token)
	recordCall("listdevices", err)
	return entries, err
}

func findDevice(entries []melcloud.ListDevicesResponse, identity entities.DeviceIdentity) (melcloud.Device, bool) {
	for _, building := range entries {
		for _, entry := range building.Structure.Devices {
			if entry.DeviceID == identity.DeviceID {
				return entry.Device, true
			}
		}
	}
	return melcloud.Device{}, false
}

// persist writes snapshot to every enabled sink, one after the other in
// configuration order. A sink error is logged and reported, never propagated
// to the sinks after it.
func (p *Poller) persist(ctx context.Context, snapshot entities.DeviceSnapshot) map[string]error {
	results := make(map[string]error, len(p.sinks))
	stored := false

	for _, sink := range p.sinks {
		if !sink.Enabled() {
			metrics.ObserveSinkWrite(sink.Name(), metrics.ResultSkipped, 0)
			continue
		}

		start := time.Now()
		err := sink.Upsert(ctx, snapshot)

		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
			p.log.WithField("sink", sink.Name()).Errorf("Erro ao gravar snapshot: %v", err)
		} else {
			stored = true
			p.log.WithField("sink", sink.Name()).Debugf("Snapshot %s gravado", snapshot.Key())
		}
		metrics.ObserveSinkWrite(sink.Name(), result, time.Since(start))
		results[sink.Name()] = err
	}

	if stored {
		metrics.SetLastSnapshot(strconv.Itoa(snapshot.DeviceID), snapshot.Time)
	}
	return results
}

func isAuthFailure(err error) bool {
	return errors.Is(err, melcloud.ErrUnauthorized) || errors.Is(err, ErrReauthenticationFailed)
}

func recordCall(op string, err error) {
	switch {
	case err == nil:
		metrics.IncAPICall(op, metrics.ResultSuccess)
	case errors.Is(err, melcloud.ErrUnauthorized):
		metrics.IncAPICall(op, metrics.ResultUnauthorized)
	default:
		metrics.IncAPICall(op, metrics.ResultError)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/gateways"
)

const (
	Measurement = "melCloudDeviceData"

	writeTimeout = 3 * time.Second
)

// pointWriter is the part of api.WriteAPIBlocking the sink uses.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Sink writes snapshots as points of Measurement tagged with device_id. A
// point with the same measurement, tags and time replaces the previous one.
type Sink struct {
	gateways.Switch
	client influxdb2.Client
	writer pointWriter
	log    *logrus.Entry
}

// NewSink connects lazily; use Ping to check the server. For InfluxDB 1.8
// pass the database as bucket and "user:password" as token.
func NewSink(url, token, org, bucket string, log *logrus.Entry) *Sink {
	client := influxdb2.NewClient(url, token)
	s := newSink(client.WriteAPIBlocking(org, bucket), log)
	s.client = client
	return s
}

func newSink(writer pointWriter, log *logrus.Entry) *Sink {
	s := &Sink{writer: writer, log: log}
	s.SetEnabled(true)
	return s
}

func (s *Sink) Name() string {
	return "influxdb"
}

func (s *Sink) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("falha ao contatar o InfluxDB: %w", err)
	}
	if !ok {
		return fmt.Errorf("InfluxDB não respondeu ao ping")
	}
	return nil
}

func (s *Sink) Upsert(ctx context.Context, snapshot entities.DeviceSnapshot) error {
	if !s.Enabled() {
		return nil
	}

	point := Point(snapshot)
	err := retry.Do(func() error {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return s.writer.WritePoint(writeCtx, point)
	},
		retry.Attempts(2),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("erro ao gravar ponto no InfluxDB: %w", err)
	}
	s.log.Debugf("Ponto gravado para o dispositivo %d em %s", snapshot.DeviceID, snapshot.Time.Format(time.RFC3339))
	return nil
}

func (s *Sink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// Point maps a snapshot to a line-protocol point. Unknown values are left out
// of the field set.
func Point(snapshot entities.DeviceSnapshot) *write.Point {
	fields := map[string]interface{}{
		"device_type":               snapshot.DeviceType,
		"power":                     snapshot.Power,
		"offline":                   snapshot.Offline,
		"room_temperature":          snapshot.RoomTemperature,
		"set_temperature":           snapshot.SetTemperature,
		"last_communication":        snapshot.LastCommunication,
		"actual_fan_speed":          snapshot.ActualFanSpeed,
		"fan_speed":                 snapshot.FanSpeed,
		"vane_vertical_direction":   snapshot.VaneVerticalDirection,
		"vane_horizontal_direction": snapshot.VaneHorizontalDirection,
		"operation_mode":            snapshot.OperationMode,
		"in_standby_mode":           snapshot.InStandbyMode,
	}

	optionalBool(fields, "automatic_fan_speed", snapshot.AutomaticFanSpeed)
	optionalBool(fields, "vane_vertical_swing", snapshot.VaneVerticalSwing)
	optionalBool(fields, "vane_horizontal_swing", snapshot.VaneHorizontalSwing)

	optionalFloat(fields, "heating_energy_consumed_rate1", snapshot.HeatingEnergyConsumedRate1)
	optionalFloat(fields, "heating_energy_consumed_rate2", snapshot.HeatingEnergyConsumedRate2)
	optionalFloat(fields, "cooling_energy_consumed_rate1", snapshot.CoolingEnergyConsumedRate1)
	optionalFloat(fields, "cooling_energy_consumed_rate2", snapshot.CoolingEnergyConsumedRate2)
	optionalFloat(fields, "auto_energy_consumed_rate1", snapshot.AutoEnergyConsumedRate1)
	optionalFloat(fields, "auto_energy_consumed_rate2", snapshot.AutoEnergyConsumedRate2)
	optionalFloat(fields, "dry_energy_consumed_rate1", snapshot.DryEnergyConsumedRate1)
	optionalFloat(fields, "dry_energy_consumed_rate2", snapshot.DryEnergyConsumedRate2)
	optionalFloat(fields, "fan_energy_consumed_rate1", snapshot.FanEnergyConsumedRate1)
	optionalFloat(fields, "fan_energy_consumed_rate2", snapshot.FanEnergyConsumedRate2)
	optionalFloat(fields, "other_energy_consumed_rate1", snapshot.OtherEnergyConsumedRate1)
	optionalFloat(fields, "other_energy_consumed_rate2", snapshot.OtherEnergyConsumedRate2)

	optionalFloat(fields, "current_energy_consumed", snapshot.CurrentEnergyConsumed)
	if snapshot.CurrentEnergyMode != nil {
		fields["current_energy_mode"] = *snapshot.CurrentEnergyMode
	}
	optionalFloat(fields, "energy_correction_model", snapshot.EnergyCorrectionModel)
	optionalBool(fields, "energy_correction_active", snapshot.EnergyCorrectionActive)

	optionalFloat(fields, "wifi_signal_strength", snapshot.WifiSignalStrength)
	if snapshot.WifiAdapterStatus != nil {
		fields["wifi_adapter_status"] = *snapshot.WifiAdapterStatus
	}
	optionalBool(fields, "has_error", snapshot.HasError)

	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"device_id": strconv.Itoa(snapshot.DeviceID)},
		fields,
		snapshot.Time,
	)
}

func optionalBool(fields map[string]interface{}, key string, v *bool) {
	if v != nil {
		fields[key] = *v
	}
}

func optionalFloat(fields map[string]interface{}, key string, v *float64) {
	if v != nil {
		fields[key] = *v
	}
}

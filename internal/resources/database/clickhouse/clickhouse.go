package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/gateways"
)

const defaultTable = "melcloud"

// ReplacingMergeTree keeps the row with the highest inserted_at per
// (device_id, time), so a repeated write wins once parts merge. Reads that
// need exact answers use FINAL.
const schema = `
CREATE TABLE IF NOT EXISTS %s (
	time                          DateTime64(3, 'UTC'),
	device_id                     Int32,
	device_type                   Int16,
	source                        LowCardinality(String),
	last_communication            String,
	power                         Bool,
	offline                       Bool,
	in_standby_mode               Bool,
	room_temperature              Float64,
	set_temperature               Float64,
	actual_fan_speed              Int16,
	fan_speed                     Int16,
	automatic_fan_speed           Nullable(Bool),
	vane_vertical_direction       Int16,
	vane_vertical_swing           Nullable(Bool),
	vane_horizontal_direction     Int16,
	vane_horizontal_swing         Nullable(Bool),
	operation_mode                Int16,
	heating_energy_consumed_rate1 Nullable(Float64),
	heating_energy_consumed_rate2 Nullable(Float64),
	cooling_energy_consumed_rate1 Nullable(Float64),
	cooling_energy_consumed_rate2 Nullable(Float64),
	auto_energy_consumed_rate1    Nullable(Float64),
	auto_energy_consumed_rate2    Nullable(Float64),
	dry_energy_consumed_rate1     Nullable(Float64),
	dry_energy_consumed_rate2     Nullable(Float64),
	fan_energy_consumed_rate1     Nullable(Float64),
	fan_energy_consumed_rate2     Nullable(Float64),
	other_energy_consumed_rate1   Nullable(Float64),
	other_energy_consumed_rate2   Nullable(Float64),
	current_energy_consumed       Nullable(Float64),
	current_energy_mode           Nullable(Int16),
	energy_correction_model       Nullable(Float64),
	energy_correction_active      Nullable(Bool),
	wifi_signal_strength          Nullable(Float64),
	wifi_adapter_status           Nullable(String),
	has_error                     Nullable(Bool),
	inserted_at                   DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(inserted_at)
ORDER BY (device_id, time)`

var columns = []string{
	"time", "device_id", "device_type", "source", "last_communication",
	"power", "offline", "in_standby_mode", "room_temperature", "set_temperature",
	"actual_fan_speed", "fan_speed", "automatic_fan_speed",
	"vane_vertical_direction", "vane_vertical_swing", "vane_horizontal_direction", "vane_horizontal_swing",
	"operation_mode",
	"heating_energy_consumed_rate1", "heating_energy_consumed_rate2",
	"cooling_energy_consumed_rate1", "cooling_energy_consumed_rate2",
	"auto_energy_consumed_rate1", "auto_energy_consumed_rate2",
	"dry_energy_consumed_rate1", "dry_energy_consumed_rate2",
	"fan_energy_consumed_rate1", "fan_energy_consumed_rate2",
	"other_energy_consumed_rate1", "other_energy_consumed_rate2",
	"current_energy_consumed", "current_energy_mode", "energy_correction_model", "energy_correction_active",
	"wifi_signal_strength", "wifi_adapter_status", "has_error",
}

type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

type ClickHouseSink struct {
	gateways.Switch
	conn  driver.Conn
	exec  execer
	table string
	log   *logrus.Entry
}

// NewClickHouseSink connects, pings and creates the table if needed.
func NewClickHouseSink(ctx context.Context, addr, database, username, password, table string, log *logrus.Entry) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("falha ao fazer ping no ClickHouse: %w", err)
	}
	log.Infof("Conectado ao ClickHouse em %s", addr)

	s := newClickHouseSink(conn, table, log)
	s.conn = conn
	if err := s.EnsureSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func newClickHouseSink(exec execer, table string, log *logrus.Entry) *ClickHouseSink {
	if table == "" {
		table = defaultTable
	}
	s := &ClickHouseSink{exec: exec, table: table, log: log}
	s.SetEnabled(true)
	return s
}

func (db *ClickHouseSink) Name() string {
	return "clickhouse"
}

func (db *ClickHouseSink) EnsureSchema(ctx context.Context) error {
	if err := db.exec.Exec(ctx, fmt.Sprintf(schema, db.table)); err != nil {
		return fmt.Errorf("falha ao criar tabela %s: %w", db.table, err)
	}
	return nil
}

func (db *ClickHouseSink) Upsert(ctx context.Context, snapshot entities.DeviceSnapshot) error {
	if !db.Enabled() {
		return nil
	}

	if err := db.exec.Exec(ctx, insertQuery(db.table), rowArgs(snapshot)...); err != nil {
		return fmt.Errorf("falha ao gravar snapshot %s no ClickHouse: %w", snapshot.Key(), err)
	}
	return nil
}

func (db *ClickHouseSink) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

func insertQuery(table string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
}

func rowArgs(s entities.DeviceSnapshot) []any {
	return []any{
		s.Time.UTC(), int32(s.DeviceID), int16(s.DeviceType), string(s.Source), s.LastCommunication,
		s.Power, s.Offline, s.InStandbyMode, s.RoomTemperature, s.SetTemperature,
		int16(s.ActualFanSpeed), int16(s.FanSpeed), nullable(s.AutomaticFanSpeed),
		int16(s.VaneVerticalDirection), nullable(s.VaneVerticalSwing), int16(s.VaneHorizontalDirection), nullable(s.VaneHorizontalSwing),
		int16(s.OperationMode),
		nullable(s.HeatingEnergyConsumedRate1), nullable(s.HeatingEnergyConsumedRate2),
		nullable(s.CoolingEnergyConsumedRate1), nullable(s.CoolingEnergyConsumedRate2),
		nullable(s.AutoEnergyConsumedRate1), nullable(s.AutoEnergyConsumedRate2),
		nullable(s.DryEnergyConsumedRate1), nullable(s.DryEnergyConsumedRate2),
		nullable(s.FanEnergyConsumedRate1), nullable(s.FanEnergyConsumedRate2),
		nullable(s.OtherEnergyConsumedRate1), nullable(s.OtherEnergyConsumedRate2),
		nullable(s.CurrentEnergyConsumed), nullableInt16(s.CurrentEnergyMode), nullable(s.EnergyCorrectionModel), nullable(s.EnergyCorrectionActive),
		nullable(s.WifiSignalStrength), nullable(s.WifiAdapterStatus), nullable(s.HasError),
	}
}

// nullable turns a nil pointer into an untyped nil so the driver binds NULL.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt16(v *int) any {
	if v == nil {
		return nil
	}
	return int16(*v)
}

package timescaledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/gateways"
)

const defaultTable = "melcloud"

// Columns written from the device list. The first two form the conflict key.
var fullColumns = []string{
	"time", "device_id", "device_type", "power", "offline", "room_temperature", "set_temperature",
	"last_communication", "actual_fan_speed", "fan_speed", "automatic_fan_speed",
	"vane_vertical_direction", "vane_vertical_swing", "vane_horizontal_direction",
	"vane_horizontal_swing", "operation_mode", "in_standby_mode",
	"heating_energy_consumed_rate1", "heating_energy_consumed_rate2",
	"cooling_energy_consumed_rate1", "cooling_energy_consumed_rate2",
	"auto_energy_consumed_rate1", "auto_energy_consumed_rate2",
	"dry_energy_consumed_rate1", "dry_energy_consumed_rate2",
	"fan_energy_consumed_rate1", "fan_energy_consumed_rate2",
	"other_energy_consumed_rate1", "other_energy_consumed_rate2",
	"current_energy_consumed", "current_energy_mode", "energy_correction_model", "energy_correction_active",
	"wifi_signal_strength", "wifi_adapter_status", "has_error",
}

// Columns written from Device/Get. A lean write leaves every other column of
// an existing row untouched.
var leanColumns = []string{
	"time", "device_id", "device_type", "power", "offline", "room_temperature", "set_temperature",
	"last_communication", "actual_fan_speed", "fan_speed", "vane_vertical_direction",
	"vane_horizontal_direction", "operation_mode", "in_standby_mode",
}

const schema = `
CREATE TABLE IF NOT EXISTS %s (
	time                          TIMESTAMPTZ      NOT NULL,
	device_id                     INTEGER          NOT NULL,
	device_type                   SMALLINT         NOT NULL,
	power                         BOOLEAN          NOT NULL,
	offline                       BOOLEAN          NOT NULL,
	room_temperature              DOUBLE PRECISION NOT NULL,
	set_temperature               DOUBLE PRECISION NOT NULL,
	last_communication            TEXT             NOT NULL,
	actual_fan_speed              SMALLINT         NOT NULL,
	fan_speed                     SMALLINT         NOT NULL,
	automatic_fan_speed           BOOLEAN,
	vane_vertical_direction       SMALLINT         NOT NULL,
	vane_vertical_swing           BOOLEAN,
	vane_horizontal_direction     SMALLINT         NOT NULL,
	vane_horizontal_swing         BOOLEAN,
	operation_mode                SMALLINT         NOT NULL,
	in_standby_mode               BOOLEAN          NOT NULL,
	heating_energy_consumed_rate1 DOUBLE PRECISION,
	heating_energy_consumed_rate2 DOUBLE PRECISION,
	cooling_energy_consumed_rate1 DOUBLE PRECISION,
	cooling_energy_consumed_rate2 DOUBLE PRECISION,
	auto_energy_consumed_rate1    DOUBLE PRECISION,
	auto_energy_consumed_rate2    DOUBLE PRECISION,
	dry_energy_consumed_rate1     DOUBLE PRECISION,
	dry_energy_consumed_rate2     DOUBLE PRECISION,
	fan_energy_consumed_rate1     DOUBLE PRECISION,
	fan_energy_consumed_rate2     DOUBLE PRECISION,
	other_energy_consumed_rate1   DOUBLE PRECISION,
	other_energy_consumed_rate2   DOUBLE PRECISION,
	current_energy_consumed       DOUBLE PRECISION,
	current_energy_mode           SMALLINT,
	energy_correction_model       DOUBLE PRECISION,
	energy_correction_active      BOOLEAN,
	wifi_signal_strength          DOUBLE PRECISION,
	wifi_adapter_status           TEXT,
	has_error                     BOOLEAN,
	PRIMARY KEY (time, device_id)
)`

// Sink upserts snapshots into a (hyper)table keyed by (time, device_id).
type Sink struct {
	gateways.Switch
	db    *sql.DB
	table string
	log   *logrus.Entry
}

// Option configures the sink.
type Option func(*Sink)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(s *Sink) {
		if table != "" {
			s.table = table
		}
	}
}

// Open opens a pgx-backed pool for dsn and checks it with a ping.
func Open(ctx context.Context, dsn string, log *logrus.Entry, opts ...Option) (*Sink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir conexão com o TimescaleDB: %w", err)
	}
	s := NewSink(db, log, opts...)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSink(db *sql.DB, log *logrus.Entry, opts ...Option) *Sink {
	s := &Sink{db: db, table: defaultTable, log: log}
	for _, opt := range opts {
		opt(s)
	}
	s.SetEnabled(true)
	return s
}

func (s *Sink) Name() string {
	return "timescaledb"
}

func (s *Sink) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("erro ao contatar o TimescaleDB: %w", err)
	}
	return nil
}

// EnsureSchema creates the table when it does not exist. Turning it into a
// hypertable is left to the operator.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schema, s.table)); err != nil {
		return fmt.Errorf("erro ao criar tabela %s: %w", s.table, err)
	}
	return nil
}

func (s *Sink) Upsert(ctx context.Context, snapshot entities.DeviceSnapshot) error {
	if !s.Enabled() {
		return nil
	}
	if s.db == nil {
		return errors.New("timescaledb: nil db")
	}

	columns, args := fullColumns, fullArgs(snapshot)
	if snapshot.Source == entities.SourceCurrentData {
		columns, args = leanColumns, leanArgs(snapshot)
	}

	if _, err := s.db.ExecContext(ctx, upsertQuery(s.table, columns), args...); err != nil {
		return fmt.Errorf("erro ao gravar snapshot %s no TimescaleDB: %w", snapshot.Key(), err)
	}
	s.log.Debugf("Snapshot %s gravado na tabela %s", snapshot.Key(), s.table)
	return nil
}

func (s *Sink) Close() error {
	return s.db.Close()
}

func upsertQuery(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns)-2)
	for i, column := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if i >= 2 {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
		}
	}

	return fmt.Sprintf(`
INSERT INTO %s (
	%s
) VALUES (
	%s
)
ON CONFLICT (time, device_id)
DO UPDATE SET
	%s`, table, strings.Join(columns, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ",\n\t"))
}

// Small integers are stored as SMALLINT and the device id as INTEGER.
func fullArgs(s entities.DeviceSnapshot) []any {
	return []any{
		s.Time.UTC(), int32(s.DeviceID), int16(s.DeviceType), s.Power, s.Offline, s.RoomTemperature, s.SetTemperature,
		s.LastCommunication, int16(s.ActualFanSpeed), int16(s.FanSpeed), nullBool(s.AutomaticFanSpeed),
		int16(s.VaneVerticalDirection), nullBool(s.VaneVerticalSwing), int16(s.VaneHorizontalDirection),
		nullBool(s.VaneHorizontalSwing), int16(s.OperationMode), s.InStandbyMode,
		nullFloat(s.HeatingEnergyConsumedRate1), nullFloat(s.HeatingEnergyConsumedRate2),
		nullFloat(s.CoolingEnergyConsumedRate1), nullFloat(s.CoolingEnergyConsumedRate2),
		nullFloat(s.AutoEnergyConsumedRate1), nullFloat(s.AutoEnergyConsumedRate2),
		nullFloat(s.DryEnergyConsumedRate1), nullFloat(s.DryEnergyConsumedRate2),
		nullFloat(s.FanEnergyConsumedRate1), nullFloat(s.FanEnergyConsumedRate2),
		nullFloat(s.OtherEnergyConsumedRate1), nullFloat(s.OtherEnergyConsumedRate2),
		nullFloat(s.CurrentEnergyConsumed), nullInt16(s.CurrentEnergyMode), nullFloat(s.EnergyCorrectionModel), nullBool(s.EnergyCorrectionActive),
		nullFloat(s.WifiSignalStrength), nullString(s.WifiAdapterStatus), nullBool(s.HasError),
	}
}

func leanArgs(s entities.DeviceSnapshot) []any {
	return []any{
		s.Time.UTC(), int32(s.DeviceID), int16(s.DeviceType), s.Power, s.Offline, s.RoomTemperature, s.SetTemperature,
		s.LastCommunication, int16(s.ActualFanSpeed), int16(s.FanSpeed), int16(s.VaneVerticalDirection),
		int16(s.VaneHorizontalDirection), int16(s.OperationMode), s.InStandbyMode,
	}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt16(v *int) sql.NullInt16 {
	if v == nil {
		return sql.NullInt16{}
	}
	return sql.NullInt16{Int16: int16(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

package timescaledb

import (
	"context"
	"database/sql"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func fullSnapshot() entities.DeviceSnapshot {
	energy, mode, status, swing := 12.5, 2, "NORMAL", true
	return entities.DeviceSnapshot{
		Time:                       time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
		DeviceID:                   123,
		Source:                     entities.SourceDeviceList,
		LastCommunication:          "2024-01-15T10:00:00",
		Power:                      true,
		RoomTemperature:            21.5,
		SetTemperature:             22,
		ActualFanSpeed:             2,
		FanSpeed:                   3,
		VaneVerticalSwing:          &swing,
		OperationMode:              1,
		HeatingEnergyConsumedRate1: &energy,
		CurrentEnergyMode:          &mode,
		WifiAdapterStatus:          &status,
	}
}

func TestUpsertQueryShape(t *testing.T) {
	query := upsertQuery("melcloud", fullColumns)

	assert.Contains(t, query, "INSERT INTO melcloud (")
	assert.Contains(t, query, "$36")
	assert.NotContains(t, query, "$37")
	assert.Contains(t, query, "ON CONFLICT (time, device_id)")
	assert.Contains(t, query, "has_error = EXCLUDED.has_error")
	assert.NotContains(t, query, "time = EXCLUDED.time")
	assert.NotContains(t, query, "device_id = EXCLUDED.device_id")
}

func TestLeanQueryLeavesEnergyColumnsAlone(t *testing.T) {
	query := upsertQuery("melcloud", leanColumns)

	assert.Contains(t, query, "$14")
	assert.NotContains(t, query, "$15")
	assert.NotContains(t, query, "energy")
	assert.NotContains(t, query, "wifi")
	assert.Contains(t, query, "in_standby_mode = EXCLUDED.in_standby_mode")
}

func TestArgsMatchColumns(t *testing.T) {
	snapshot := fullSnapshot()
	assert.Len(t, fullArgs(snapshot), len(fullColumns))
	assert.Len(t, leanArgs(snapshot), len(leanColumns))
	assert.Len(t, fullColumns, 36)
	assert.Len(t, leanColumns, 14)
}

func TestArgsNarrowAndNullUnknowns(t *testing.T) {
	args := fullArgs(fullSnapshot())
	byColumn := map[string]any{}
	for i, column := range fullColumns {
		byColumn[column] = args[i]
	}

	assert.Equal(t, int32(123), byColumn["device_id"])
	assert.Equal(t, int16(0), byColumn["device_type"])
	assert.Equal(t, int16(3), byColumn["fan_speed"])
	assert.Equal(t, sql.NullBool{}, byColumn["automatic_fan_speed"])
	assert.Equal(t, sql.NullBool{Bool: true, Valid: true}, byColumn["vane_vertical_swing"])
	assert.Equal(t, sql.NullFloat64{Float64: 12.5, Valid: true}, byColumn["heating_energy_consumed_rate1"])
	assert.Equal(t, sql.NullFloat64{}, byColumn["heating_energy_consumed_rate2"])
	assert.Equal(t, sql.NullInt16{Int16: 2, Valid: true}, byColumn["current_energy_mode"])
	assert.Equal(t, sql.NullString{String: "NORMAL", Valid: true}, byColumn["wifi_adapter_status"])
}

func TestWithTable(t *testing.T) {
	assert.Equal(t, "leituras", NewSink(nil, testLog(), WithTable("leituras")).table)
	assert.Equal(t, defaultTable, NewSink(nil, testLog(), WithTable("")).table)
}

func TestDisabledSinkDoesNotTouchDB(t *testing.T) {
	// A nil db would fail any real write.
	sink := NewSink(nil, testLog())
	sink.SetEnabled(false)
	assert.NoError(t, sink.Upsert(context.Background(), fullSnapshot()))
}

func TestUpsertIsIdempotent_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	ctx := context.Background()
	table := "melcloud_it"
	sink, err := Open(ctx, dsn, testLog(), WithTable(table))
	require.NoError(t, err)
	defer sink.Close()
	require.NoError(t, sink.EnsureSchema(ctx))

	snapshot := fullSnapshot()
	_, _ = sink.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE device_id = $1", snapshot.DeviceID)

	require.NoError(t, sink.Upsert(ctx, snapshot))
	snapshot.RoomTemperature = 23
	require.NoError(t, sink.Upsert(ctx, snapshot))

	var rows int
	var room float64
	require.NoError(t, sink.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MAX(room_temperature) FROM "+table+" WHERE device_id = $1", snapshot.DeviceID).Scan(&rows, &room))
	assert.Equal(t, 1, rows)
	assert.Equal(t, 23.0, room)

	// A lean write for the same key keeps the energy counters.
	lean := snapshot
	lean.Source = entities.SourceCurrentData
	lean.HeatingEnergyConsumedRate1 = nil
	lean.SetTemperature = 19
	require.NoError(t, sink.Upsert(ctx, lean))

	var heating sql.NullFloat64
	var set float64
	require.NoError(t, sink.db.QueryRowContext(ctx,
		"SELECT heating_energy_consumed_rate1, set_temperature FROM "+table+" WHERE device_id = $1", snapshot.DeviceID).Scan(&heating, &set))
	assert.True(t, heating.Valid)
	assert.Equal(t, 12.5, heating.Float64)
	assert.Equal(t, 19.0, set)
}

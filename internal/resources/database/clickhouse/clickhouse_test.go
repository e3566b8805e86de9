package clickhouse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
)

type recordedExec struct {
	query string
	args  []any
}

type fakeConn struct {
	calls []recordedExec
	err   error
}

func (f *fakeConn) Exec(_ context.Context, query string, args ...any) error {
	f.calls = append(f.calls, recordedExec{query: query, args: args})
	return f.err
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func snapshot() entities.DeviceSnapshot {
	status := "NORMAL"
	return entities.DeviceSnapshot{
		Time:              time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
		DeviceID:          123,
		DeviceType:        0,
		Source:            entities.SourceDeviceList,
		LastCommunication: "2024-01-15T10:00:00",
		FanSpeed:          3,
		WifiAdapterStatus: &status,
	}
}

func TestInsertQueryHasOnePlaceholderPerColumn(t *testing.T) {
	query := insertQuery("melcloud")

	assert.True(t, strings.HasPrefix(query, "INSERT INTO melcloud (time, device_id, "))
	assert.Equal(t, len(columns), strings.Count(query, "?"))
	assert.Len(t, rowArgs(snapshot()), len(columns))
}

func TestUpsertBindsNullForUnknowns(t *testing.T) {
	conn := &fakeConn{}
	sink := newClickHouseSink(conn, "", testLog())

	require.NoError(t, sink.Upsert(context.Background(), snapshot()))
	require.Len(t, conn.calls, 1)

	byColumn := map[string]any{}
	for i, column := range columns {
		byColumn[column] = conn.calls[0].args[i]
	}
	assert.Equal(t, int32(123), byColumn["device_id"])
	assert.Equal(t, int16(3), byColumn["fan_speed"])
	assert.Equal(t, "device_list", byColumn["source"])
	assert.Equal(t, "NORMAL", byColumn["wifi_adapter_status"])
	assert.Nil(t, byColumn["automatic_fan_speed"])
	assert.Nil(t, byColumn["current_energy_mode"])
}

func TestEnsureSchemaUsesReplacingMergeTree(t *testing.T) {
	conn := &fakeConn{}
	sink := newClickHouseSink(conn, "leituras", testLog())

	require.NoError(t, sink.EnsureSchema(context.Background()))
	require.Len(t, conn.calls, 1)
	assert.Contains(t, conn.calls[0].query, "CREATE TABLE IF NOT EXISTS leituras")
	assert.Contains(t, conn.calls[0].query, "ReplacingMergeTree(inserted_at)")
	assert.Contains(t, conn.calls[0].query, "ORDER BY (device_id, time)")
}

func TestUpsertError(t *testing.T) {
	sink := newClickHouseSink(&fakeConn{err: errors.New("code: 60")}, "", testLog())
	assert.Error(t, sink.Upsert(context.Background(), snapshot()))
}

func TestDisabledSinkDoesNotWrite(t *testing.T) {
	conn := &fakeConn{}
	sink := newClickHouseSink(conn, "", testLog())
	sink.SetEnabled(false)

	require.NoError(t, sink.Upsert(context.Background(), snapshot()))
	assert.Empty(t, conn.calls)
	assert.NoError(t, sink.Close())
}

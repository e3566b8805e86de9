package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingBeforeInitIsNoop(t *testing.T) {
	// Package vars are nil until Init; none of these may panic.
	if cyclesTotal != nil {
		t.Skip("metrics já inicializadas por outro teste")
	}
	ObserveCycle(ResultSuccess, time.Second)
	IncAPICall("listdevices", ResultError)
	IncLogin()
	IncSnapshot("device_list")
	ObserveSinkWrite("influxdb", ResultSuccess, time.Millisecond)
	SetLastSnapshot("123", time.Now())
}

func TestHandlerExposesRegisteredCollectors(t *testing.T) {
	Init()
	Init()

	ObserveCycle(ResultSuccess, 250*time.Millisecond)
	IncAPICall("listdevices", ResultUnauthorized)
	IncLogin()
	ObserveSinkWrite("timescaledb", ResultError, time.Millisecond)
	ObserveSinkWrite("mongodb", ResultSkipped, 0)
	SetLastSnapshot("123", time.Unix(1705305600, 0))

	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `melcloud_cycles_total{result="success"}`)
	assert.Contains(t, text, `melcloud_api_calls_total{op="listdevices",result="unauthorized"}`)
	assert.Contains(t, text, `melcloud_sink_writes_total{result="error",sink="timescaledb"}`)
	assert.Contains(t, text, `melcloud_sink_writes_total{result="skipped",sink="mongodb"}`)
	assert.Contains(t, text, `melcloud_last_snapshot_timestamp_seconds{device_id="123"} 1.7053056e+09`)
}

package influxdb

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
)

type fakeWriter struct {
	points []*write.Point
	errs   []error
}

func (f *fakeWriter) WritePoint(_ context.Context, point ...*write.Point) error {
	f.points = append(f.points, point...)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func leanSnapshot() entities.DeviceSnapshot {
	return entities.DeviceSnapshot{
		Time:              time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
		DeviceID:          123,
		Source:            entities.SourceCurrentData,
		LastCommunication: "2024-01-15T08:00:00.000",
		Power:             true,
		RoomTemperature:   20.5,
		SetTemperature:    22,
		FanSpeed:          3,
		ActualFanSpeed:    3,
		OperationMode:     1,
	}
}

func fieldsOf(p *write.Point) map[string]interface{} {
	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	return fields
}

func TestPointCarriesTagAndTime(t *testing.T) {
	p := Point(leanSnapshot())

	assert.Equal(t, Measurement, p.Name())
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "device_id", p.TagList()[0].Key)
	assert.Equal(t, "123", p.TagList()[0].Value)
	assert.True(t, p.Time().Equal(time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)))
}

func TestPointOmitsUnknownFields(t *testing.T) {
	fields := fieldsOf(Point(leanSnapshot()))

	assert.Equal(t, true, fields["power"])
	assert.Equal(t, 20.5, fields["room_temperature"])
	assert.Equal(t, "2024-01-15T08:00:00.000", fields["last_communication"])
	assert.NotContains(t, fields, "automatic_fan_speed")
	assert.NotContains(t, fields, "heating_energy_consumed_rate1")
	assert.NotContains(t, fields, "wifi_adapter_status")
	assert.NotContains(t, fields, "has_error")
}

func TestPointIncludesKnownOptionals(t *testing.T) {
	snapshot := leanSnapshot()
	energy, status, swing := 12.5, "NORMAL", true
	snapshot.HeatingEnergyConsumedRate1 = &energy
	snapshot.WifiAdapterStatus = &status
	snapshot.VaneVerticalSwing = &swing

	fields := fieldsOf(Point(snapshot))
	assert.Equal(t, 12.5, fields["heating_energy_consumed_rate1"])
	assert.Equal(t, "NORMAL", fields["wifi_adapter_status"])
	assert.Equal(t, true, fields["vane_vertical_swing"])
}

func TestUpsertRetriesOnce(t *testing.T) {
	writer := &fakeWriter{errs: []error{errors.New("timeout")}}
	sink := newSink(writer, testLog())

	require.NoError(t, sink.Upsert(context.Background(), leanSnapshot()))
	assert.Len(t, writer.points, 2)
}

func TestUpsertGivesUpAfterTwoAttempts(t *testing.T) {
	writer := &fakeWriter{errs: []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}}
	sink := newSink(writer, testLog())

	assert.Error(t, sink.Upsert(context.Background(), leanSnapshot()))
	assert.Len(t, writer.points, 2)
}

func TestDisabledSinkDoesNotWrite(t *testing.T) {
	writer := &fakeWriter{}
	sink := newSink(writer, testLog())
	sink.SetEnabled(false)

	require.NoError(t, sink.Upsert(context.Background(), leanSnapshot()))
	assert.Empty(t, writer.points)
	assert.Equal(t, "influxdb", sink.Name())
}

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newDoneToken(err error) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	messages []published
	err      error
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.messages = append(f.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return newDoneToken(f.err)
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func snapshot() entities.DeviceSnapshot {
	return entities.DeviceSnapshot{
		Time:              time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
		DeviceID:          123,
		Source:            entities.SourceDeviceList,
		LastCommunication: "2024-01-15T10:00:00",
		Power:             true,
	}
}

func TestUpsertPublishesRetained(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "melcloud", testLog())

	require.NoError(t, p.Upsert(context.Background(), snapshot()))
	require.Len(t, client.messages, 1)

	msg := client.messages[0]
	assert.Equal(t, "melcloud/123/snapshot", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &body))
	assert.Equal(t, true, body["power"])
	assert.Equal(t, "2024-01-15T08:00:00Z", body["time"])
}

func TestUpsertReportsBrokerError(t *testing.T) {
	p := newPublisher(&fakeClient{err: errors.New("not connected")}, "melcloud", testLog())
	assert.ErrorContains(t, p.Upsert(context.Background(), snapshot()), "not connected")
}

func TestDisabledPublisherIsSilent(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "melcloud", testLog())
	p.SetEnabled(false)

	require.NoError(t, p.Upsert(context.Background(), snapshot()))
	assert.Empty(t, client.messages)
	assert.NoError(t, p.Close())
}

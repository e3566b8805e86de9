package s3

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
)

type putCall struct {
	bucket, key, contentType string
	body                     []byte
}

type fakeS3 struct {
	calls []putCall
	errs  []error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(params.Body)
	f.calls = append(f.calls, putCall{
		bucket:      aws.ToString(params.Bucket),
		key:         aws.ToString(params.Key),
		contentType: aws.ToString(params.ContentType),
		body:        body,
	})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &s3.PutObjectOutput{}, nil
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func snapshot() entities.DeviceSnapshot {
	return entities.DeviceSnapshot{
		Time:              time.Date(2024, 1, 15, 8, 0, 0, 250_000_000, time.UTC),
		DeviceID:          123,
		Source:            entities.SourceCurrentData,
		LastCommunication: "2024-01-15T08:00:00.250",
		RoomTemperature:   20.5,
	}
}

func TestObjectKeyIsDeterministic(t *testing.T) {
	a := newArchiveWriter(&fakeS3{}, "bucket", "melcloud", testLog())

	key := a.ObjectKey(snapshot())
	assert.Equal(t, "melcloud/123/2024/01/15/2024-01-15T08:00:00.250Z.json", key)

	local := snapshot()
	local.Time = local.Time.In(time.FixedZone("UTC+2", 2*60*60))
	assert.Equal(t, key, a.ObjectKey(local))
}

func TestUpsertPutsJSON(t *testing.T) {
	client := &fakeS3{}
	a := newArchiveWriter(client, "bucket", "melcloud", testLog())

	require.NoError(t, a.Upsert(context.Background(), snapshot()))
	require.Len(t, client.calls, 1)

	call := client.calls[0]
	assert.Equal(t, "bucket", call.bucket)
	assert.Equal(t, contentTypeJSON, call.contentType)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(call.body, &stored))
	assert.EqualValues(t, 123, stored["device_id"])
	assert.Equal(t, "current_data", stored["source"])
	assert.Nil(t, stored["heating_energy_consumed_rate1"])
}

func TestUpsertRetriesOnce(t *testing.T) {
	client := &fakeS3{errs: []error{errors.New("SlowDown"), errors.New("SlowDown")}}
	a := newArchiveWriter(client, "bucket", "melcloud", testLog())

	assert.Error(t, a.Upsert(context.Background(), snapshot()))
	assert.Len(t, client.calls, 2)
}

func TestDisabledArchiveDoesNotUpload(t *testing.T) {
	client := &fakeS3{}
	a := newArchiveWriter(client, "bucket", "melcloud", testLog())
	a.SetEnabled(false)

	require.NoError(t, a.Upsert(context.Background(), snapshot()))
	assert.Empty(t, client.calls)
}

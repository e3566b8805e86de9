package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/gateways"
)

const contentTypeJSON = "application/json"

// objectPutter is the part of *s3.Client the archive uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveWriter stores every snapshot as one JSON object. The key depends only
// on device and time, so a repeated write overwrites the same object.
type ArchiveWriter struct {
	gateways.Switch
	client objectPutter
	bucket string
	prefix string
	log    *logrus.Entry
}

// NewArchiveWriter loads the default AWS configuration. endpoint is optional
// and points the client at S3-compatible storage such as MinIO.
func NewArchiveWriter(ctx context.Context, bucket, prefix, endpoint string, usePathStyle bool, log *logrus.Entry) (*ArchiveWriter, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar a configuração AWS para S3 Writer: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newArchiveWriter(client, bucket, prefix, log), nil
}

func newArchiveWriter(client objectPutter, bucket, prefix string, log *logrus.Entry) *ArchiveWriter {
	a := &ArchiveWriter{client: client, bucket: bucket, prefix: prefix, log: log}
	a.SetEnabled(true)
	return a
}

func (a *ArchiveWriter) Name() string {
	return "s3"
}

// ObjectKey is <prefix>/<device id>/<yyyy>/<mm>/<dd>/<RFC3339 time>.json.
func (a *ArchiveWriter) ObjectKey(snapshot entities.DeviceSnapshot) string {
	t := snapshot.Time.UTC()
	return path.Join(
		a.prefix,
		strconv.Itoa(snapshot.DeviceID),
		t.Format("2006/01/02"),
		t.Format("2006-01-02T15:04:05.000Z")+".json",
	)
}

func (a *ArchiveWriter) Upsert(ctx context.Context, snapshot entities.DeviceSnapshot) error {
	if !a.Enabled() {
		return nil
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("falha ao serializar snapshot %s: %w", snapshot.Key(), err)
	}
	return a.UploadFile(ctx, a.ObjectKey(snapshot), body, contentTypeJSON)
}

// UploadFile faz o upload do conteúdo de um slice de bytes para o bucket do arquivo.
func (a *ArchiveWriter) UploadFile(ctx context.Context, objectKey string, fileContent []byte, contentType string) error {
	a.log.Debugf("Iniciando upload de '%s' para o bucket S3 '%s' (Content-Type: %s)...", objectKey, a.bucket, contentType)

	err := retry.Do(func() error {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(objectKey),
			Body:        bytes.NewReader(fileContent),
			ContentType: aws.String(contentType),
		})
		return err
	},
		retry.Attempts(2),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("falha ao fazer upload para S3 para a chave '%s': %w", objectKey, err)
	}

	a.log.Debugf("Upload de '%s' concluído com sucesso!", objectKey)
	return nil
}

package bootstrap

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/config"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/gateways"
	"github.com/patrik-rangel/melcloud-data-logger/internal/logging"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/database/clickhouse"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/database/influxdb"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/database/mongodb"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/database/timescaledb"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/mqtt"
	"github.com/patrik-rangel/melcloud-data-logger/internal/resources/s3"
)

// DefaultConnectTimeout bounds the retries spent on one sink at startup.
const DefaultConnectTimeout = 30 * time.Second

// Sinks holds every sink that came up, in a fixed order.
type Sinks struct {
	List    []gateways.SnapshotSink
	closers []io.Closer
}

func (s *Sinks) add(sink gateways.SnapshotSink) {
	s.List = append(s.List, sink)
	if closer, ok := sink.(io.Closer); ok {
		s.closers = append(s.closers, closer)
	}
}

// Close closes every sink, returning all errors.
func (s *Sinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// BuildSinks connects every enabled sink. A sink that cannot connect within
// connectTimeout is logged and left out; the logger keeps running with the
// others. InfluxDB connects lazily and is kept even when its ping fails.
func BuildSinks(ctx context.Context, cfg *config.Config, logs *logging.Logrus, connectTimeout time.Duration) *Sinks {
	log := logs.Get("bootstrap")
	sinks := &Sinks{}

	if cfg.InfluxDB.Enabled {
		sink := influxdb.NewSink(cfg.InfluxDB.URL, cfg.InfluxDB.Token, cfg.InfluxDB.Org, cfg.InfluxDB.Database, logs.Get("influxdb"))
		if err := retryConnect(ctx, log, "influxdb", connectTimeout, sink.Ping); err != nil {
			log.Warnf("InfluxDB indisponível, gravações serão tentadas a cada ciclo: %v", err)
		}
		sinks.add(sink)
	}

	if cfg.TimescaleDB.Enabled {
		var sink *timescaledb.Sink
		err := retryConnect(ctx, log, "timescaledb", connectTimeout, func(ctx context.Context) error {
			var err error
			sink, err = timescaledb.Open(ctx, cfg.TimescaleDB.DSN, logs.Get("timescaledb"), timescaledb.WithTable(cfg.TimescaleDB.Table))
			return err
		})
		if err == nil {
			err = errors.Wrap(sink.EnsureSchema(ctx), "timescaledb schema")
			if err != nil {
				_ = sink.Close()
			}
		}
		if err != nil {
			log.Errorf("TimescaleDB desativado: %v", err)
		} else {
			sinks.add(sink)
		}
	}

	if cfg.MongoDB.Enabled {
		var sink *mongodb.MongoSink
		err := retryConnect(ctx, log, "mongodb", connectTimeout, func(ctx context.Context) error {
			var err error
			sink, err = mongodb.NewMongoSink(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Collection, logs.Get("mongodb"))
			return err
		})
		if err != nil {
			log.Errorf("MongoDB desativado: %v", err)
		} else {
			sinks.add(sink)
		}
	}

	if cfg.ClickHouse.Enabled {
		var sink *clickhouse.ClickHouseSink
		err := retryConnect(ctx, log, "clickhouse", connectTimeout, func(ctx context.Context) error {
			var err error
			sink, err = clickhouse.NewClickHouseSink(ctx, cfg.ClickHouse.Addr, cfg.ClickHouse.Database,
				cfg.ClickHouse.Username, cfg.ClickHouse.Password, cfg.ClickHouse.Table, logs.Get("clickhouse"))
			return err
		})
		if err != nil {
			log.Errorf("ClickHouse desativado: %v", err)
		} else {
			sinks.add(sink)
		}
	}

	if cfg.S3.Enabled {
		writer, err := s3.NewArchiveWriter(ctx, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.Endpoint, cfg.S3.UsePathStyle, logs.Get("s3"))
		if err != nil {
			log.Errorf("Arquivo S3 desativado: %v", err)
		} else {
			sinks.add(writer)
		}
	}

	if cfg.MQTT.Enabled {
		var pub *mqtt.Publisher
		err := retryConnect(ctx, log, "mqtt", connectTimeout, func(context.Context) error {
			var err error
			pub, err = mqtt.NewPublisher(mqtt.ClientConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
			}, logs.Get("mqtt"))
			return err
		})
		if err != nil {
			log.Errorf("MQTT desativado: %v", err)
		} else {
			sinks.add(pub)
		}
	}

	names := make([]string, 0, len(sinks.List))
	for _, sink := range sinks.List {
		names = append(names, sink.Name())
	}
	log.WithField("sinks", names).Info("Destinos de gravação ativos")
	return sinks
}

// retryConnect retries connect with exponential backoff until it succeeds,
// timeout elapses or ctx is cancelled.
func retryConnect(ctx context.Context, log *logrus.Entry, name string, timeout time.Duration, connect func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	err := backoff.RetryNotify(func() error {
		return connect(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warnf("Falha ao conectar em %s, nova tentativa em %s: %v", name, next.Round(time.Millisecond), err)
	})
	return errors.Wrapf(err, "conectar em %s", name)
}

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML file read before the environment.
const FileEnv = "MELCLOUD_CONFIG_FILE"

// Config is the whole runtime configuration. Values come from the YAML file
// first; any environment variable that is set wins over it.
type Config struct {
	Email       string `yaml:"email" env:"MELCLOUD_EMAIL, overwrite"`
	Password    string `yaml:"password" env:"MELCLOUD_PASSWORD, overwrite"`
	AccessToken string `yaml:"access_token" env:"ACCESS_TOKEN, overwrite"`
	BaseURL     string `yaml:"base_url" env:"MELCLOUD_BASE_URL, overwrite, default=https://app.melcloud.com"`

	DeviceID   int `yaml:"device_id" env:"DEVICE_ID, overwrite"`
	BuildingID int `yaml:"building_id" env:"BUILDING_ID, overwrite"`

	// Intervals are in milliseconds.
	RefreshInterval int64 `yaml:"refresh_interval" env:"REFRESH_INTERVAL, overwrite, default=60000"`
	FetchInterval   int64 `yaml:"fetch_interval" env:"FETCH_INTERVAL, overwrite, default=10000"`

	TimeZone string `yaml:"time_zone" env:"CHRONO_TIMEZONE, overwrite, default=Europe/Helsinki"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL, overwrite, default=info"`

	Metrics     MetricsConfig     `yaml:"metrics"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	TimescaleDB TimescaleDBConfig `yaml:"timescaledb"`
	MongoDB     MongoDBConfig     `yaml:"mongodb"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	S3          S3Config          `yaml:"s3"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED, overwrite"`
	Addr    string `yaml:"addr" env:"METRICS_ADDR, overwrite, default=:9102"`
}

// InfluxDBConfig also works against InfluxDB 1.8 through its v2
// compatibility API: Database is used as the bucket and Token may be
// "user:password".
type InfluxDBConfig struct {
	Enabled  bool   `yaml:"enabled" env:"INFLUXDB_ENABLED, overwrite"`
	URL      string `yaml:"url" env:"INFLUXDB_CONNECTION_STRING, overwrite, default=http://localhost:8086"`
	Database string `yaml:"database" env:"INFLUXDB_DATABASE_NAME, overwrite, default=melcloud"`
	Org      string `yaml:"org" env:"INFLUXDB_ORG, overwrite"`
	Token    string `yaml:"token" env:"INFLUXDB_TOKEN, overwrite"`
}

type TimescaleDBConfig struct {
	Enabled bool   `yaml:"enabled" env:"TIMESCALEDB_ENABLED, overwrite"`
	DSN     string `yaml:"dsn" env:"TIMESCALEDB_CONNECTION_STRING, overwrite, default=host=localhost user=myuser password=mysecretpassword dbname=melcloud"`
	Table   string `yaml:"table" env:"TIMESCALEDB_TABLE, overwrite, default=melcloud"`
}

type MongoDBConfig struct {
	Enabled    bool   `yaml:"enabled" env:"MONGO_ENABLED, overwrite"`
	URI        string `yaml:"uri" env:"MONGO_URI, overwrite, default=mongodb://localhost:27017"`
	Database   string `yaml:"database" env:"MONGO_DATABASE, overwrite, default=melcloud"`
	Collection string `yaml:"collection" env:"MONGO_COLLECTION, overwrite, default=snapshots"`
}

type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled" env:"CLICKHOUSE_ENABLED, overwrite"`
	Addr     string `yaml:"addr" env:"CLICKHOUSE_ADDR, overwrite, default=localhost:9000"`
	Database string `yaml:"database" env:"CLICKHOUSE_DB, overwrite, default=melcloud"`
	Username string `yaml:"username" env:"CLICKHOUSE_USER, overwrite, default=default"`
	Password string `yaml:"password" env:"CLICKHOUSE_PASS, overwrite"`
	Table    string `yaml:"table" env:"CLICKHOUSE_TABLE, overwrite, default=melcloud"`
}

type S3Config struct {
	Enabled      bool   `yaml:"enabled" env:"S3_ENABLED, overwrite"`
	Bucket       string `yaml:"bucket" env:"S3_BUCKET, overwrite"`
	Prefix       string `yaml:"prefix" env:"S3_PREFIX, overwrite, default=melcloud"`
	Endpoint     string `yaml:"endpoint" env:"S3_ENDPOINT, overwrite"`
	UsePathStyle bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE, overwrite"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" env:"MQTT_ENABLED, overwrite"`
	Broker      string `yaml:"broker" env:"MQTT_BROKER, overwrite, default=tcp://localhost:1883"`
	ClientID    string `yaml:"client_id" env:"MQTT_CLIENT_ID, overwrite, default=melcloud-data-logger"`
	Username    string `yaml:"username" env:"MQTT_USERNAME, overwrite"`
	Password    string `yaml:"password" env:"MQTT_PASSWORD, overwrite"`
	TopicPrefix string `yaml:"topic_prefix" env:"MQTT_TOPIC_PREFIX, overwrite, default=melcloud"`
}

// Load reads an optional .env file, the optional YAML file named by
// MELCLOUD_CONFIG_FILE and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith is Load without the .env step, reading variables from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config

	if path, ok := lookuper.Lookup(FileEnv); ok && path != "" {
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("erro ao ler variáveis de ambiente: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("erro ao ler arquivo de configuração %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("erro ao decodificar arquivo de configuração %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.AccessToken == "" && (c.Email == "" || c.Password == "") {
		errs = append(errs, errors.New("defina ACCESS_TOKEN ou MELCLOUD_EMAIL e MELCLOUD_PASSWORD"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL inválido: %d", c.RefreshInterval))
	}
	if c.FetchInterval < 0 {
		errs = append(errs, fmt.Errorf("FETCH_INTERVAL inválido: %d", c.FetchInterval))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET é obrigatório quando S3_ENABLED=true"))
	}

	return errors.Join(errs...)
}

// Location loads the zone the device list reports its clock in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("fuso horário inválido %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) RefreshEvery() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Millisecond
}

func (c *Config) FetchAfter() time.Duration {
	return time.Duration(c.FetchInterval) * time.Millisecond
}

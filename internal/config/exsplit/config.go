package exsplit_config

import (
	"time"

	"github.com/NordCoder/exsplit/internal/obs"
	pg "github.com/NordCoder/exsplit/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type API struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	InsecureSkipTLS bool          `mapstructure:"insecure_skip_tls"`
}

type Auth struct {
	Leeway       time.Duration `mapstructure:"leeway"`
	SingleFlight bool          `mapstructure:"single_flight"`
}

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type FileStore struct {
	Path       string `mapstructure:"path"`
	Passphrase string `mapstructure:"passphrase"`
}

type RedisStore struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

type Store struct {
	Driver   string     `mapstructure:"driver"`
	File     FileStore  `mapstructure:"file"`
	Redis    RedisStore `mapstructure:"redis"`
	Postgres pg.Config  `mapstructure:"postgres"`
}

type Events struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Proxy struct {
	Addr            string        `mapstructure:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc OTEL) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	App     App    `mapstructure:"app"`
	Profile string `mapstructure:"profile"`
	API     API    `mapstructure:"api"`
	Auth    Auth   `mapstructure:"auth"`
	Store   Store  `mapstructure:"store"`
	Events  Events `mapstructure:"events"`
	Proxy   Proxy  `mapstructure:"proxy"`
	OTEL    OTEL   `mapstructure:"otel"`
	Log     Log    `mapstructure:"log"`
}

func (c *Config) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:   c.Log.Level,
		Pretty:  c.Log.Pretty,
		App:     c.App.Name,
		Env:     c.App.Env,
		Ver:     c.App.Version,
		Profile: c.Profile,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/dfryer1193/postboard/blog/events"
	"github.com/dfryer1193/postboard/shared/db/postgres"
	"github.com/dfryer1193/postboard/shared/db/sqlite"
	"github.com/rs/zerolog"
)

// StorageDriver selects the durability mirror behind the post store.
type StorageDriver string

const (
	DriverMemory   StorageDriver = "memory"
	DriverSQLite   StorageDriver = "sqlite"
	DriverPostgres StorageDriver = "postgres"
)

const (
	defaultPort            = 8080
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds application-level configuration.
type Config struct {
	Admin           domain.Identity
	Port            int
	ShutdownTimeout time.Duration

	LogLevel   zerolog.Level
	LogConsole bool

	Driver   StorageDriver
	SQLite   *sqlite.SQLiteConfig
	Postgres *postgres.PostgresConfig

	// MQTT is nil when no broker is configured
	MQTT *events.MQTTConfig
}

// Load reads configuration from environment variables.
//
//	POSTBOARD_ADMIN    - administrator identity (required)
//	PORT               - HTTP port (default 8080)
//	SHUTDOWN_TIMEOUT   - graceful shutdown timeout (default 5s)
//	LOG_LEVEL          - zerolog level (default info)
//	LOG_FORMAT         - "console" for human readable output, otherwise JSON
//	STORAGE_DRIVER     - memory, sqlite or postgres (default sqlite)
//	SQLITE_DB_PATH     - SQLite file (default ./postboard.db)
//	POSTGRES_DSN       - required for the postgres driver
//	MQTT_BROKER        - enables MQTT event publishing when set
//	MQTT_CLIENT_ID, MQTT_USERNAME, MQTT_PASSWORD, MQTT_TOPIC_PREFIX, MQTT_QOS, MQTT_TLS
func Load() (Config, error) {
	admin := strings.TrimSpace(os.Getenv("POSTBOARD_ADMIN"))
	if admin == "" {
		return Config{}, fmt.Errorf("POSTBOARD_ADMIN is not set")
	}

	port := defaultPort
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", v)
		}
		port = p
	}

	shutdownTimeout := defaultShutdownTimeout
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", v)
		}
		shutdownTimeout = d
	}

	level := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
		level = l
	}

	cfg := Config{
		Admin:           domain.Identity(admin),
		Port:            port,
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        level,
		LogConsole:      strings.EqualFold(os.Getenv("LOG_FORMAT"), "console"),
		Driver:          DriverSQLite,
	}

	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Driver = StorageDriver(strings.ToLower(v))
	}

	switch cfg.Driver {
	case DriverMemory:
	case DriverSQLite:
		cfg.SQLite = sqlite.NewSQLiteConfig()
	case DriverPostgres:
		cfg.Postgres = postgres.NewPostgresConfig()
		if cfg.Postgres.DSN == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_DRIVER %q: must be memory, sqlite or postgres", cfg.Driver)
	}

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		mqttCfg, err := loadMQTT(broker)
		if err != nil {
			return Config{}, err
		}
		cfg.MQTT = mqttCfg
	}

	return cfg, nil
}

func loadMQTT(broker string) (*events.MQTTConfig, error) {
	qos := 1
	if v := os.Getenv("MQTT_QOS"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil || q < 0 || q > 2 {
			return nil, fmt.Errorf("invalid MQTT_QOS %q: must be 0, 1 or 2", v)
		}
		qos = q
	}

	useTLS := false
	if v := os.Getenv("MQTT_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MQTT_TLS %q: %w", v, err)
		}
		useTLS = b
	}

	prefix := os.Getenv("MQTT_TOPIC_PREFIX")
	if prefix == "" {
		prefix = events.DefaultTopicPrefix
	}

	return &events.MQTTConfig{
		Broker:      broker,
		ClientID:    os.Getenv("MQTT_CLIENT_ID"),
		Username:    os.Getenv("MQTT_USERNAME"),
		Password:    os.Getenv("MQTT_PASSWORD"),
		UseTLS:      useTLS,
		TopicPrefix: prefix,
		QoS:         byte(qos),
	}, nil
}

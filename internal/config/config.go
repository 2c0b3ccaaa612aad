package config

import (
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/joho/godotenv"
)

var cfg *Config
var once sync.Once

// Config is the configuration for the application
type Config struct {
	Server
	Store
	PostgreSQL
	Bolt
	Process
	Logging
}

// Server is the configuration for the HTTP server
type Server struct {
	Port string `env:"PORT" envDefault:"8080"`
}

// Addr returns the address for the server
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%s", "0.0.0.0", s.Port)
}

// Store selects the record store backend: postgres, bolt or memory
type Store struct {
	Backend string `env:"STORE_BACKEND" envDefault:"postgres"`
}

// PostgreSQL is the configuration for the database
type PostgreSQL struct {
	Driver          string `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            string `env:"DB_PORT" envDefault:"5432"`
	Database        string `env:"DB_DATABASE" envDefault:"txn_webhooks"`
	Username        string `env:"DB_USERNAME" envDefault:"txn_webhooks"`
	Password        string `env:"DB_PASSWORD" envDefault:"txn_webhooks"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConnAttempts string `env:"DB_MAX_CONN_ATTEMPTS" envDefault:"5"`
	MigrationsPath  string `env:"DB_MIGRATIONS_PATH" envDefault:"migrations"`
}

// DSN returns the DSN for the database
func (c PostgreSQL) DSN() string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s?sslmode=%s",
		c.Driver,
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// Bolt is the configuration for the embedded store backend
type Bolt struct {
	Path string `env:"BOLT_PATH" envDefault:"txn-webhooks.db"`
}

// Process is the configuration for the finalizer workers and the
// reconciliation sweep
type Process struct {
	Workers            string `env:"FINALIZER_WORKERS" envDefault:"4"`
	ProcessingDelaySec string `env:"PROCESSING_DELAY_SECONDS" envDefault:"30"`
	QueueSize          string `env:"DISPATCH_QUEUE_SIZE" envDefault:"1024"`
	VisibilitySec      string `env:"DISPATCH_VISIBILITY_SECONDS" envDefault:"120"`
	ReconcileEveryMin  string `env:"RECONCILE_INTERVAL_MINUTES" envDefault:"10"`
	ReconcileAgeMin    string `env:"RECONCILE_AGE_MINUTES" envDefault:"5"`
	ReconcileBatch     string `env:"RECONCILE_BATCH" envDefault:"100"`
}

// Logging is the configuration for log output
type Logging struct {
	File string `env:"LOG_FILE" envDefault:""`
}

// Load loads the configuration from a .env file (if present) and
// environment variables
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		cfg = &Config{}
		cfgType := reflect.TypeOf(*cfg)
		cfgValue := reflect.ValueOf(cfg).Elem()

		for i := 0; i < cfgType.NumField(); i++ {
			field := cfgType.Field(i)
			fieldValue := cfgValue.Field(i)
			for j := 0; j < field.Type.NumField(); j++ {
				subField := field.Type.Field(j)
				envVar := subField.Tag.Get("env")
				envDefault := subField.Tag.Get("envDefault")
				value := getEnv(envVar, envDefault)

				fieldValue.Field(j).SetString(value)
			}
		}
	})

	return cfg
}

// getEnv retrieves the value of the environment variable named by the key or returns the defaultValue if not set
func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = defaultValue
	}
	return value
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter des View-Servers aus Umgebungsvariablen.
type Config struct {
	// Basis-URL des Medikamenten-Backends, z.B. "https://api.example.org/"
	ServerURL string `envconfig:"SERVER_URL" required:"true"`

	HTTPPort     string        `envconfig:"HTTP_PORT" default:"4242"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
}

// MedicationsURL gibt die vollständige URL des Listen-Endpunkts zurück.
func (c *Config) MedicationsURL() string {
	return strings.TrimRight(c.ServerURL, "/") + "/api/medications"
}

// APIConfig enthält die Konfiguration des Referenz-Backends (cmd/medapi).
type APIConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"API_HTTP_PORT" default:"8080"`
	SeedDefaults bool   `envconfig:"SEED_DEFAULTS" default:"true"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *APIConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration des View-Servers aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}

// LoadAPI lädt die Konfiguration des Referenz-Backends.
func LoadAPI() (*APIConfig, error) {
	_ = godotenv.Load()
	var c APIConfig
	err := envconfig.Process("", &c)
	return &c, err
}

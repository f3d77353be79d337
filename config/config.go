package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Mapping-Tabelle: lokale Datei oder (falls gesetzt) Objekt im S3-Bucket
	MappingsPath           string `envconfig:"MAPPINGS_PATH" default:"data/mappings.csv"`
	MappingsS3Key          string `envconfig:"MAPPINGS_S3_KEY"`
	MappingsReloadSchedule string `envconfig:"MAPPINGS_RELOAD_SCHEDULE" default:"@every 1h"`

	OCIDPrefix   string `envconfig:"OCID_PREFIX" default:"ocds-testprefix-"`
	UploadDir    string `envconfig:"UPLOAD_DIR" default:"uploads"`
	RootListPath string `envconfig:"ROOT_LIST_PATH" default:"releases"`

	// Metadaten für das base.json-Sidecar des Unflatten-Schritts
	PublisherName   string `envconfig:"PUBLISHER_NAME" default:"PUBLISHER_NAME"`
	PublisherScheme string `envconfig:"PUBLISHER_SCHEME" default:"PUBLISHER_SCHEME"`
	PublisherID     string `envconfig:"PUBLISHER_ID" default:"PUBLISHER_ID"`
	PackageURI      string `envconfig:"PACKAGE_URI" default:"https://ocds-silvereye.herokuapp.com/"`
	OCDSSchemaURL   string `envconfig:"OCDS_SCHEMA_URL" default:"https://standard.open-contracting.org/schema/1__1__4/release-schema.json"`

	// Leer lassen, um den Unflatten-Schritt zu deaktivieren
	UnflattenCommand string `envconfig:"UNFLATTEN_COMMAND"`

	// Datenbank ist optional; ohne DB_HOST werden Coverage-Ergebnisse nicht gespeichert
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"silvereye"`

	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"eu-west-2"`
	S3Bucket string `envconfig:"S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// DatabaseEnabled meldet, ob eine Datenbank konfiguriert ist.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// S3Enabled meldet, ob ein S3-Bucket konfiguriert ist.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}

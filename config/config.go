package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4280"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Dedup-Parameter
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.6"`
	ImportChunkSize     int     `envconfig:"IMPORT_CHUNK_SIZE" default:"500"`
	SweepProgressEvery  int     `envconfig:"SWEEP_PROGRESS_EVERY" default:"250"`

	// Zeitplan für den periodischen Dedup-Sweep
	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 2 * * *"`

	// Import-Quellen: Pfade zu Export-Dateien (lokal oder s3://bucket/key)
	ActivityInsightExport string `envconfig:"ACTIVITY_INSIGHT_EXPORT"`
	PureExport            string `envconfig:"PURE_EXPORT"`

	// S3-Zugang für Export-Downloads (nur nötig, wenn s3://-Pfade konfiguriert sind)
	S3Key      string `envconfig:"S3_KEY"`
	S3Secret   string `envconfig:"S3_SECRET"`
	S3URL      string `envconfig:"S3_URL"`
	S3Region   string `envconfig:"S3_REGION"`
	S3Bucket   string `envconfig:"S3_BUCKET"`
	S3Disabled bool   `envconfig:"S3_DISABLED" default:"false"`

	// Anzahl der Datenbank-Backups, die bei der Rotation behalten werden
	BackupKeep int `envconfig:"BACKUP_KEEP" default:"4"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}

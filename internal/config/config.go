package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

// Store, archive, and notifier backends.
const (
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"

	ArchiveDir = "dir"
	ArchiveS3  = "s3"

	NotifyLog   = "log"
	NotifySES   = "ses"
	NotifyKafka = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Facility string
	// Dates is passed through unvalidated; the ingester rejects bad input.
	Dates domain.DateSpec

	AppSyncURL            string
	AppSyncAPIKey         string
	AppSyncAPIKeySecretID string
	AppSyncTimeout        time.Duration
	AppSyncMaxAttempts    int

	StoreBackend  string
	SQLitePath    string
	StorePageSize int

	DynamoDailyTable string
	DynamoCatchTable string
	DynamoEndpoint   string
	AWSRegion        string

	ArchiveBackend string
	ArchiveDir     string
	S3Bucket       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UseSSL       bool

	NotifyBackends   []string
	SESFrom          string
	SESTo            []string
	KafkaBrokers     []string
	KafkaNotifyTopic string

	IngestFieldCondition bool
	IngestFishingReport  bool

	// Schedule is a cron expression; empty means run once and exit.
	Schedule string
	Location *time.Location

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	CacheSize int
	CacheTTL  time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	appsyncTimeout, err := parseDuration("APPSYNC_TIMEOUT", "20s")
	collect(err)
	maxAttempts, err := parseInt("APPSYNC_MAX_ATTEMPTS", 3, 1)
	collect(err)
	pageSize, err := parseInt("STORE_PAGE_SIZE", 100, 1)
	collect(err)
	useSSL, err := parseBool("S3_USE_SSL", true)
	collect(err)
	fieldCondition, err := parseBool("INGEST_FIELD_CONDITION", false)
	collect(err)
	fishingReport, err := parseBool("INGEST_FISHING_REPORT", false)
	collect(err)
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	collect(err)
	// CACHE_SIZE=0 disables the read cache.
	cacheSize, err := parseInt("CACHE_SIZE", 1000, 0)
	collect(err)
	cacheTTL, err := parseDuration("CACHE_TTL", "5m")
	collect(err)

	tz := sharedcfg.EnvOrDefault("ETL_TIMEZONE", "Asia/Tokyo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		collect(fmt.Errorf("invalid ETL_TIMEZONE %q: %w", tz, err))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cfg := &Config{
		Facility: strings.TrimSpace(sharedcfg.EnvOrDefault("FACILITY_DEFAULT", "honmoku")),
		Dates: domain.DateSpec{
			Target: strings.TrimSpace(os.Getenv("TARGET_DATE")),
			Start:  strings.TrimSpace(os.Getenv("START_DATE")),
			End:    strings.TrimSpace(os.Getenv("END_DATE")),
		},

		AppSyncURL:            sharedcfg.EnvOrDefault("APPSYNC_URL", ""),
		AppSyncAPIKey:         sharedcfg.EnvOrDefault("APPSYNC_API_KEY", ""),
		AppSyncAPIKeySecretID: sharedcfg.EnvOrDefault("APPSYNC_API_KEY_SECRET_ID", ""),
		AppSyncTimeout:        appsyncTimeout,
		AppSyncMaxAttempts:    maxAttempts,

		StoreBackend:  strings.ToLower(sharedcfg.EnvOrDefault("STORE_BACKEND", StoreSQLite)),
		SQLitePath:    sharedcfg.EnvOrDefault("SQLITE_PATH", "fishing.db"),
		StorePageSize: pageSize,

		DynamoDailyTable: sharedcfg.EnvOrDefault("DDB_DAILY_TABLE", ""),
		DynamoCatchTable: sharedcfg.EnvOrDefault("DDB_CATCH_TABLE", ""),
		DynamoEndpoint:   sharedcfg.EnvOrDefault("DDB_ENDPOINT", ""),
		AWSRegion:        sharedcfg.EnvOrDefault("AWS_REGION", "ap-northeast-1"),

		ArchiveBackend: strings.ToLower(sharedcfg.EnvOrDefault("ARCHIVE_BACKEND", ArchiveDir)),
		ArchiveDir:     sharedcfg.EnvOrDefault("ARCHIVE_DIR", "data"),
		S3Bucket:       sharedcfg.EnvOrDefault("S3_BUCKET", ""),
		S3Endpoint:     sharedcfg.EnvOrDefault("S3_ENDPOINT", "s3.amazonaws.com"),
		S3AccessKey:    sharedcfg.EnvOrDefault("S3_ACCESS_KEY", ""),
		S3SecretKey:    sharedcfg.EnvOrDefault("S3_SECRET_KEY", ""),
		S3UseSSL:       useSSL,

		NotifyBackends:   sharedcfg.ParseBrokers(strings.ToLower(sharedcfg.EnvOrDefault("NOTIFY_BACKEND", NotifyLog))),
		SESFrom:          sharedcfg.EnvOrDefault("SES_FROM", ""),
		SESTo:            sharedcfg.ParseBrokers(os.Getenv("SES_TO")),
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaNotifyTopic: sharedcfg.EnvOrDefault("KAFKA_NOTIFY_TOPIC", "fishing-batch-notifications"),

		IngestFieldCondition: fieldCondition,
		IngestFishingReport:  fishingReport,

		Schedule: sharedcfg.EnvOrDefault("ETL_SCHEDULE", ""),
		Location: loc,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CacheSize: cacheSize,
		CacheTTL:  cacheTTL,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreSQLite, StoreMemory:
	case StoreDynamoDB:
		if c.DynamoDailyTable == "" || c.DynamoCatchTable == "" {
			return errors.New("STORE_BACKEND=dynamodb requires DDB_DAILY_TABLE and DDB_CATCH_TABLE")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: want sqlite, dynamodb, or memory", c.StoreBackend)
	}

	switch c.ArchiveBackend {
	case ArchiveDir:
	case ArchiveS3:
		if c.S3Bucket == "" {
			return errors.New("ARCHIVE_BACKEND=s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("invalid ARCHIVE_BACKEND %q: want dir or s3", c.ArchiveBackend)
	}

	if len(c.NotifyBackends) == 0 {
		return errors.New("NOTIFY_BACKEND is required")
	}
	for _, b := range c.NotifyBackends {
		switch b {
		case NotifyLog:
		case NotifySES:
			if c.SESFrom == "" || len(c.SESTo) == 0 {
				return errors.New("NOTIFY_BACKEND=ses requires SES_FROM and SES_TO")
			}
		case NotifyKafka:
			if len(c.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is required")
			}
		default:
			return fmt.Errorf("invalid NOTIFY_BACKEND entry %q: want log, ses, or kafka", b)
		}
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", c.LogFormat)
	}
	return nil
}

// ValidateIngest checks the settings only the ingest binary needs.
func (c *Config) ValidateIngest() error {
	if c.AppSyncURL == "" {
		return errors.New("APPSYNC_URL is required")
	}
	if c.AppSyncAPIKey == "" && c.AppSyncAPIKeySecretID == "" {
		return errors.New("APPSYNC_API_KEY or APPSYNC_API_KEY_SECRET_ID is required")
	}
	return nil
}

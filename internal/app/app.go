// Package app builds the configured adapters shared by the ingest and API
// binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/fishing-catch-etl/internal/adapter/archive"
	"github.com/couchcryptid/fishing-catch-etl/internal/adapter/dynamo"
	"github.com/couchcryptid/fishing-catch-etl/internal/adapter/kafka"
	"github.com/couchcryptid/fishing-catch-etl/internal/adapter/memstore"
	"github.com/couchcryptid/fishing-catch-etl/internal/adapter/notify"
	"github.com/couchcryptid/fishing-catch-etl/internal/adapter/secrets"
	"github.com/couchcryptid/fishing-catch-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/fishing-catch-etl/internal/config"
	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
	"github.com/couchcryptid/fishing-catch-etl/internal/store"
)

// Store is a key-value store that can report its health.
type Store interface {
	store.KeyValueStore
	CheckReadiness(ctx context.Context) error
}

// Archive is a raw-response archive that can report its health.
type Archive interface {
	Put(ctx context.Context, facility, date string, kind domain.Kind, raw []byte) (string, error)
	CheckReadiness(ctx context.Context) error
}

// Closers releases resources in reverse acquisition order.
type Closers []func() error

func (c Closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStore opens the backend named by STORE_BACKEND.
func OpenStore(ctx context.Context, cfg *config.Config, closers *Closers) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return memstore.New(cfg.StorePageSize), nil
	case config.StoreDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		return dynamo.New(client, dynamo.Tables{
			store.TableDaily: cfg.DynamoDailyTable,
			store.TableCatch: cfg.DynamoCatchTable,
		}, cfg.StorePageSize), nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, cfg.StorePageSize)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// OpenArchive opens the backend named by ARCHIVE_BACKEND.
func OpenArchive(cfg *config.Config) (Archive, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveS3:
		client, err := archive.NewMinioClient(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL)
		if err != nil {
			return nil, err
		}
		return archive.NewS3(client, cfg.S3Bucket), nil
	case config.ArchiveDir:
		return archive.NewDir(cfg.ArchiveDir), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}

// OpenNotifier fans out to every backend named by NOTIFY_BACKEND.
func OpenNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *Closers) (notify.Fanout, error) {
	var out notify.Fanout
	for _, b := range cfg.NotifyBackends {
		switch b {
		case config.NotifyLog:
			out = append(out, notify.NewLog(logger))
		case config.NotifySES:
			client, err := notify.NewSESClient(ctx, cfg.AWSRegion)
			if err != nil {
				return nil, err
			}
			out = append(out, notify.NewSES(client, cfg.SESFrom, cfg.SESTo))
		case config.NotifyKafka:
			w := kafka.NewWriter(cfg, logger)
			*closers = append(*closers, w.Close)
			out = append(out, w)
		default:
			return nil, fmt.Errorf("unknown notify backend %q", b)
		}
	}
	return out, nil
}

// ResolveAPIKey returns APPSYNC_API_KEY, or reads it from Secrets Manager
// when only a secret id is configured.
func ResolveAPIKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.AppSyncAPIKey != "" {
		return cfg.AppSyncAPIKey, nil
	}
	client, err := secrets.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return "", &domain.ConfigurationError{Msg: err.Error()}
	}
	return secrets.APIKey(ctx, client, cfg.AppSyncAPIKeySecretID)
}

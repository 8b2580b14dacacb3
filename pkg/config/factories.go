package config

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/store/content"
	contentFs "github.com/marmos91/pldmfs/pkg/store/content/fs"
	contentMemory "github.com/marmos91/pldmfs/pkg/store/content/memory"
	contentS3 "github.com/marmos91/pldmfs/pkg/store/content/s3"
	"github.com/marmos91/pldmfs/pkg/store/journal"
	journalBadger "github.com/marmos91/pldmfs/pkg/store/journal/badger"
	journalMemory "github.com/marmos91/pldmfs/pkg/store/journal/memory"
)

// CreateContentStore creates the content store selected by cfg.Type.
//
// Supported types:
//   - "filesystem": one file per blob under a root directory
//   - "memory": process-local, lost on restart
//   - "s3": objects in a bucket, optionally on an S3-compatible endpoint
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (content.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemContentStore(cfg.Filesystem)
	case "memory":
		return contentMemory.New(), nil
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

func createFilesystemContentStore(options map[string]any) (content.Store, error) {
	type FilesystemContentStoreConfig struct {
		Path     string `mapstructure:"path"`
		DirPerm  uint32 `mapstructure:"dir_perm"`
		FilePerm uint32 `mapstructure:"file_perm"`
	}

	var storeCfg FilesystemContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentFs.New(contentFs.Config{
		Root:     storeCfg.Path,
		DirPerm:  os.FileMode(storeCfg.DirPerm),
		FilePerm: os.FileMode(storeCfg.FilePerm),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}

	return store, nil
}

// s3ContentStoreConfig holds the options of the "s3" content store.
type s3ContentStoreConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

func decodeS3Options(options map[string]any) (s3ContentStoreConfig, error) {
	var storeCfg s3ContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return storeCfg, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}
	if storeCfg.Bucket == "" {
		return storeCfg, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return storeCfg, fmt.Errorf("S3 content store: region is required")
	}
	if storeCfg.MaxRetries == 0 {
		storeCfg.MaxRetries = 10
	}
	return storeCfg, nil
}

func createS3ContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	storeCfg, err := decodeS3Options(options)
	if err != nil {
		return nil, err
	}

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
		awsConfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = storeCfg.MaxRetries
			})
		}),
	}

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Custom endpoints (MinIO, Localstack) need path-style addressing.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	store, err := contentS3.New(contentS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateJournal creates the notification journal selected by cfg.Type.
// Journals that hold resources implement io.Closer.
func CreateJournal(ctx context.Context, cfg *JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return journalMemory.New(), nil
	case "badger":
		return createBadgerJournal(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown journal type: %q (supported: memory, badger)", cfg.Type)
	}
}

func createBadgerJournal(ctx context.Context, options map[string]any) (journal.Journal, error) {
	type BadgerJournalOptions struct {
		DBPath   string `mapstructure:"db_path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var opts BadgerJournalOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger journal options: %w", err)
	}

	if opts.DBPath == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger journal: db_path is required")
	}

	j, err := journalBadger.New(ctx, journalBadger.Config{DBPath: opts.DBPath, InMemory: opts.InMemory})
	if err != nil {
		return nil, fmt.Errorf("failed to open badger journal: %w", err)
	}
	return j, nil
}

package archive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/salesops/workflow/internal/archive/drivers"
	"github.com/salesops/workflow/internal/config"
)

// NewStorageFromConfig creates the storage driver selected by cfg.Type. Type "none"
// returns a nil driver, which disables archiving.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig) (StorageDriver, error) {
	switch cfg.Type {
	case "none", "":
		slog.Info("decision archive disabled")
		return nil, nil
	case "local":
		slog.Info("initializing local archive storage", "dir", cfg.LocalBaseDir)
		driver, err := drivers.NewLocalFSDriver(cfg.LocalBaseDir)
		if err != nil {
			return nil, err
		}
		return driver, nil
	case "s3":
		slog.Info("initializing S3 archive storage", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)

		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.S3Region),
		}

		if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
			creds := credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
			opts = append(opts, awsconfig.WithCredentialsProvider(creds))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if endpoint := s3Endpoint(cfg.S3Endpoint, cfg.S3UseSSL); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
			o.UsePathStyle = true
		})

		return drivers.NewS3Driver(client, cfg.S3Bucket), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// s3Endpoint adds a scheme to a bare host:port endpoint, https unless useSSL is off.
// Endpoints that already carry a scheme are used as given.
func s3Endpoint(endpoint string, useSSL bool) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

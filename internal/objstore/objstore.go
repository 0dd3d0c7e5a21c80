// Package objstore collects backup manifests from an S3-compatible
// object store. Only the key listing and the small per-host manifest
// documents are read; backup artifact bodies are never downloaded.
package objstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"bakmon/internal/collector"
	"bakmon/internal/store"
)

// Per-host documents published under
// <root>/<device_class>/<vendor>/<hostname>/. The manifest feeds the
// validation pipeline; the compliance documents are stored verbatim
// for the dashboard's compliance view.
const (
	manifestObject          = "backup.json"
	operationalStatusObject = "operational_status.json"
	validationObject        = "validation.json"
)

// Config describes one object-store source.
type Config struct {
	Bucket           string
	Region           string
	Prefix           string
	Endpoint         string
	RootDir          string
	Vendor           string
	MaxRetryAttempts int
}

// Source lists and downloads manifest and compliance documents for
// one vendor.
type Source struct {
	client     *s3.Client
	downloader *manager.Downloader
	bucket     string
	prefix     string
	rootDir    string
	vendor     string
	compliance store.ComplianceStore
	log        *slog.Logger
}

// NewSource builds the S3 client. A custom endpoint switches to
// path-style addressing and static credentials from the environment,
// matching S3-compatible mock and on-prem deployments. A nil
// compliance store disables compliance ingestion.
func NewSource(ctx context.Context, cfg Config, compliance store.ComplianceStore, log *slog.Logger) (*Source, error) {
	if log == nil {
		log = slog.Default()
	}

	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))

	if cfg.MaxRetryAttempts > 0 {
		configOpts = append(configOpts,
			awsconfig.WithRetryMaxAttempts(cfg.MaxRetryAttempts),
			awsconfig.WithRetryMode(aws.RetryModeStandard),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Endpoint != "" {
		if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" {
			if secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY"); secretKey != "" {
				awsCfg.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
			}
		}
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
		log.Info("S3 client initialized with custom endpoint", "endpoint", cfg.Endpoint)
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &Source{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		rootDir:    cfg.RootDir,
		vendor:     cfg.Vendor,
		compliance: compliance,
		log:        log,
	}, nil
}

// Vendor returns the vendor this source collects for.
func (s *Source) Vendor() string { return s.vendor }

// VerifyCredentials checks bucket access before the first cycle.
func (s *Source) VerifyCredentials(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to verify credentials or bucket access: %w", err)
	}
	return nil
}

// Collect lists the backups root and downloads every host's manifest
// document for this source's vendor. Compliance documents found next
// to a manifest are stored directly; they carry no contract and skip
// validation. A failed download for one host is logged and skipped; a
// failed listing fails the whole cycle.
func (s *Source) Collect(ctx context.Context) ([]collector.RawManifest, error) {
	listPrefix := path.Join(s.prefix, s.rootDir) + "/"

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}

	var manifests []collector.RawManifest
	for _, key := range keys {
		hostname, object, ok := s.hostObject(key)
		if !ok {
			continue
		}

		switch object {
		case manifestObject:
			body, err := s.download(ctx, key)
			if err != nil {
				s.log.Warn("Failed to fetch manifest, skipping host",
					"hostname", hostname, "key", key, "error", err)
				continue
			}
			manifests = append(manifests, collector.RawManifest{
				Hostname: hostname,
				Body:     body,
			})
		case operationalStatusObject, validationObject:
			if s.compliance == nil {
				continue
			}
			if err := s.publishCompliance(ctx, hostname, object, key); err != nil {
				s.log.Warn("Failed to store compliance document, skipping",
					"hostname", hostname, "key", key, "error", err)
			}
		}
	}

	return manifests, nil
}

func (s *Source) publishCompliance(ctx context.Context, hostname, object, key string) error {
	body, err := s.download(ctx, key)
	if err != nil {
		return err
	}
	return s.compliance.UpsertCompliance(ctx, &store.ComplianceRecord{
		Hostname:    hostname,
		Vendor:      s.vendor,
		Kind:        strings.TrimSuffix(object, ".json"),
		Document:    body,
		LastUpdated: time.Now().UTC(),
	})
}

// hostObject splits a per-host object key of the form
// <root>/<device_class>/<vendor>/<hostname>/<object>, matching this
// source's vendor.
func (s *Source) hostObject(key string) (hostname, object string, ok bool) {
	trimmed := strings.TrimPrefix(key, path.Join(s.prefix, s.rootDir)+"/")
	if trimmed == key {
		return "", "", false
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) != 4 {
		return "", "", false
	}
	if parts[1] != s.vendor {
		return "", "", false
	}
	return parts[2], parts[3], true
}

func (s *Source) download(ctx context.Context, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

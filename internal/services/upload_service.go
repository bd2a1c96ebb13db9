package services

import (
	"context"
	"fmt"
	"time"

	"picbed/internal/config"
	"picbed/internal/utils"
	"picbed/pkg/logger"
	"picbed/pkg/storage"
)

type UploadOptions struct {
	// Progress receives fractional progress (0-100) across compression and
	// transfer. Nil disables reporting.
	Progress utils.ProgressFunc
	// SkipExistCheck uploads unconditionally, without the dedup probe.
	SkipExistCheck bool
}

type UploadResult struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	Deduplicated bool   `json:"deduplicated"`
}

type UploadService interface {
	Upload(ctx context.Context, data []byte, filename string, opts *UploadOptions) (*UploadResult, error)
}

type uploadService struct {
	configSource func() *config.Config
	newStore     func(*config.OSSConfig) storage.ObjectStore
	compress     func([]byte, string, utils.TransformLimits, utils.ProgressFunc) ([]byte, error)
	sleep        func(time.Duration)
	logger       *logger.Logger
}

// NewUploadService builds the upload pipeline. Configuration is pulled from
// configSource on every call, so settings edited between requests take
// effect without rebuilding the service; one request sees one snapshot.
func NewUploadService(configSource func() *config.Config, log *logger.Logger) UploadService {
	return &uploadService{
		configSource: configSource,
		newStore: func(cfg *config.OSSConfig) storage.ObjectStore {
			return storage.NewOSSStorage(cfg.AccessKeyID, cfg.AccessKeySecret, cfg.Bucket, cfg.Region, cfg.CustomDomain)
		},
		compress: utils.CompressImage,
		sleep:    time.Sleep,
		logger:   log,
	}
}

// Upload stores data under its content address and returns the public URL.
//
// The key is derived from the original bytes and the filename extension
// before any compression, so re-uploading the same source always resolves
// to the same object. When the object already exists remotely the upload
// returns immediately without compressing or transferring anything.
func (s *uploadService) Upload(ctx context.Context, data []byte, filename string, opts *UploadOptions) (*UploadResult, error) {
	if opts == nil {
		opts = &UploadOptions{}
	}

	cfg := s.configSource()
	if err := cfg.OSS.Validate(); err != nil {
		return nil, storage.NewConfigError(err.Error())
	}

	key := utils.BuildObjectKey(cfg.OSS.PathPrefix, utils.ContentHash(data), filename)
	store := s.newStore(cfg.OSS)
	log := s.logger.WithKey(key).WithBucket(cfg.OSS.Bucket)

	if !opts.SkipExistCheck {
		exists, err := store.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			log.Info("Object already stored, skipping upload")
			reportProgress(opts.Progress, 100)
			return &UploadResult{
				Key:          key,
				URL:          store.URL(key),
				Size:         int64(len(data)),
				Deduplicated: true,
			}, nil
		}
	}

	payload := data
	if cfg.Transform.Enabled && utils.IsRasterImage(filename) {
		limits := utils.TransformLimits{
			MaxSizeBytes: int64(cfg.Transform.MaxSizeMB * utils.BytesPerMB),
			MaxDimension: cfg.Transform.MaxDimension,
		}

		compressed, err := s.compress(data, filename, limits, scaleProgress(opts.Progress, 0.9))
		if err != nil {
			return nil, storage.NewTransformError("failed to compress image").WithCause(err)
		}
		payload = compressed
	}

	request := &storage.PutObjectRequest{
		Key:         key,
		ContentType: utils.ContentTypeForFilename(filename),
		Body:        payload,
	}

	if err := s.transferWithRetry(ctx, store, request, cfg.OSS.RetryLimit, log); err != nil {
		return nil, err
	}

	reportProgress(opts.Progress, 100)
	log.WithField("size", len(payload)).Info("Upload completed")

	return &UploadResult{
		Key:  key,
		URL:  store.URL(key),
		Size: int64(len(payload)),
	}, nil
}

// transferWithRetry runs the transfer as a bounded loop: retryLimit retries
// beyond the first attempt, doubling the delay each time (1s, 2s, 4s, ...).
// Every failure class from the transfer is retried; the last cause is
// carried by the exhausted-retries error.
func (s *uploadService) transferWithRetry(ctx context.Context, store storage.ObjectStore, request *storage.PutObjectRequest, retryLimit int, log *logger.Logger) error {
	attempts := retryLimit + 1
	if attempts < 1 {
		attempts = 1
	}

	delay := time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = store.Put(ctx, request)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		log.LogTransferAttempt(request.Key, attempt, delay, lastErr)
		s.sleep(delay)
		delay *= 2
	}

	return storage.NewRetriesExhaustedError(fmt.Sprintf("transfer failed after %d attempts", attempts)).WithCause(lastErr)
}

func reportProgress(progress utils.ProgressFunc, percent float64) {
	if progress != nil {
		progress(percent)
	}
}

// scaleProgress maps a step's 0-100 range into the leading share of the
// overall range, leaving the remainder for the transfer.
func scaleProgress(progress utils.ProgressFunc, factor float64) utils.ProgressFunc {
	if progress == nil {
		return nil
	}
	return func(percent float64) {
		progress(percent * factor)
	}
}

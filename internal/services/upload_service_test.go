package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"picbed/internal/config"
	"picbed/internal/utils"
	"picbed/pkg/logger"
	"picbed/pkg/storage"
)

type fakeStore struct {
	existsResult bool
	existsErr    error
	putErrs      []error

	existsCalls int
	putCalls    int
	lastPut     *storage.PutObjectRequest
}

func (f *fakeStore) Put(ctx context.Context, request *storage.PutObjectRequest) error {
	f.putCalls++
	f.lastPut = request
	if f.putCalls <= len(f.putErrs) {
		return f.putErrs[f.putCalls-1]
	}
	return nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.existsCalls++
	return f.existsResult, f.existsErr
}

func (f *fakeStore) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	return nil, storage.NewExistenceCheckError("not implemented")
}

func (f *fakeStore) URL(key string) string {
	return "https://cdn.example.com/" + key
}

type testHarness struct {
	service       *uploadService
	store         *fakeStore
	sleeps        *[]time.Duration
	compressCalls *int
}

func testConfig() *config.Config {
	return &config.Config{
		App: &config.AppConfig{LogLevel: "error"},
		OSS: &config.OSSConfig{
			AccessKeyID:     "ak",
			AccessKeySecret: "sk",
			Bucket:          "b",
			Region:          "r",
			PathPrefix:      "p/",
			RetryLimit:      3,
		},
		Transform: &config.TransformConfig{
			Enabled:      false,
			MaxSizeMB:    0.3,
			MaxDimension: 1280,
		},
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel})
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	log.SetOutput(io.Discard)

	return log
}

func newTestService(t *testing.T, cfg *config.Config, store *fakeStore) *testHarness {
	t.Helper()

	sleeps := &[]time.Duration{}
	compressCalls := new(int)

	service := &uploadService{
		configSource: func() *config.Config { return cfg },
		newStore: func(*config.OSSConfig) storage.ObjectStore {
			return store
		},
		compress: func(data []byte, filename string, limits utils.TransformLimits, progress utils.ProgressFunc) ([]byte, error) {
			*compressCalls++
			return data, nil
		},
		sleep:  func(d time.Duration) { *sleeps = append(*sleeps, d) },
		logger: testLogger(t),
	}

	return &testHarness{service: service, store: store, sleeps: sleeps, compressCalls: compressCalls}
}

func TestUploadConfigGating(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.OSSConfig)
	}{
		{"missing access key id", func(c *config.OSSConfig) { c.AccessKeyID = "" }},
		{"missing access key secret", func(c *config.OSSConfig) { c.AccessKeySecret = "" }},
		{"missing bucket", func(c *config.OSSConfig) { c.Bucket = "" }},
		{"missing region", func(c *config.OSSConfig) { c.Region = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg.OSS)
			h := newTestService(t, cfg, &fakeStore{})

			_, err := h.service.Upload(context.Background(), []byte("data"), "a.png", nil)
			if !storage.IsKind(err, storage.ErrKindConfig) {
				t.Fatalf("Upload() error = %v, want kind %s", err, storage.ErrKindConfig)
			}
			// Fail fast: no network traffic of any kind.
			if h.store.existsCalls != 0 || h.store.putCalls != 0 {
				t.Errorf("store was contacted: exists=%d put=%d", h.store.existsCalls, h.store.putCalls)
			}
		})
	}
}

func TestUploadKeyDeterminism(t *testing.T) {
	data := []byte("hello")
	wantKey := "p/2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824.png"

	cfg := testConfig()
	h := newTestService(t, cfg, &fakeStore{})

	first, err := h.service.Upload(context.Background(), data, "a.PNG", nil)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if first.Key != wantKey {
		t.Errorf("Key = %q, want %q", first.Key, wantKey)
	}

	// Changing compression settings must not move the object: the key is a
	// pure function of the original bytes and extension.
	cfg.Transform.Enabled = true
	cfg.Transform.MaxSizeMB = 0.01
	cfg.Transform.MaxDimension = 32

	second, err := h.service.Upload(context.Background(), data, "a.PNG", nil)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if second.Key != first.Key {
		t.Errorf("key changed with transform settings: %q vs %q", second.Key, first.Key)
	}
}

func TestUploadDedupShortCircuit(t *testing.T) {
	cfg := testConfig()
	cfg.Transform.Enabled = true
	h := newTestService(t, cfg, &fakeStore{existsResult: true})

	result, err := h.service.Upload(context.Background(), []byte("hello"), "a.png", nil)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !result.Deduplicated {
		t.Error("Deduplicated = false, want true")
	}
	if result.URL != h.store.URL(result.Key) {
		t.Errorf("URL = %q, want %q", result.URL, h.store.URL(result.Key))
	}
	if h.store.putCalls != 0 {
		t.Errorf("putCalls = %d, want 0", h.store.putCalls)
	}
	if *h.compressCalls != 0 {
		t.Errorf("compressCalls = %d, want 0", *h.compressCalls)
	}
}

func TestUploadSkipExistCheck(t *testing.T) {
	h := newTestService(t, testConfig(), &fakeStore{existsResult: true})

	result, err := h.service.Upload(context.Background(), []byte("hello"), "a.png", &UploadOptions{SkipExistCheck: true})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if h.store.existsCalls != 0 {
		t.Errorf("existsCalls = %d, want 0", h.store.existsCalls)
	}
	if h.store.putCalls != 1 {
		t.Errorf("putCalls = %d, want 1", h.store.putCalls)
	}
	if result.Deduplicated {
		t.Error("Deduplicated = true, want false")
	}
}

func TestUploadExistenceCheckErrorPropagates(t *testing.T) {
	probeErr := storage.NewExistenceCheckError("existence probe returned status 500")
	h := newTestService(t, testConfig(), &fakeStore{existsErr: probeErr})

	_, err := h.service.Upload(context.Background(), []byte("hello"), "a.png", nil)
	if !errors.Is(err, probeErr) && !storage.IsKind(err, storage.ErrKindExistenceCheck) {
		t.Fatalf("Upload() error = %v, want the probe error", err)
	}
	// A failed probe never falls through to an upload.
	if h.store.putCalls != 0 {
		t.Errorf("putCalls = %d, want 0", h.store.putCalls)
	}
	if *h.compressCalls != 0 {
		t.Errorf("compressCalls = %d, want 0", *h.compressCalls)
	}
}

func TestUploadTransformError(t *testing.T) {
	cfg := testConfig()
	cfg.Transform.Enabled = true
	h := newTestService(t, cfg, &fakeStore{})
	h.service.compress = func([]byte, string, utils.TransformLimits, utils.ProgressFunc) ([]byte, error) {
		return nil, errors.New("corrupt input")
	}

	_, err := h.service.Upload(context.Background(), []byte("hello"), "a.png", nil)
	if !storage.IsKind(err, storage.ErrKindTransform) {
		t.Fatalf("Upload() error = %v, want kind %s", err, storage.ErrKindTransform)
	}
	// No fallback to an uncompressed upload.
	if h.store.putCalls != 0 {
		t.Errorf("putCalls = %d, want 0", h.store.putCalls)
	}
}

func TestUploadContentType(t *testing.T) {
	h := newTestService(t, testConfig(), &fakeStore{})

	if _, err := h.service.Upload(context.Background(), []byte("hello"), "a.png", nil); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if got := h.store.lastPut.ContentType; got != "image/png" {
		t.Errorf("ContentType = %q, want image/png", got)
	}
}

func TestUploadRetrySucceedsAfterFailures(t *testing.T) {
	transient := errors.New("connection reset")
	h := newTestService(t, testConfig(), &fakeStore{putErrs: []error{transient, transient}})

	result, err := h.service.Upload(context.Background(), []byte("hello"), "a.png", nil)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.URL == "" {
		t.Error("URL is empty")
	}

	if h.store.putCalls != 3 {
		t.Errorf("putCalls = %d, want 3", h.store.putCalls)
	}
	wantSleeps := []time.Duration{time.Second, 2 * time.Second}
	if len(*h.sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", *h.sleeps, wantSleeps)
	}
	for i, want := range wantSleeps {
		if (*h.sleeps)[i] != want {
			t.Errorf("sleep[%d] = %v, want %v", i, (*h.sleeps)[i], want)
		}
	}
}

func TestUploadRetriesExhausted(t *testing.T) {
	transient := errors.New("connection reset")
	h := newTestService(t, testConfig(), &fakeStore{
		putErrs: []error{transient, transient, transient, transient},
	})

	_, err := h.service.Upload(context.Background(), []byte("hello"), "a.png", nil)
	if !storage.IsKind(err, storage.ErrKindRetriesExhausted) {
		t.Fatalf("Upload() error = %v, want kind %s", err, storage.ErrKindRetriesExhausted)
	}
	if !errors.Is(err, transient) {
		t.Errorf("Upload() error does not wrap the last cause: %v", err)
	}

	if h.store.putCalls != 4 {
		t.Errorf("putCalls = %d, want 4", h.store.putCalls)
	}
	wantSleeps := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*h.sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", *h.sleeps, wantSleeps)
	}
	for i, want := range wantSleeps {
		if (*h.sleeps)[i] != want {
			t.Errorf("sleep[%d] = %v, want %v", i, (*h.sleeps)[i], want)
		}
	}
}

func TestUploadProgress(t *testing.T) {
	cfg := testConfig()
	cfg.Transform.Enabled = true
	h := newTestService(t, cfg, &fakeStore{})
	h.service.compress = func(data []byte, filename string, limits utils.TransformLimits, progress utils.ProgressFunc) ([]byte, error) {
		progress(50)
		progress(100)
		return data, nil
	}

	var values []float64
	opts := &UploadOptions{Progress: func(percent float64) { values = append(values, percent) }}

	if _, err := h.service.Upload(context.Background(), []byte("hello"), "a.png", opts); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if len(values) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			t.Fatalf("progress decreased: %v", values)
		}
	}
	if last := values[len(values)-1]; last != 100 {
		t.Errorf("final progress = %v, want 100", last)
	}
}

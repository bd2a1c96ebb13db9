package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OSSStorage talks to an OSS-compatible object store over plain HTTP with
// header signing. The store is addressed as
// https://{bucket}.{region}.aliyuncs.com and every request carries a fresh
// Date header and a signature derived from it.
type OSSStorage struct {
	client       *http.Client
	signer       *Signer
	bucket       string
	region       string
	customDomain string
	endpoint     string
	now          func() time.Time
}

func NewOSSStorage(accessKeyID, accessKeySecret, bucket, region, customDomain string) *OSSStorage {
	return &OSSStorage{
		client: &http.Client{},
		signer: &Signer{
			AccessKeyID:     accessKeyID,
			AccessKeySecret: accessKeySecret,
		},
		bucket:       bucket,
		region:       region,
		customDomain: customDomain,
		now:          time.Now,
	}
}

// SetEndpoint overrides the derived bucket endpoint. Used for self-hosted
// gateways and tests; the canonical resource still names the bucket.
func (o *OSSStorage) SetEndpoint(endpoint string) {
	o.endpoint = strings.TrimSuffix(endpoint, "/")
}

func (o *OSSStorage) Put(ctx context.Context, request *PutObjectRequest) error {
	req, err := o.newSignedRequest(ctx, http.MethodPut, request.Key, request.ContentType, request.Body)
	if err != nil {
		return NewNetworkError("failed to build upload request").WithCause(err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return NewNetworkError("upload request failed").WithCause(err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		return NewAuthError("signature rejected by storage service")
	default:
		return NewNetworkError(fmt.Sprintf("upload returned status %d", resp.StatusCode))
	}
}

// Exists issues a signed metadata probe for key. Only the provider's
// not-found status maps to false; every other failure is surfaced so the
// caller never mistakes an outage for a missing object.
func (o *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := o.head(ctx, key)
	if err != nil {
		return false, NewExistenceCheckError("existence probe failed").WithCause(err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, NewExistenceCheckError(fmt.Sprintf("existence probe returned status %d", resp.StatusCode))
	}
}

func (o *OSSStorage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	resp, err := o.head(ctx, key)
	if err != nil {
		return nil, NewExistenceCheckError("metadata probe failed").WithCause(err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &ObjectInfo{
			Key:          key,
			Size:         resp.ContentLength,
			ContentType:  resp.Header.Get("Content-Type"),
			LastModified: parseHTTPTime(resp.Header.Get("Last-Modified")),
			ETag:         resp.Header.Get("ETag"),
			URL:          o.URL(key),
		}, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewExistenceCheckError("object not found")
	default:
		return nil, NewExistenceCheckError(fmt.Sprintf("metadata probe returned status %d", resp.StatusCode))
	}
}

// URL returns the public URL for key: the custom domain when one is
// configured, the bucket endpoint otherwise.
func (o *OSSStorage) URL(key string) string {
	if o.customDomain != "" {
		domain := strings.TrimSuffix(o.customDomain, "/")
		if !strings.Contains(domain, "://") {
			domain = "https://" + domain
		}
		return fmt.Sprintf("%s/%s", domain, key)
	}
	return fmt.Sprintf("%s/%s", o.endpointURL(), key)
}

func (o *OSSStorage) head(ctx context.Context, key string) (*http.Response, error) {
	req, err := o.newSignedRequest(ctx, http.MethodHead, key, "", nil)
	if err != nil {
		return nil, err
	}
	return o.client.Do(req)
}

// newSignedRequest builds a request with a Date header taken at call time
// and a signature over it. Retries must rebuild the request rather than
// resend it: a stale Date signs to a different token.
func (o *OSSStorage) newSignedRequest(ctx context.Context, verb, key, contentType string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, verb, o.endpointURL()+"/"+key, reader)
	if err != nil {
		return nil, err
	}

	date := o.now().UTC().Format(http.TimeFormat)
	resource := "/" + o.bucket + "/" + key

	req.Header.Set("Date", date)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", o.signer.Authorization(verb, "", contentType, date, resource))

	return req, nil
}

func (o *OSSStorage) endpointURL() string {
	if o.endpoint != "" {
		return o.endpoint
	}
	return fmt.Sprintf("https://%s.%s.aliyuncs.com", o.bucket, o.region)
}

func parseHTTPTime(value string) time.Time {
	t, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}

package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// S3Store implements Store against one S3 bucket. The client is shared
// read-only across concurrent document pipelines; the optional limiter
// throttles Put calls across all of them.
type S3Store struct {
	client  *s3.Client
	bucket  string
	timeout time.Duration
	limiter *rate.Limiter
}

// S3Options tunes per-call behavior.
type S3Options struct {
	// RequestTimeout bounds each store call. 0 means 30s.
	RequestTimeout time.Duration

	// UploadsPerSecond rate-limits Put calls across all workers.
	// 0 = unlimited.
	UploadsPerSecond float64
}

// NewS3Store wraps an S3 client and bucket as a Store.
func NewS3Store(client *s3.Client, bucket string, opts S3Options) *S3Store {
	timeout := opts.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if opts.UploadsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.UploadsPerSecond), 1)
	}
	return &S3Store{client: client, bucket: bucket, timeout: timeout, limiter: limiter}
}

// Probe issues a HeadObject for the key. A 404 maps to Exists=false;
// anything else failing maps to a classified *StoreError.
func (s *S3Store) Probe(ctx context.Context, key string) (RemoteState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return RemoteState{Key: key, Exists: false}, nil
		}
		return RemoteState{}, classify("probe", key, err)
	}

	state := RemoteState{Key: key, Exists: true}
	if out.LastModified != nil {
		state.LastModified = out.LastModified.Unix()
	}
	return state, nil
}

// Put overwrites the object at key. The same key always receives the
// artifacts for the same document, so the store never accumulates stale
// duplicates.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return classify("put", key, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return classify("put", key, err)
	}
	log.Debug().Str("key", key).Int("bytes", len(body)).Msg("Object uploaded")
	return nil
}

// List pages through every object under prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		pageCtx, cancel := context.WithTimeout(ctx, s.timeout)
		page, err := paginator.NextPage(pageCtx)
		cancel()
		if err != nil {
			return nil, classify("list", prefix, err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{}
			if obj.Key != nil {
				info.Key = *obj.Key
			}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = obj.LastModified.Unix()
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

// URL renders the s3:// URL for a key.
func (s *S3Store) URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// isNotFound reports whether err is S3's object-absent response.
func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

// authErrorCodes are S3/STS error codes that no amount of retrying fixes.
var authErrorCodes = map[string]bool{
	"AccessDenied":                 true,
	"InvalidAccessKeyId":           true,
	"SignatureDoesNotMatch":        true,
	"ExpiredToken":                 true,
	"TokenRefreshRequired":         true,
	"AuthorizationHeaderMalformed": true,
}

// classify wraps an SDK error as a StoreError, separating authorization
// failures from everything else. Unrecognized errors are treated as
// transient so the bounded retry gets a chance.
func classify(op, key string, err error) *StoreError {
	kind := KindTransient
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && authErrorCodes[apiErr.ErrorCode()] {
		kind = KindAuthorization
	}
	return &StoreError{Op: op, Key: key, Kind: kind, Err: err}
}

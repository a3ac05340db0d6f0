package objectstore

import (
	"errors"
	"fmt"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestClassifyAuthorization(t *testing.T) {
	for _, code := range []string{"AccessDenied", "InvalidAccessKeyId", "ExpiredToken"} {
		err := classify("put", "k", &smithy.GenericAPIError{Code: code, Message: "denied"})
		if err.Kind != KindAuthorization {
			t.Errorf("%s classified as %s, want authorization", code, err.Kind)
		}
		if IsRetryable(err) {
			t.Errorf("%s must not be retryable", code)
		}
	}
}

func TestClassifyUnknownIsTransient(t *testing.T) {
	cases := []error{
		fmt.Errorf("connection reset by peer"),
		&smithy.GenericAPIError{Code: "SlowDown", Message: "reduce request rate"},
		&smithy.GenericAPIError{Code: "InternalError", Message: "we broke"},
	}
	for _, cause := range cases {
		err := classify("probe", "k", cause)
		if err.Kind != KindTransient {
			t.Errorf("%v classified as %s, want transient", cause, err.Kind)
		}
		if !IsRetryable(err) {
			t.Errorf("%v must be retryable", cause)
		}
	}
}

func TestClassifyPreservesCause(t *testing.T) {
	cause := &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	err := classify("put", "rag/master_text/x.jsonl", cause)

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("wrapped cause lost")
	}
	if err.Op != "put" || err.Key != "rag/master_text/x.jsonl" {
		t.Errorf("operation context lost: %+v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&s3types.NotFound{}, true},
		{&smithy.GenericAPIError{Code: "NotFound"}, true},
		{&smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{&smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{fmt.Errorf("timeout"), false},
	}
	for _, tc := range cases {
		if got := isNotFound(tc.err); got != tc.want {
			t.Errorf("isNotFound(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestIsRetryableNonStoreError(t *testing.T) {
	if IsRetryable(fmt.Errorf("plain error")) {
		t.Error("errors without a classification must not be retried")
	}
}

func TestURL(t *testing.T) {
	s := &S3Store{bucket: "tclip-raw-data-2025"}
	if got := s.URL("rag/images/x/frame.jpeg"); got != "s3://tclip-raw-data-2025/rag/images/x/frame.jpeg" {
		t.Errorf("unexpected URL: %s", got)
	}
}

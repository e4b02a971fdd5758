// Package resilience classifies transfer errors and retries the transient ones.
package resilience

import (
	"errors"
	"net"
	"net/textproto"
	"strings"
	"syscall"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient. statusCode is the protocol status
// that caused it, or 0.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// retryableS3Codes are S3 error codes that clear up on their own.
var retryableS3Codes = map[string]bool{
	"SlowDown":             true,
	"RequestTimeout":       true,
	"InternalError":        true,
	"ServiceUnavailable":   true,
	"Throttling":           true,
	"ThrottlingException":  true,
	"RequestTimeTooSkewed": true,
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError, a network timeout or reset, a throttled or 5xx S3 response,
// or a 4xx FTP reply.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && IsTransientHTTPStatus(respErr.HTTPStatusCode()) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && retryableS3Codes[apiErr.ErrorCode()] {
		return true
	}

	// FTP 4xx replies are transient negative completions.
	var ftpErr *textproto.Error
	if errors.As(err, &ftpErr) && ftpErr.Code >= 400 && ftpErr.Code < 500 {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status code is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

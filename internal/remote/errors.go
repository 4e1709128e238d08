package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/ekamanam/studysync/internal/common"
)

// OpError reports a failed remote operation. Kind is one of the common
// sentinel errors (or nil when the failure could not be classified) and Err
// is the underlying cause.
type OpError struct {
	Op   string
	Key  string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	msg := "remote " + e.Op
	if e.Key != "" {
		msg += fmt.Sprintf(" %q", e.Key)
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil && e.Err != e.Kind {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// opError wraps err for op/key unless it is already an *OpError.
func opError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Key: key, Kind: classify(err), Err: err}
}

var kinds = []error{
	common.ErrUnauthorized,
	common.ErrNotFound,
	common.ErrQuotaExceeded,
	common.ErrTransientNetwork,
	common.ErrIncompleteUpload,
	common.ErrInvalidArgument,
}

// classify maps SDK, HTTP and network failures to the common error kinds.
func classify(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrTransientNetwork
	case errors.Is(err, context.Canceled):
		return nil
	}

	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return common.ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return common.ErrNotFound
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"ExpiredToken", "InvalidToken", "TokenRefreshRequired", "Unauthorized":
			return common.ErrUnauthorized
		case "QuotaExceeded", "ServiceQuotaExceeded", "XMinioStorageFull", "XMinioAdminBucketQuotaExceeded":
			return common.ErrQuotaExceeded
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout", "RequestTimeTooSkewed":
			return common.ErrTransientNetwork
		}
	}

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch code := re.HTTPStatusCode(); {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return common.ErrUnauthorized
		case code == http.StatusNotFound:
			return common.ErrNotFound
		case code == http.StatusInsufficientStorage:
			return common.ErrQuotaExceeded
		case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
			return common.ErrTransientNetwork
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return common.ErrTransientNetwork
	}

	return nil
}

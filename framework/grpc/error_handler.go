package idpgrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// ErrorHandler converts authentication errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps every authentication failure to
// codes.Unauthenticated with the failure reason as the message. Malformed
// metadata maps to codes.InvalidArgument and anything else to codes.Internal.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	var failure *core.Failure
	if errors.As(err, &failure) {
		return status.Error(codes.Unauthenticated, string(failure.Reason))
	}
	if errors.Is(err, core.ErrJWTMissing) {
		return status.Error(codes.Unauthenticated, string(core.ReasonMissingHeader))
	}
	if errors.Is(err, ErrMultipleAuthHeaders) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, "unable to authenticate request")
}

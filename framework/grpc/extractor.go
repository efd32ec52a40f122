package idpgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/metadata"
)

// AuthorizationExtractor returns the raw authorization value of a call,
// scheme included, or "" when there is none.
type AuthorizationExtractor func(ctx context.Context) (string, error)

// ErrMultipleAuthHeaders indicates more than one authorization metadata entry.
var ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

// MetadataExtractor reads the "authorization" metadata key. gRPC lowercases
// incoming metadata keys.
func MetadataExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return values[0], nil
	default:
		return "", ErrMultipleAuthHeaders
	}
}

package sessionauth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// attaches a Principal when the call carries a live session token.
// Like Authenticate it fails open, except that infrastructure failures
// are reported as codes.Unavailable.
func UnaryServerInterceptor(svc *SessionService) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()

		md, _ := metadata.FromIncomingContext(ctx)
		requestID := firstValue(md, "x-request-id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = WithRequestID(ctx, requestID)

		token, err := extractTokenFromMetadata(md)
		if err != nil {
			return handler(ctx, req)
		}

		ctx, err = svc.authenticateToken(ctx, token, start)
		if err != nil {
			return nil, status.Error(codes.Unavailable, string(CodeOf(err)))
		}

		return handler(ctx, req)
	}
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

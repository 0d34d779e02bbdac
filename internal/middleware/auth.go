package middleware

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"appointment-booking/internal/model"
	"appointment-booking/internal/session"
	"appointment-booking/internal/store"
)

type ctxKey string

const sessionKey ctxKey = "session"

// Authenticator is the session gate.
type Authenticator interface {
	RequireAuthenticated(ctx context.Context, token string) (model.Session, error)
}

// skip auth for these
var open = map[string]bool{
	"/booking.v1.BookingService/SignUp":         true,
	"/booking.v1.BookingService/Login":          true,
	"/booking.v1.BookingService/ListDoctors":    true,
	"/booking.v1.BookingService/IsBookableDate": true,
	"/booking.v1.BookingService/ListTimeSlots":  true,
}

func WithSession(ctx context.Context, s model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFrom(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(model.Session)
	return s, ok && s.Authenticated()
}

// BearerToken strips the "Bearer " scheme from an Authorization value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func Auth(authn Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		// token from authorization: Bearer <jwt>
		raw := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			raw = BearerToken(vals[0])
		}
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "no token")
		}

		sess, err := authn.RequireAuthenticated(ctx, raw)
		if err != nil {
			return nil, GateError(err)
		}
		return next(WithSession(ctx, sess), req)
	}
}

// GateError maps a RequireAuthenticated failure to a gRPC status.
func GateError(err error) error {
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "bad token")
	case errors.Is(err, store.ErrUnavailable):
		return status.Error(codes.Unavailable, "storage unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

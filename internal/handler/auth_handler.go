package handler

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"appointment-booking/internal/middleware"
	"appointment-booking/internal/session"
)

func (h *Handler) SignUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, password := str(req, "username"), str(req, "password")
	if username == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "username and password required")
	}

	id, err := h.sessions.SignUp(ctx, username, password)
	switch {
	case errors.Is(err, session.ErrInvalidUsername):
		return nil, status.Error(codes.InvalidArgument, "invalid username")
	case errors.Is(err, session.ErrInvalidPassword):
		return nil, status.Error(codes.InvalidArgument, "password must be 1 to 72 bytes")
	case errors.Is(err, session.ErrUsernameTaken):
		return nil, status.Error(codes.AlreadyExists, "username already bound")
	case err != nil:
		return nil, h.internal(err, "sign_up")
	}
	return reply(map[string]any{"username": id.Username})
}

func (h *Handler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, password := str(req, "username"), str(req, "password")
	if username == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "username and password required")
	}

	sess, err := h.sessions.Login(ctx, username, password)
	if errors.Is(err, session.ErrInvalidCredentials) {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	if err != nil {
		return nil, h.internal(err, "login")
	}
	return reply(map[string]any{
		"token":      sess.Token,
		"username":   sess.Username,
		"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// RequireAuthenticated only runs once the auth interceptor admitted the call.
func (h *Handler) RequireAuthenticated(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, ok := middleware.SessionFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "not authenticated")
	}
	return reply(map[string]any{
		"authenticated": true,
		"username":      sess.Username,
	})
}

package handler

import (
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"appointment-booking/internal/booking"
	"appointment-booking/internal/session"
	"appointment-booking/internal/store"
)

type Handler struct {
	sessions *session.Manager
	engine   *booking.Engine
	log      zerolog.Logger
}

var _ BookingServer = (*Handler)(nil)

func New(sessions *session.Manager, engine *booking.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		engine:   engine,
		log:      log.With().Str("component", "handler").Logger(),
	}
}

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// internal logs err and hides it from the caller. Store outages surface
// as Unavailable so clients can tell them apart from bugs.
func (h *Handler) internal(err error, op string) error {
	if errors.Is(err, store.ErrUnavailable) {
		h.log.Error().Err(err).Str("op", op).Msg("store unavailable")
		return status.Error(codes.Unavailable, "storage unavailable")
	}
	h.log.Error().Err(err).Str("op", op).Msg("internal error")
	return status.Error(codes.Internal, "internal error")
}

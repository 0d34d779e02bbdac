package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (h *Handler) ListDoctors(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	docs := h.engine.Catalog().ListDoctors()
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = map[string]any{"name": d.Name, "specialty": d.Specialty}
	}
	return reply(map[string]any{"doctors": out})
}

func (h *Handler) IsBookableDate(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	date := str(req, "date")
	if date == "" {
		return nil, status.Error(codes.InvalidArgument, "date required")
	}
	return reply(map[string]any{"bookable": h.engine.Catalog().IsBookableDate(date)})
}

func (h *Handler) ListTimeSlots(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	slots := h.engine.Catalog().ListTimeSlots()
	out := make([]any, len(slots))
	for i, s := range slots {
		out[i] = s
	}
	return reply(map[string]any{"slots": out})
}

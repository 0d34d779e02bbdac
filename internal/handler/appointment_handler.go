package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"appointment-booking/internal/booking"
	"appointment-booking/internal/middleware"
	"appointment-booking/internal/model"
)

func (h *Handler) BookSlot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, ok := middleware.SessionFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "not authenticated")
	}

	slot := model.Slot{
		Doctor: str(req, "doctor"),
		Date:   str(req, "date"),
		Time:   str(req, "time"),
	}
	appt, err := h.engine.BookSlot(ctx, &sess, slot)
	if err != nil {
		return nil, h.bookingError(err, "book_slot")
	}
	return toStruct(appt)
}

func (h *Handler) GetAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, ok := middleware.SessionFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "not authenticated")
	}

	doctor, date := str(req, "doctor"), str(req, "date")
	if doctor == "" || date == "" {
		return nil, status.Error(codes.InvalidArgument, "doctor and date required")
	}
	appt, err := h.engine.Appointment(ctx, &sess, doctor, date)
	if errors.Is(err, booking.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "not found")
	}
	if err != nil {
		return nil, h.bookingError(err, "get_appointment")
	}
	return toStruct(appt)
}

func (h *Handler) bookingError(err error, op string) error {
	var ab *booking.AlreadyBookedError
	switch {
	case errors.As(err, &ab):
		return alreadyBooked(ab.Existing)
	case errors.Is(err, booking.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "not authenticated")
	case errors.Is(err, booking.ErrInvalidDate):
		return status.Error(codes.InvalidArgument, "date not bookable")
	case errors.Is(err, booking.ErrInvalidTime):
		return status.Error(codes.InvalidArgument, "time slot not offered")
	case errors.Is(err, booking.ErrUnknownDoctor):
		return status.Error(codes.InvalidArgument, "unknown doctor")
	}
	return h.internal(err, op)
}

// alreadyBooked carries the existing appointment as a Struct detail so the
// client can show the time it already holds.
func alreadyBooked(existing model.Appointment) error {
	st := status.New(codes.AlreadyExists, "already booked at "+existing.Time)
	detail, err := structpb.NewStruct(map[string]any{
		"doctor": existing.Doctor,
		"date":   existing.Date,
		"time":   existing.Time,
	})
	if err != nil {
		return st.Err()
	}
	if withDetail, err := st.WithDetails(detail); err == nil {
		st = withDetail
	}
	return st.Err()
}

// ExistingTime extracts the held time from an AlreadyExists status.
func ExistingTime(err error) string {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.AlreadyExists {
		return ""
	}
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			return s.GetFields()["time"].GetStringValue()
		}
	}
	return ""
}

func toStruct(a *model.Appointment) (*structpb.Struct, error) {
	return reply(map[string]any{
		"username": a.Username,
		"doctor":   a.Doctor,
		"date":     a.Date,
		"time":     a.Time,
	})
}

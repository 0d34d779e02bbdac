// Package booking turns a (session, doctor, date, time) choice into a
// durable appointment. A key (user, doctor, date) holds at most one time,
// ever: later attempts are rejected, never overwritten.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"appointment-booking/internal/catalog"
	"appointment-booking/internal/metrics"
	"appointment-booking/internal/model"
	"appointment-booking/internal/store"
)

var tracer = otel.Tracer("appointment-booking/internal/booking")

type Engine struct {
	store   store.Store
	catalog *catalog.Catalog
	locks   *keyLocks
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewEngine(st store.Store, cat *catalog.Catalog, m *metrics.Metrics, log zerolog.Logger) *Engine {
	if st == nil {
		panic("booking: store required")
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &Engine{
		store:   st,
		catalog: cat,
		locks:   newKeyLocks(),
		metrics: m,
		log:     log.With().Str("component", "booking").Logger(),
	}
}

// BookSlot validates the slot and commits it if the key is free. The read
// and the write happen under a per-key lock, and the write itself is
// write-if-absent so other processes sharing the store cannot overwrite.
func (e *Engine) BookSlot(ctx context.Context, sess *model.Session, slot model.Slot) (appt *model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "booking.book_slot")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.doctor", slot.Doctor),
		attribute.String("booking.date", slot.Date),
		attribute.String("booking.time", slot.Time),
	)

	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		doctor := slot.Doctor
		if _, ok := e.catalog.Doctor(doctor); !ok {
			doctor = "unknown"
		}
		e.metrics.ObserveBooking(doctor, outcome, time.Since(start).Seconds())
		if err != nil && outcome == "error" {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
	}()

	if !sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !e.catalog.IsBookableDate(slot.Date) {
		return nil, ErrInvalidDate
	}
	if !e.catalog.IsTimeSlot(slot.Time) {
		return nil, ErrInvalidTime
	}
	if _, ok := e.catalog.Doctor(slot.Doctor); !ok {
		return nil, ErrUnknownDoctor
	}

	want := model.Appointment{
		Username: sess.Username,
		Doctor:   slot.Doctor,
		Date:     slot.Date,
		Time:     slot.Time,
	}
	key := want.Key()

	unlock := e.locks.lock(key)
	defer unlock()

	existing, ok, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("book slot: %w", err)
	}
	if ok {
		return nil, e.alreadyBooked(want, existing)
	}

	stored, err := e.store.SetNX(ctx, key, slot.Time)
	if err != nil {
		return nil, fmt.Errorf("book slot: %w", err)
	}
	if !stored {
		// another process committed between our read and write
		existing, ok, err := e.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("book slot: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("book slot: %w: key %q vanished after conflicting write", store.ErrUnavailable, key)
		}
		return nil, e.alreadyBooked(want, existing)
	}

	e.log.Info().
		Str("username", want.Username).
		Str("doctor", want.Doctor).
		Str("date", want.Date).
		Str("time", want.Time).
		Msg("slot booked")
	return &want, nil
}

func (e *Engine) alreadyBooked(want model.Appointment, existingTime string) error {
	want.Time = existingTime
	e.log.Debug().
		Str("username", want.Username).
		Str("doctor", want.Doctor).
		Str("date", want.Date).
		Str("existing_time", existingTime).
		Msg("slot already booked")
	return &AlreadyBookedError{Existing: want}
}

// Appointment reads the booking held for (session user, doctor, date).
func (e *Engine) Appointment(ctx context.Context, sess *model.Session, doctor, date string) (*model.Appointment, error) {
	if !sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !e.catalog.IsBookableDate(date) {
		return nil, ErrInvalidDate
	}
	if _, ok := e.catalog.Doctor(doctor); !ok {
		return nil, ErrUnknownDoctor
	}
	key := model.AppointmentKey(sess.Username, doctor, date)
	t, ok, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &model.Appointment{Username: sess.Username, Doctor: doctor, Date: date, Time: t}, nil
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

func outcomeOf(err error) string {
	var ab *AlreadyBookedError
	switch {
	case err == nil:
		return "booked"
	case errors.As(err, &ab):
		return "already_booked"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidTime):
		return "invalid_time"
	case errors.Is(err, ErrUnknownDoctor):
		return "unknown_doctor"
	default:
		return "error"
	}
}

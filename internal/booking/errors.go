package booking

import (
	"errors"
	"fmt"

	"appointment-booking/internal/model"
	"appointment-booking/internal/session"
)

var (
	// ErrUnauthenticated is the session gate's error so callers can match
	// either package's sentinel.
	ErrUnauthenticated = session.ErrUnauthenticated
	ErrInvalidDate     = errors.New("date is not bookable")
	ErrInvalidTime     = errors.New("time is not an offered slot")
	ErrUnknownDoctor   = errors.New("doctor is not in the catalog")
	ErrNotFound        = errors.New("appointment not found")
)

// AlreadyBookedError reports the appointment that already holds the key.
type AlreadyBookedError struct {
	Existing model.Appointment
}

func (e *AlreadyBookedError) Error() string {
	return fmt.Sprintf("already booked with %s on %s at %s",
		e.Existing.Doctor, e.Existing.Date, e.Existing.Time)
}

// ExistingTime returns the time held by the existing booking, or "" if err
// is not an AlreadyBookedError.
func ExistingTime(err error) string {
	var ab *AlreadyBookedError
	if errors.As(err, &ab) {
		return ab.Existing.Time
	}
	return ""
}

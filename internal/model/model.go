package model

import "time"

// Identity is a registered account. Password holds whatever the identity
// layout persists (a bcrypt hash for keyed identities, plaintext for legacy).
type Identity struct {
	Username string
	Password string
}

// Session is derived from a verified token and is never stored.
type Session struct {
	Token     string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Username != ""
}

type Doctor struct {
	Name      string
	Specialty string
}

// Slot is a candidate booking offered to the user.
type Slot struct {
	Doctor string
	Date   string
	Time   string
}

type Appointment struct {
	Username string
	Doctor   string
	Date     string
	Time     string
}

// Key is the composite store key of the appointment.
func (a Appointment) Key() string {
	return AppointmentKey(a.Username, a.Doctor, a.Date)
}

func AppointmentKey(username, doctor, date string) string {
	return username + "-" + doctor + "-" + date
}

// Package catalog is the read-only reference data: doctors, bookable dates
// and time slots. Nothing here touches the store.
package catalog

import (
	"slices"

	"appointment-booking/internal/model"
)

type Catalog struct {
	doctors []model.Doctor
	dates   []string
	slots   []string
}

// Default returns the fixed catalog the clinic publishes.
func Default() *Catalog {
	return New(
		[]model.Doctor{
			{Name: "Roberto", Specialty: "Psicólogo"},
			{Name: "Monica", Specialty: "Psicólogo"},
			{Name: "Nathan", Specialty: "Psicólogo"},
		},
		[]string{"2024-06-12", "2024-06-13", "2024-06-14", "2024-06-15", "2024-06-16"},
		[]string{"14h", "15h", "16h"},
	)
}

func New(doctors []model.Doctor, dates, slots []string) *Catalog {
	return &Catalog{
		doctors: slices.Clone(doctors),
		dates:   slices.Clone(dates),
		slots:   slices.Clone(slots),
	}
}

func (c *Catalog) ListDoctors() []model.Doctor {
	return slices.Clone(c.doctors)
}

func (c *Catalog) Doctor(name string) (model.Doctor, bool) {
	i := slices.IndexFunc(c.doctors, func(d model.Doctor) bool { return d.Name == name })
	if i < 0 {
		return model.Doctor{}, false
	}
	return c.doctors[i], true
}

// IsBookableDate expects YYYY-MM-DD.
func (c *Catalog) IsBookableDate(date string) bool {
	return slices.Contains(c.dates, date)
}

func (c *Catalog) BookableDates() []string {
	return slices.Clone(c.dates)
}

// ListTimeSlots is the same for every doctor and date.
func (c *Catalog) ListTimeSlots() []string {
	return slices.Clone(c.slots)
}

func (c *Catalog) IsTimeSlot(t string) bool {
	return slices.Contains(c.slots, t)
}

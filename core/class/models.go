package class

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted:
		return true
	}
	return false
}

type Class struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Subject   string    `json:"subject" db:"subject"`
	Teacher   string    `json:"teacher" db:"teacher"`
	Time      string    `json:"time" db:"time"`
	StartDate core.Date `json:"start_date" db:"start_date"`
	EndDate   core.Date `json:"end_date" db:"end_date"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Expired reports whether the class ended on or before today.
func (c Class) Expired(today core.Date) bool {
	return !c.EndDate.IsZero() && !c.EndDate.After(today)
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name      string `json:"name" validate:"required,notblank"`
	Subject   string `json:"subject" validate:"required,notblank"`
	Teacher   string `json:"teacher" validate:"required,notblank"`
	Time      string `json:"time"`
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"omitempty,isodate"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Teacher = core.CleanString(nc.Teacher)
	nc.Time = core.CleanString(nc.Time)
	nc.StartDate = core.CleanString(nc.StartDate)
	nc.EndDate = core.CleanString(nc.EndDate)

	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return checkDates(nc.StartDate, nc.EndDate)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name      string  `json:"name"`
	Subject   string  `json:"subject"`
	Teacher   string  `json:"teacher"`
	Time      *string `json:"time"`
	StartDate string  `json:"start_date" validate:"omitempty,isodate"`
	// EndDate is checked by Validate: an empty string clears it.
	EndDate *string `json:"end_date"`
}

func (uc *UpdateClass) Validate(orig Class) error {
	uc.Name = cleanOr(uc.Name, orig.Name)
	uc.Subject = cleanOr(uc.Subject, orig.Subject)
	uc.Teacher = cleanOr(uc.Teacher, orig.Teacher)
	uc.StartDate = cleanOr(uc.StartDate, orig.StartDate.String())
	if uc.EndDate != nil {
		end := core.CleanString(*uc.EndDate)
		uc.EndDate = &end
	} else {
		end := orig.EndDate.String()
		uc.EndDate = &end
	}

	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	if _, err := core.ParseDateValue(*uc.EndDate); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "date must be formatted as YYYY-MM-DD"})
	}
	return checkDates(uc.StartDate, *uc.EndDate)
}

func cleanOr(s, orig string) string {
	if s = core.CleanString(s); s != "" {
		return s
	}
	return orig
}

func checkDates(start, end string) error {
	if end == "" {
		return nil
	}
	startDate, _ := core.ParseDateValue(start)
	endDate, _ := core.ParseDateValue(end)
	if endDate.Before(startDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date cannot be before start date"})
	}
	return nil
}

type QueryFilter struct {
	Status Status   `query:"status"`
	IDs    []string `query:"-"`
}

package attendance

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// Record is the attendance of one student, in one class, on one day.
type Record struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	ClassID   string    `json:"class_id" db:"class_id"`
	Date      core.Date `json:"date" db:"date"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Key identifies a Record; there is at most one Record per Key.
type Key struct {
	StudentID string
	ClassID   string
	Date      core.Date
}

func (r Record) Key() Key {
	return Key{StudentID: r.StudentID, ClassID: r.ClassID, Date: r.Date}
}

type ClassDate struct {
	ClassID string
	Date    core.Date
}

type Input struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Date      string `json:"date" validate:"required,isodate"`
	Status    Status `json:"status" validate:"required,attendance_status"`
}

type BulkInput struct {
	Records []Input `json:"records" validate:"required,min=1,dive"`
}

func (bi *BulkInput) Validate() error {
	for i := range bi.Records {
		in := &bi.Records[i]
		in.StudentID = core.CleanString(in.StudentID)
		in.ClassID = core.CleanString(in.ClassID)
		in.Date = core.CleanString(in.Date)
		in.Status = Status(core.CleanString(string(in.Status), true /* lower */))
	}
	return core.Validate.Struct(bi)
}

type UpdateRecord struct {
	Status Status `json:"status" validate:"required,attendance_status"`
}

func (ur *UpdateRecord) Validate() error {
	ur.Status = Status(core.CleanString(string(ur.Status), true /* lower */))
	return core.Validate.Struct(ur)
}

type QueryFilter struct {
	ClassID   string `query:"class_id"`
	StudentID string `query:"student_id"`
	Date      string `query:"date" validate:"omitempty,isodate"`
	From      string `query:"from" validate:"omitempty,isodate"`
	To        string `query:"to" validate:"omitempty,isodate"`
}

func (qf *QueryFilter) Validate() error {
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Date = core.CleanString(qf.Date)
	qf.From = core.CleanString(qf.From)
	qf.To = core.CleanString(qf.To)
	return core.Validate.Struct(qf)
}

// Filter returns the repository Filter of a validated QueryFilter.
func (qf QueryFilter) Filter() Filter {
	f := Filter{ClassID: qf.ClassID, StudentID: qf.StudentID}
	if qf.Date != "" {
		f.From, _ = core.ParseDateValue(qf.Date)
		f.To = f.From
		return f
	}
	f.From, _ = core.ParseDateValue(qf.From)
	f.To, _ = core.ParseDateValue(qf.To)
	return f
}

// Filter selects Records with equality on set IDs, within the inclusive [From, To] range.
// Zero bounds are open.
type Filter struct {
	ClassID   string
	StudentID string
	From      core.Date
	To        core.Date
}

func (f Filter) Match(r Record) bool {
	if f.ClassID != "" && r.ClassID != f.ClassID {
		return false
	}
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To) {
		return false
	}
	return true
}

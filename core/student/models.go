package student

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	}
	return false
}

type Student struct {
	ID         string      `json:"id" db:"id"`
	Name       string      `json:"name" db:"name"`
	StudentID  string      `json:"student_id" db:"student_id"` // school-issued
	Email      string      `json:"email" db:"email"`
	Avatar     null.String `json:"avatar" db:"avatar"`
	ClassID    string      `json:"class_id" db:"class_id"`
	FatherName string      `json:"father_name" db:"father_name"`
	Gender     Gender      `json:"gender" db:"gender"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	Name       string `json:"name" validate:"required,notblank"`
	StudentID  string `json:"student_id" validate:"required,notblank"`
	Email      string `json:"email" validate:"omitempty,email"`
	Avatar     string `json:"avatar" validate:"omitempty,url"`
	ClassID    string `json:"class_id" validate:"required"`
	FatherName string `json:"father_name"`
	Gender     Gender `json:"gender" validate:"required,gender"`
}

func (ns *NewStudent) Validate(svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Avatar = core.CleanString(ns.Avatar)
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.FatherName = core.CleanString(ns.FatherName)
	ns.Gender = Gender(core.CleanString(string(ns.Gender), true /* lower */))

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.StudentID)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name       string  `json:"name"`
	StudentID  string  `json:"student_id"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Avatar     *string `json:"avatar" validate:"omitempty,url"`
	ClassID    string  `json:"class_id"`
	FatherName *string `json:"father_name"`
	Gender     Gender  `json:"gender" validate:"omitempty,gender"`
}

func (us *UpdateStudent) Validate(orig Student, svc Service) error {
	us.Name = cleanOr(us.Name, orig.Name)
	us.StudentID = cleanOr(us.StudentID, orig.StudentID)
	us.ClassID = cleanOr(us.ClassID, orig.ClassID)
	us.Gender = Gender(core.CleanString(string(us.Gender), true /* lower */))
	if us.Gender == "" {
		us.Gender = orig.Gender
	}
	us.Email = cleanPtr(us.Email, true)
	us.Avatar = cleanPtr(us.Avatar, false)
	us.FatherName = cleanPtr(us.FatherName, false)

	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckUniqueness(us.StudentID, orig)
}

func cleanOr(s, orig string) string {
	if s = core.CleanString(s); s != "" {
		return s
	}
	return orig
}

func cleanPtr(s *string, lower bool) *string {
	if s == nil {
		return nil
	}
	v := core.CleanString(*s, lower)
	return &v
}

type QueryFilter struct {
	ClassID string   `query:"class_id"`
	Search  string   `query:"search"`
	IDs     []string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.Search = core.CleanString(qf.Search)
}

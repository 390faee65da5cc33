package fee

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
)

type Fee struct {
	ID          string    `json:"id" db:"id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	ClassID     string    `json:"class_id" db:"class_id"`
	FeeToBePaid float64   `json:"fee_to_be_paid" db:"fee_to_be_paid"`
	FeePaid     float64   `json:"fee_paid" db:"fee_paid"`
	FeeUnpaid   float64   `json:"fee_unpaid" db:"fee_unpaid"`
	PaymentDate core.Date `json:"payment_date" db:"payment_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Unpaid is what remains of toBePaid once paid is deduced, rounded to cents.
func Unpaid(toBePaid, paid float64) float64 {
	return core.Round(toBePaid-paid, 2)
}

// NewFee contains information needed to record a new Fee.
// FeeUnpaid is derived from the other amounts when omitted; PaymentDate defaults to today.
type NewFee struct {
	StudentID   string   `json:"student_id" validate:"required"`
	ClassID     string   `json:"class_id" validate:"required"`
	FeeToBePaid *float64 `json:"fee_to_be_paid" validate:"required,gte=0"`
	FeePaid     *float64 `json:"fee_paid" validate:"omitempty,gte=0"`
	FeeUnpaid   *float64 `json:"fee_unpaid" validate:"omitempty,gte=0"`
	PaymentDate string   `json:"payment_date" validate:"omitempty,isodate"`
}

func (nf *NewFee) Validate() error {
	nf.StudentID = core.CleanString(nf.StudentID)
	nf.ClassID = core.CleanString(nf.ClassID)
	nf.PaymentDate = core.CleanString(nf.PaymentDate)
	return core.Validate.Struct(nf)
}

func (nf NewFee) amounts() (toBePaid, paid, unpaid float64) {
	toBePaid = core.Round(*nf.FeeToBePaid, 2)
	if nf.FeePaid != nil {
		paid = core.Round(*nf.FeePaid, 2)
	}
	if nf.FeeUnpaid != nil {
		unpaid = core.Round(*nf.FeeUnpaid, 2)
	} else {
		unpaid = Unpaid(toBePaid, paid)
	}
	return
}

// UpdateFee defines what information may be provided to modify an existing Fee.
// Without FeeUnpaid, it is derived again whenever an amount changes.
type UpdateFee struct {
	FeeToBePaid *float64 `json:"fee_to_be_paid" validate:"omitempty,gte=0"`
	FeePaid     *float64 `json:"fee_paid" validate:"omitempty,gte=0"`
	FeeUnpaid   *float64 `json:"fee_unpaid" validate:"omitempty,gte=0"`
	PaymentDate *string  `json:"payment_date" validate:"omitempty,notblank,isodate"` // cannot be cleared
}

func (uf *UpdateFee) Validate() error {
	if uf.PaymentDate != nil {
		d := core.CleanString(*uf.PaymentDate)
		uf.PaymentDate = &d
	}
	return core.Validate.Struct(uf)
}

func (uf UpdateFee) Apply(f Fee) Fee {
	if uf.FeeToBePaid != nil {
		f.FeeToBePaid = core.Round(*uf.FeeToBePaid, 2)
	}
	if uf.FeePaid != nil {
		f.FeePaid = core.Round(*uf.FeePaid, 2)
	}
	if uf.FeeUnpaid != nil {
		f.FeeUnpaid = core.Round(*uf.FeeUnpaid, 2)
	} else if uf.FeeToBePaid != nil || uf.FeePaid != nil {
		f.FeeUnpaid = Unpaid(f.FeeToBePaid, f.FeePaid)
	}
	if uf.PaymentDate != nil {
		f.PaymentDate, _ = core.ParseDateValue(*uf.PaymentDate)
	}
	return f
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	ClassID   string `query:"class_id"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.ClassID = core.CleanString(qf.ClassID)
}

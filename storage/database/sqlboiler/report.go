// Package boiledrepos holds the read models queried through sqlboiler.
package boiledrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

const reportQuery = `SELECT
	a.id, a.student_id, a.class_id, a.date, a.status, a.created_at, a.updated_at,
	s.id AS s_id, s.name AS s_name, s.student_id AS s_student_id, s.email AS s_email, s.avatar AS s_avatar,
	s.class_id AS s_class_id, s.father_name AS s_father_name, s.gender AS s_gender,
	s.created_at AS s_created_at, s.updated_at AS s_updated_at,
	c.id AS c_id, c.name AS c_name, c.subject AS c_subject, c.teacher AS c_teacher, c.time AS c_time,
	c.start_date AS c_start_date, c.end_date AS c_end_date, c.status AS c_status,
	c.created_at AS c_created_at, c.updated_at AS c_updated_at
FROM attendance a
LEFT JOIN student s ON s.id = a.student_id
LEFT JOIN class c ON c.id = a.class_id`

// reportRow is one attendance row with its (possibly deleted) student & class.
type reportRow struct {
	ID        string    `boil:"id"`
	StudentID string    `boil:"student_id"`
	ClassID   string    `boil:"class_id"`
	Date      time.Time `boil:"date"`
	Status    string    `boil:"status"`
	CreatedAt time.Time `boil:"created_at"`
	UpdatedAt time.Time `boil:"updated_at"`

	SID         null.String `boil:"s_id"`
	SName       null.String `boil:"s_name"`
	SStudentID  null.String `boil:"s_student_id"`
	SEmail      null.String `boil:"s_email"`
	SAvatar     null.String `boil:"s_avatar"`
	SClassID    null.String `boil:"s_class_id"`
	SFatherName null.String `boil:"s_father_name"`
	SGender     null.String `boil:"s_gender"`
	SCreatedAt  null.Time   `boil:"s_created_at"`
	SUpdatedAt  null.Time   `boil:"s_updated_at"`

	CID        null.String `boil:"c_id"`
	CName      null.String `boil:"c_name"`
	CSubject   null.String `boil:"c_subject"`
	CTeacher   null.String `boil:"c_teacher"`
	CTime      null.String `boil:"c_time"`
	CStartDate null.Time   `boil:"c_start_date"`
	CEndDate   null.Time   `boil:"c_end_date"`
	CStatus    null.String `boil:"c_status"`
	CCreatedAt null.Time   `boil:"c_created_at"`
	CUpdatedAt null.Time   `boil:"c_updated_at"`
}

func (r reportRow) unboil() attendance.ReportRecord {
	rr := attendance.ReportRecord{
		Record: attendance.Record{
			ID:        r.ID,
			StudentID: r.StudentID,
			ClassID:   r.ClassID,
			Date:      core.NewDate(r.Date),
			Status:    attendance.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
	}
	if r.SID.Valid {
		rr.Student = &student.Student{
			ID:         r.SID.String,
			Name:       r.SName.String,
			StudentID:  r.SStudentID.String,
			Email:      r.SEmail.String,
			Avatar:     r.SAvatar,
			ClassID:    r.SClassID.String,
			FatherName: r.SFatherName.String,
			Gender:     student.Gender(r.SGender.String),
			CreatedAt:  r.SCreatedAt.Time,
			UpdatedAt:  r.SUpdatedAt.Time,
		}
	}
	if r.CID.Valid {
		cls := &class.Class{
			ID:        r.CID.String,
			Name:      r.CName.String,
			Subject:   r.CSubject.String,
			Teacher:   r.CTeacher.String,
			Time:      r.CTime.String,
			StartDate: core.NewDate(r.CStartDate.Time),
			Status:    class.Status(r.CStatus.String),
			CreatedAt: r.CCreatedAt.Time,
			UpdatedAt: r.CUpdatedAt.Time,
		}
		if r.CEndDate.Valid {
			cls.EndDate = core.NewDate(r.CEndDate.Time)
		}
		rr.Class = cls
	}
	return rr
}

type reportRepository struct {
	exec boil.ContextExecutor
}

var _ attendance.ReportRepository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec boil.ContextExecutor) attendance.ReportRepository {
	return &reportRepository{exec: exec}
}

func (repo *reportRepository) QueryReportRecords(ctx context.Context, filter attendance.Filter) ([]attendance.ReportRecord, error) {
	var conds []string
	var args []interface{}
	bind := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.ClassID != "" {
		if _, err := uuid.Parse(filter.ClassID); err != nil {
			return make([]attendance.ReportRecord, 0), nil
		}
		bind("a.class_id = ?", filter.ClassID)
	}
	if filter.StudentID != "" {
		if _, err := uuid.Parse(filter.StudentID); err != nil {
			return make([]attendance.ReportRecord, 0), nil
		}
		bind("a.student_id = ?", filter.StudentID)
	}
	if !filter.From.IsZero() {
		bind("a.date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		bind("a.date <= ?", filter.To)
	}

	q := reportQuery
	if len(conds) > 0 {
		q += "\nWHERE " + strings.Join(conds, " AND ")
	}
	q += "\nORDER BY a.date ASC, a.created_at ASC"

	var rows []reportRow
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying report records")
	}

	records := make([]attendance.ReportRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.unboil())
	}
	return records, nil
}

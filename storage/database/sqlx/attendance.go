package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
)

const (
	attendanceColumns = `id, student_id, class_id, date, status, created_at, updated_at`
	upsertAttendance  = `INSERT INTO attendance (` + attendanceColumns + `)
		VALUES (:id, :student_id, :class_id, :date, :status, :created_at, :updated_at)
		ON CONFLICT (student_id, class_id, date) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + attendanceColumns
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) AttendanceExists(ctx context.Context, pairs []attendance.ClassDate) (bool, error) {
	conds := make([]string, 0, len(pairs))
	args := make([]interface{}, 0, 2*len(pairs))
	for _, p := range pairs {
		if !validID(p.ClassID) {
			continue
		}
		conds = append(conds, "(class_id = ? AND date = ?)")
		args = append(args, p.ClassID, p.Date)
	}
	if len(conds) == 0 {
		return false, nil
	}

	w := new(where)
	w.add("("+strings.Join(conds, " OR ")+")", args...)
	var found []bool
	if err := selectWhere(ctx, repo.db, &found, `SELECT true FROM attendance`, w, " LIMIT 1"); err != nil {
		return false, errors.Wrap(err, "checking attendance existence")
	}
	return len(found) > 0, nil
}

func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, records []attendance.Record) ([]attendance.Record, error) {
	saved := make([]attendance.Record, 0, len(records))
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, upsertAttendance)
		if err != nil {
			return errors.Wrap(err, "preparing attendance upsert")
		}
		defer func() { _ = stmt.Close() }()

		for _, rec := range records {
			rec.ID = uuid.New().String()
			var row attendance.Record
			if err = stmt.GetContext(ctx, &row, rec); err != nil {
				return errors.Wrap(err, "upserting attendance")
			}
			saved = append(saved, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func attendanceWhere(filter attendance.Filter) (*where, bool) {
	w := new(where)
	if filter.ClassID != "" {
		if !validID(filter.ClassID) {
			return nil, false
		}
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.StudentID != "" {
		if !validID(filter.StudentID) {
			return nil, false
		}
		w.add("student_id = ?", filter.StudentID)
	}
	if !filter.From.IsZero() {
		w.add("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		w.add("date <= ?", filter.To)
	}
	return w, true
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	records := make([]attendance.Record, 0)
	w, ok := attendanceWhere(filter)
	if !ok {
		return records, nil
	}
	err := selectWhere(ctx, repo.db, &records, `SELECT `+attendanceColumns+` FROM attendance`, w, " ORDER BY date ASC, created_at ASC")
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, id string) (attendance.Record, error) {
	if !validID(id) {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var rec attendance.Record
	if err := repo.db.GetContext(ctx, &rec, `SELECT `+attendanceColumns+` FROM attendance WHERE id = $1`, id); err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance")
	}
	return rec, nil
}

func (repo *attendanceRepository) UpdateAttendance(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	if !validID(rec.ID) {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var row attendance.Record
	err := repo.db.GetContext(ctx, &row, `UPDATE attendance SET status = $1, updated_at = $2 WHERE id = $3
		RETURNING `+attendanceColumns, rec.Status, rec.UpdatedAt, rec.ID)
	if err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "updating attendance")
	}
	return row, nil
}

func (repo *attendanceRepository) DeleteAttendance(ctx context.Context, id string) error {
	if !validID(id) {
		return attendance.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	if rowsAffected(res) == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type AttendanceRepository struct {
	db *DB
}

var (
	_ attendance.Repository       = (*AttendanceRepository)(nil)
	_ attendance.ReportRepository = (*AttendanceRepository)(nil)
)

// NewAttendanceRepository returns a repository that also serves the joined report read model.
func NewAttendanceRepository(db *DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (repo *AttendanceRepository) AttendanceExists(_ context.Context, pairs []attendance.ClassDate) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, rec := range repo.db.attendance {
		for _, p := range pairs {
			if rec.ClassID == p.ClassID && rec.Date.Equal(p.Date) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (repo *AttendanceRepository) UpsertAttendance(_ context.Context, records []attendance.Record) ([]attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	index := make(map[attendance.Key]*attendance.Record, len(repo.db.attendance))
	for _, rec := range repo.db.attendance {
		index[rec.Key()] = rec
	}

	saved := make([]attendance.Record, 0, len(records))
	for _, rec := range records {
		if existing, ok := index[rec.Key()]; ok {
			existing.Status = rec.Status
			existing.UpdatedAt = rec.UpdatedAt
			saved = append(saved, *existing)
			continue
		}
		rec := rec
		rec.ID = uuid.New().String()
		repo.db.attendance = append(repo.db.attendance, &rec)
		index[rec.Key()] = &rec
		saved = append(saved, rec)
	}
	return saved, nil
}

func (repo *AttendanceRepository) query(filter attendance.Filter) []attendance.Record {
	records := make([]attendance.Record, 0)
	for _, rec := range repo.db.attendance {
		if filter.Match(*rec) {
			records = append(records, *rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records
}

func (repo *AttendanceRepository) QueryAttendance(_ context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(filter), nil
}

func (repo *AttendanceRepository) find(id string) *attendance.Record {
	for _, rec := range repo.db.attendance {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (repo *AttendanceRepository) GetAttendance(_ context.Context, id string) (attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec := repo.find(id); rec != nil {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *AttendanceRepository) UpdateAttendance(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig := repo.find(rec.ID)
	if orig == nil {
		return attendance.Record{}, attendance.ErrNotFound
	}
	orig.Status = rec.Status
	orig.UpdatedAt = rec.UpdatedAt
	return *orig, nil
}

func (repo *AttendanceRepository) DeleteAttendance(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i, rec := range repo.db.attendance {
		if rec.ID == id {
			repo.db.attendance = append(repo.db.attendance[:i], repo.db.attendance[i+1:]...)
			return nil
		}
	}
	return attendance.ErrNotFound
}

func (repo *AttendanceRepository) QueryReportRecords(_ context.Context, filter attendance.Filter) ([]attendance.ReportRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := repo.query(filter)
	res := make([]attendance.ReportRecord, 0, len(records))
	for _, rec := range records {
		rr := attendance.ReportRecord{Record: rec}
		if std := repo.db.findStudent(rec.StudentID); std != nil {
			s := *std
			rr.Student = &s
		}
		if cls := repo.db.findClass(rec.ClassID); cls != nil {
			c := *cls
			rr.Class = &c
		}
		res = append(res, rr)
	}
	return res, nil
}

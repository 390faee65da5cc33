package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

var (
	ErrNotFound = core.NewNotFoundError("attendance record")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// AttendanceExists reports whether any Record exists for one of the pairs.
		AttendanceExists(ctx context.Context, pairs []ClassDate) (bool, error)
		// UpsertAttendance inserts or overwrites (by Key) every record in a single transaction.
		UpsertAttendance(ctx context.Context, records []Record) ([]Record, error)
		// QueryAttendance returns Records ordered by date, then insertion.
		QueryAttendance(ctx context.Context, filter Filter) ([]Record, error)
		GetAttendance(ctx context.Context, id string) (Record, error)
		UpdateAttendance(ctx context.Context, rec Record) (Record, error)
		DeleteAttendance(ctx context.Context, id string) error
	}

	// ReportRepository is the read model behind reports.
	ReportRepository interface {
		// QueryReportRecords returns the Records matching filter, joined with their student & class.
		QueryReportRecords(ctx context.Context, filter Filter) ([]ReportRecord, error)
	}

	Service interface {
		BulkUpsert(ctx context.Context, actor user.User, bi BulkInput) ([]Record, error)
		Query(ctx context.Context, filter Filter) ([]Record, error)
		GetByID(ctx context.Context, id string) (Record, error)
		Update(ctx context.Context, actor user.User, rec Record, ur UpdateRecord) (Record, error)
		Delete(ctx context.Context, actor user.User, id string) error
		GenerateReport(ctx context.Context, rq ReportQuery) (Report, error)
	}

	service struct {
		repo        Repository
		reportRepo  ReportRepository
		classRepo   class.Repository
		studentRepo student.Repository
		emitter     notification.Emitter
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	reportRepo ReportRepository,
	classRepo class.Repository,
	studentRepo student.Repository,
	emitter notification.Emitter,
) Service {
	return &service{
		repo:        repo,
		reportRepo:  reportRepo,
		classRepo:   classRepo,
		studentRepo: studentRepo,
		emitter:     emitter,
	}
}

// checkReferences makes sure every student & class of the batch exists.
func (svc *service) checkReferences(ctx context.Context, inputs []Input) (map[string]class.Class, error) {
	classIDs, studentIDs := make([]string, 0), make([]string, 0)
	seenCls, seenStd := make(map[string]bool), make(map[string]bool)
	for _, in := range inputs {
		if !seenCls[in.ClassID] {
			seenCls[in.ClassID] = true
			classIDs = append(classIDs, in.ClassID)
		}
		if !seenStd[in.StudentID] {
			seenStd[in.StudentID] = true
			studentIDs = append(studentIDs, in.StudentID)
		}
	}

	classes, err := svc.classRepo.QueryClasses(ctx, &class.QueryFilter{IDs: classIDs}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	clsMap := make(map[string]class.Class, len(classes))
	for _, c := range classes {
		clsMap[c.ID] = c
	}
	for _, id := range classIDs {
		if _, ok := clsMap[id]; !ok {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: fmt.Sprintf("class %q not found", id)})
		}
	}

	students, err := svc.studentRepo.QueryStudents(ctx, &student.QueryFilter{IDs: studentIDs}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	found := make(map[string]bool, len(students))
	for _, s := range students {
		found[s.ID] = true
	}
	for _, id := range studentIDs {
		if !found[id] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: fmt.Sprintf("student %q not found", id)})
		}
	}
	return clsMap, nil
}

// BulkUpsert writes a whole batch or nothing. Within a batch, the last entry of a Key wins.
// The batch reads as "taken" only when none of its (class, date) pairs had attendance yet.
func (svc *service) BulkUpsert(ctx context.Context, actor user.User, bi BulkInput) ([]Record, error) {
	if len(bi.Records) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "records", Error: "this field is required"})
	}
	classes, err := svc.checkReferences(ctx, bi.Records)
	if err != nil {
		return nil, err
	}

	now := nowFunc().UTC()
	records := make([]Record, 0, len(bi.Records))
	index := make(map[Key]int, len(bi.Records))
	pairs := make([]ClassDate, 0)
	seenPairs := make(map[ClassDate]bool)
	for _, in := range bi.Records {
		date, _ := core.ParseDateValue(in.Date)
		rec := Record{
			StudentID: in.StudentID,
			ClassID:   in.ClassID,
			Date:      date,
			Status:    in.Status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if i, ok := index[rec.Key()]; ok {
			records[i] = rec
		} else {
			index[rec.Key()] = len(records)
			records = append(records, rec)
		}
		if pair := (ClassDate{ClassID: rec.ClassID, Date: rec.Date}); !seenPairs[pair] {
			seenPairs[pair] = true
			pairs = append(pairs, pair)
		}
	}

	exists, err := svc.repo.AttendanceExists(ctx, pairs)
	if err != nil {
		return nil, errors.Wrap(err, "checking existing attendance")
	}

	saved, err := svc.repo.UpsertAttendance(ctx, records)
	if err != nil {
		return nil, errors.Wrap(err, "upserting attendance")
	}

	first := records[0]
	clsName := classes[first.ClassID].Name
	tmpl := notification.Template{
		Type:       notification.TypeAttendance,
		EntityType: "class",
		EntityID:   first.ClassID,
		ActorName:  actor.Name,
	}
	if exists {
		tmpl.Title = "Attendance updated"
		tmpl.Message = fmt.Sprintf("%s updated attendance for %s on %s.", actor.Name, clsName, first.Date)
		tmpl.Action = notification.ActionUpdated
	} else {
		tmpl.Title = "Attendance taken"
		tmpl.Message = fmt.Sprintf("%s took attendance for %s on %s.", actor.Name, clsName, first.Date)
		tmpl.Action = notification.ActionTaken
	}
	svc.emitter.Emit(ctx, tmpl)
	return saved, nil
}

func (svc *service) Query(ctx context.Context, filter Filter) ([]Record, error) {
	return svc.repo.QueryAttendance(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetAttendance(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, rec Record, ur UpdateRecord) (Record, error) {
	rec.Status = ur.Status
	rec.UpdatedAt = nowFunc().UTC()
	rec, err := svc.repo.UpdateAttendance(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "updating attendance")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Attendance updated",
		Message:    fmt.Sprintf("%s marked a student %s on %s.", actor.Name, rec.Status, rec.Date),
		Type:       notification.TypeAttendance,
		EntityType: "attendance",
		EntityID:   rec.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionUpdated,
	})
	return rec, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	rec, err := svc.repo.GetAttendance(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteAttendance(ctx, id); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Attendance deleted",
		Message:    fmt.Sprintf("%s deleted an attendance record of %s.", actor.Name, rec.Date),
		Type:       notification.TypeAttendance,
		EntityType: "attendance",
		EntityID:   rec.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionDeleted,
	})
	return nil
}

// GenerateReport has no side effects.
func (svc *service) GenerateReport(ctx context.Context, rq ReportQuery) (Report, error) {
	period, err := ResolvePeriod(rq.Type, rq.StartDate, rq.EndDate, nowFunc())
	if err != nil {
		return Report{}, err
	}
	records, err := svc.reportRepo.QueryReportRecords(ctx, Filter{
		ClassID:   rq.ClassID,
		StudentID: rq.StudentID,
		From:      period.StartDate,
		To:        period.EndDate,
	})
	if err != nil {
		return Report{}, errors.Wrap(err, "querying report records")
	}
	return Aggregate(period, records), nil
}

package student

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/user"
)

var (
	ErrNotFound        = core.NewNotFoundError("student")
	ErrStudentIDExists = errors.New("a student with this student ID already exists")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckStudentIDUniqueness(ctx context.Context, studentID string, excludedIDs ...string) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.Name, Student.StudentID or Student.Email.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service interface {
		CheckUniqueness(studentID string, excludedStudents ...Student) error
		Create(ctx context.Context, actor user.User, ns NewStudent) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		Update(ctx context.Context, actor user.User, std Student, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, actor user.User, id string) error
	}

	service struct {
		repo      Repository
		classRepo class.Repository
		emitter   notification.Emitter
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, classRepo class.Repository, emitter notification.Emitter) Service {
	return &service{repo: repo, classRepo: classRepo, emitter: emitter}
}

func (svc *service) CheckUniqueness(studentID string, excludedStudents ...Student) error {
	ids := make([]string, 0, len(excludedStudents))
	for _, s := range excludedStudents {
		ids = append(ids, s.ID)
	}
	if err := svc.repo.CheckStudentIDUniqueness(context.Background(), studentID, ids...); err != nil {
		if err == ErrStudentIDExists {
			return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) checkClass(ctx context.Context, classID string) (class.Class, error) {
	cls, err := svc.classRepo.GetClass(ctx, classID)
	if err != nil {
		if core.IsNotFound(err) {
			return class.Class{}, core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class not found"})
		}
		return class.Class{}, errors.Wrap(err, "finding class")
	}
	return cls, nil
}

func (svc *service) Create(ctx context.Context, actor user.User, ns NewStudent) (Student, error) {
	cls, err := svc.checkClass(ctx, ns.ClassID)
	if err != nil {
		return Student{}, err
	}

	now := nowFunc().UTC()
	std, err := svc.repo.CreateStudent(ctx, Student{
		Name:       ns.Name,
		StudentID:  ns.StudentID,
		Email:      ns.Email,
		Avatar:     null.NewString(ns.Avatar, ns.Avatar != ""),
		ClassID:    cls.ID,
		FatherName: ns.FatherName,
		Gender:     ns.Gender,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Student enrolled",
		Message:    fmt.Sprintf("%s enrolled %s in %s.", actor.Name, std.Name, cls.Name),
		Type:       notification.TypeStudent,
		EntityType: "student",
		EntityID:   std.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionCreated,
	})
	return std, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, std Student, us UpdateStudent) (Student, error) {
	if us.ClassID != std.ClassID {
		if _, err := svc.checkClass(ctx, us.ClassID); err != nil {
			return Student{}, err
		}
	}

	std.Name = us.Name
	std.StudentID = us.StudentID
	std.ClassID = us.ClassID
	std.Gender = us.Gender
	if us.Email != nil {
		std.Email = *us.Email
	}
	if us.Avatar != nil {
		std.Avatar = null.NewString(*us.Avatar, *us.Avatar != "")
	}
	if us.FatherName != nil {
		std.FatherName = *us.FatherName
	}
	std.UpdatedAt = nowFunc().UTC()

	std, err := svc.repo.UpdateStudent(ctx, std)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Student updated",
		Message:    fmt.Sprintf("%s updated %s's record.", actor.Name, std.Name),
		Type:       notification.TypeStudent,
		EntityType: "student",
		EntityID:   std.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionUpdated,
	})
	return std, nil
}

// Delete removes the Student only; their attendance & fee records are kept.
func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteStudent(ctx, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Student removed",
		Message:    fmt.Sprintf("%s removed %s.", actor.Name, std.Name),
		Type:       notification.TypeStudent,
		EntityType: "student",
		EntityID:   std.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionDeleted,
	})
	return nil
}

package class

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/user"
)

var (
	ErrNotFound     = core.NewNotFoundError("class")
	ErrNotCompleted = core.NewValidationError(nil, core.FieldError{Field: "status", Error: "only completed classes can be upgraded"})

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		// QueryClasses returns classes in insertion order unless ordering says otherwise.
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClass(ctx context.Context, id string) error
		// CompleteExpiredClasses marks every active class that ended on or before today as completed.
		CompleteExpiredClasses(ctx context.Context, today core.Date, now time.Time) (int, error)
		// UpgradeClass inserts cls and moves every student of sourceID into it, atomically.
		UpgradeClass(ctx context.Context, sourceID string, cls Class) (Class, int, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, nc NewClass) (Class, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		GetByID(ctx context.Context, id string) (Class, error)
		Update(ctx context.Context, actor user.User, cls Class, uc UpdateClass) (Class, error)
		Delete(ctx context.Context, actor user.User, id string) error
		// CompleteExpired is the completion sweep.
		CompleteExpired(ctx context.Context, now time.Time) (int, error)
		// Upgrade spawns a successor of a completed class and moves its students there.
		Upgrade(ctx context.Context, actor user.User, sourceID string, nc NewClass) (UpgradeResult, error)
	}

	UpgradeResult struct {
		Source        Class `json:"source"`
		Class         Class `json:"class"`
		MovedStudents int   `json:"moved_students"`
	}

	service struct {
		repo    Repository
		emitter notification.Emitter
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, emitter notification.Emitter) Service {
	return &service{repo: repo, emitter: emitter}
}

func (svc *service) build(nc NewClass, status Status) Class {
	now := nowFunc().UTC()
	start, _ := core.ParseDateValue(nc.StartDate)
	end, _ := core.ParseDateValue(nc.EndDate)
	return Class{
		Name:      nc.Name,
		Subject:   nc.Subject,
		Teacher:   nc.Teacher,
		Time:      nc.Time,
		StartDate: start,
		EndDate:   end,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (svc *service) Create(ctx context.Context, actor user.User, nc NewClass) (Class, error) {
	cls := svc.build(nc, StatusActive)
	if cls.Expired(core.NewDate(nowFunc())) {
		cls.Status = StatusCompleted
	}
	cls, err := svc.repo.CreateClass(ctx, cls)
	if err != nil {
		return Class{}, errors.Wrap(err, "creating class")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Class created",
		Message:    fmt.Sprintf("%s created the class %s (%s).", actor.Name, cls.Name, cls.Subject),
		Type:       notification.TypeClass,
		EntityType: "class",
		EntityID:   cls.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionCreated,
	})
	return cls, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, cls Class, uc UpdateClass) (Class, error) {
	cls.Name = uc.Name
	cls.Subject = uc.Subject
	cls.Teacher = uc.Teacher
	if uc.Time != nil {
		cls.Time = core.CleanString(*uc.Time)
	}
	cls.StartDate, _ = core.ParseDateValue(uc.StartDate)
	if uc.EndDate != nil {
		cls.EndDate, _ = core.ParseDateValue(*uc.EndDate)
	}
	cls.UpdatedAt = nowFunc().UTC()

	cls, err := svc.repo.UpdateClass(ctx, cls)
	if err != nil {
		return Class{}, errors.Wrap(err, "updating class")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Class updated",
		Message:    fmt.Sprintf("%s updated the class %s.", actor.Name, cls.Name),
		Type:       notification.TypeClass,
		EntityType: "class",
		EntityID:   cls.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionUpdated,
	})
	return cls, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteClass(ctx, id); err != nil {
		return errors.Wrap(err, "deleting class")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Class deleted",
		Message:    fmt.Sprintf("%s deleted the class %s.", actor.Name, cls.Name),
		Type:       notification.TypeClass,
		EntityType: "class",
		EntityID:   cls.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionDeleted,
	})
	return nil
}

func (svc *service) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	cnt, err := svc.repo.CompleteExpiredClasses(ctx, core.NewDate(now), now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "completing expired classes")
	}
	if cnt > 0 {
		svc.emitter.Emit(ctx, notification.Template{
			Title:      "Classes completed",
			Message:    fmt.Sprintf("%d class(es) reached their end date and were marked as completed.", cnt),
			Type:       notification.TypeClass,
			EntityType: "class",
			Action:     notification.ActionCompleted,
		})
	}
	return cnt, nil
}

func (svc *service) Upgrade(ctx context.Context, actor user.User, sourceID string, nc NewClass) (UpgradeResult, error) {
	source, err := svc.repo.GetClass(ctx, sourceID)
	if err != nil {
		return UpgradeResult{}, err
	}
	if source.Status != StatusCompleted {
		return UpgradeResult{}, ErrNotCompleted
	}

	cls, moved, err := svc.repo.UpgradeClass(ctx, source.ID, svc.build(nc, StatusActive))
	if err != nil {
		return UpgradeResult{}, errors.Wrap(err, "upgrading class")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Class upgraded",
		Message:    fmt.Sprintf("%s upgraded %s to %s; %d student(s) moved.", actor.Name, source.Name, cls.Name, moved),
		Type:       notification.TypeClass,
		EntityType: "class",
		EntityID:   cls.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionUpgraded,
	})
	return UpgradeResult{Source: source, Class: cls, MovedStudents: moved}, nil
}

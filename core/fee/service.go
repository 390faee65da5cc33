package fee

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
	ErrNotFound = core.NewNotFoundError("fee")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateFee(ctx context.Context, f Fee) (Fee, error)
		QueryFees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error)
		GetFee(ctx context.Context, id string) (Fee, error)
		UpdateFee(ctx context.Context, f Fee) (Fee, error)
		DeleteFee(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, actor user.User, nf NewFee) (Fee, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error)
		GetByID(ctx context.Context, id string) (Fee, error)
		Update(ctx context.Context, actor user.User, f Fee, uf UpdateFee) (Fee, error)
		Delete(ctx context.Context, actor user.User, id string) error
	}

	service struct {
		repo        Repository
		studentRepo student.Repository
		classRepo   class.Repository
		emitter     notification.Emitter
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, studentRepo student.Repository, classRepo class.Repository, emitter notification.Emitter) Service {
	return &service{repo: repo, studentRepo: studentRepo, classRepo: classRepo, emitter: emitter}
}

func (svc *service) Create(ctx context.Context, actor user.User, nf NewFee) (Fee, error) {
	std, err := svc.studentRepo.GetStudent(ctx, nf.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Fee{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return Fee{}, errors.Wrap(err, "finding student")
	}
	if _, err = svc.classRepo.GetClass(ctx, nf.ClassID); err != nil {
		if core.IsNotFound(err) {
			return Fee{}, core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class not found"})
		}
		return Fee{}, errors.Wrap(err, "finding class")
	}

	toBePaid, paid, unpaid := nf.amounts()
	now := nowFunc().UTC()
	payDate, _ := core.ParseDateValue(nf.PaymentDate)
	if payDate.IsZero() {
		payDate = core.NewDate(now)
	}
	f, err := svc.repo.CreateFee(ctx, Fee{
		StudentID:   nf.StudentID,
		ClassID:     nf.ClassID,
		FeeToBePaid: toBePaid,
		FeePaid:     paid,
		FeeUnpaid:   unpaid,
		PaymentDate: payDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Fee{}, errors.Wrap(err, "creating fee")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Fee recorded",
		Message:    fmt.Sprintf("%s recorded a payment of %.2f for %s (%.2f unpaid).", actor.Name, f.FeePaid, std.Name, f.FeeUnpaid),
		Type:       notification.TypeFee,
		EntityType: "fee",
		EntityID:   f.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionCreated,
	})
	return f, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error) {
	return svc.repo.QueryFees(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Fee, error) {
	return svc.repo.GetFee(ctx, id)
}

func (svc *service) Update(ctx context.Context, actor user.User, f Fee, uf UpdateFee) (Fee, error) {
	f = uf.Apply(f)
	f.UpdatedAt = nowFunc().UTC()
	f, err := svc.repo.UpdateFee(ctx, f)
	if err != nil {
		return Fee{}, errors.Wrap(err, "updating fee")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Fee updated",
		Message:    fmt.Sprintf("%s updated a fee record (%.2f paid, %.2f unpaid).", actor.Name, f.FeePaid, f.FeeUnpaid),
		Type:       notification.TypeFee,
		EntityType: "fee",
		EntityID:   f.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionUpdated,
	})
	return f, nil
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.repo.GetFee(ctx, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteFee(ctx, id); err != nil {
		return errors.Wrap(err, "deleting fee")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "Fee deleted",
		Message:    fmt.Sprintf("%s deleted a fee record.", actor.Name),
		Type:       notification.TypeFee,
		EntityType: "fee",
		EntityID:   id,
		ActorName:  actor.Name,
		Action:     notification.ActionDeleted,
	})
	return nil
}

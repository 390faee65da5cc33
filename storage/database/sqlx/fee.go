package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/fee"
)

const feeColumns = `id, student_id, class_id, fee_to_be_paid, fee_paid, fee_unpaid, payment_date, created_at, updated_at`

type feeRepository struct {
	db *sqlx.DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFee(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	f.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO fee (`+feeColumns+`)
		VALUES (:id, :student_id, :class_id, :fee_to_be_paid, :fee_paid, :fee_unpaid, :payment_date, :created_at, :updated_at)`, f)
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "inserting fee")
	}
	return f, nil
}

func (repo *feeRepository) QueryFees(ctx context.Context, filter *fee.QueryFilter, ordering []core.DBOrdering) ([]fee.Fee, error) {
	fees := make([]fee.Fee, 0)
	w := new(where)
	if filter != nil {
		if filter.StudentID != "" {
			if !validID(filter.StudentID) {
				return fees, nil
			}
			w.add("student_id = ?", filter.StudentID)
		}
		if filter.ClassID != "" {
			if !validID(filter.ClassID) {
				return fees, nil
			}
			w.add("class_id = ?", filter.ClassID)
		}
	}

	suffix := orderBy(ordering, "created_at ASC", "fee_to_be_paid", "fee_paid", "fee_unpaid", "payment_date", "created_at")
	if err := selectWhere(ctx, repo.db, &fees, `SELECT `+feeColumns+` FROM fee`, w, suffix); err != nil {
		return nil, errors.Wrap(err, "querying fees")
	}
	return fees, nil
}

func (repo *feeRepository) GetFee(ctx context.Context, id string) (fee.Fee, error) {
	if !validID(id) {
		return fee.Fee{}, fee.ErrNotFound
	}
	var f fee.Fee
	if err := repo.db.GetContext(ctx, &f, `SELECT `+feeColumns+` FROM fee WHERE id = $1`, id); err != nil {
		return fee.Fee{}, trapNoRowsErr(err, fee.ErrNotFound, "finding fee")
	}
	return f, nil
}

func (repo *feeRepository) UpdateFee(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	if !validID(f.ID) {
		return fee.Fee{}, fee.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE fee SET
		fee_to_be_paid = :fee_to_be_paid, fee_paid = :fee_paid, fee_unpaid = :fee_unpaid,
		payment_date = :payment_date, updated_at = :updated_at
		WHERE id = :id`, f)
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "updating fee")
	}
	if rowsAffected(res) == 0 {
		return fee.Fee{}, fee.ErrNotFound
	}
	return f, nil
}

func (repo *feeRepository) DeleteFee(ctx context.Context, id string) error {
	if !validID(id) {
		return fee.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM fee WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting fee")
	}
	if rowsAffected(res) == 0 {
		return fee.ErrNotFound
	}
	return nil
}

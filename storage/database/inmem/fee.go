package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/fee"
)

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) find(id string) *fee.Fee {
	for _, f := range repo.db.fees {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (repo *feeRepository) CreateFee(_ context.Context, f fee.Fee) (fee.Fee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	f.ID = uuid.New().String()
	repo.db.fees = append(repo.db.fees, &f)
	return f, nil
}

func (repo *feeRepository) QueryFees(_ context.Context, filter *fee.QueryFilter, ordering []core.DBOrdering) ([]fee.Fee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	fees := make([]fee.Fee, 0)
	for _, f := range repo.db.fees {
		if filter != nil {
			if filter.StudentID != "" && f.StudentID != filter.StudentID {
				continue
			}
			if filter.ClassID != "" && f.ClassID != filter.ClassID {
				continue
			}
		}
		fees = append(fees, *f)
	}

	sortByOrderings(fees, ordering, func(i, j int, field string) int {
		a, b := fees[i], fees[j]
		switch field {
		case "fee_to_be_paid":
			return compareFloats(a.FeeToBePaid, b.FeeToBePaid)
		case "fee_paid":
			return compareFloats(a.FeePaid, b.FeePaid)
		case "fee_unpaid":
			return compareFloats(a.FeeUnpaid, b.FeeUnpaid)
		case "payment_date":
			return compareTimes(a.PaymentDate.Time, b.PaymentDate.Time)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return fees, nil
}

func (repo *feeRepository) GetFee(_ context.Context, id string) (fee.Fee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if f := repo.find(id); f != nil {
		return *f, nil
	}
	return fee.Fee{}, fee.ErrNotFound
}

func (repo *feeRepository) UpdateFee(_ context.Context, f fee.Fee) (fee.Fee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig := repo.find(f.ID)
	if orig == nil {
		return fee.Fee{}, fee.ErrNotFound
	}
	*orig = f
	return f, nil
}

func (repo *feeRepository) DeleteFee(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i, f := range repo.db.fees {
		if f.ID == id {
			repo.db.fees = append(repo.db.fees[:i], repo.db.fees[i+1:]...)
			return nil
		}
	}
	return fee.ErrNotFound
}

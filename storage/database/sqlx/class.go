package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
)

const (
	classColumns    = `id, name, subject, teacher, time, start_date, end_date, status, created_at, updated_at`
	insertClassStmt = `INSERT INTO class (` + classColumns + `)
		VALUES (:id, :name, :subject, :teacher, :time, :start_date, :end_date, :status, :created_at, :updated_at)`
)

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{db: db}
}

func insertClass(ctx context.Context, exec sqlx.ExtContext, cls class.Class) (class.Class, error) {
	cls.ID = uuid.New().String()
	if _, err := sqlx.NamedExecContext(ctx, exec, insertClassStmt, cls); err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	return insertClass(ctx, repo.db, cls)
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	w := new(where)
	if filter != nil {
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.IDs != nil {
			ids := validIDs(filter.IDs)
			if len(ids) == 0 {
				return make([]class.Class, 0), nil
			}
			w.add("id IN (?)", ids)
		}
	}

	classes := make([]class.Class, 0)
	suffix := orderBy(ordering, "created_at ASC", "name", "subject", "start_date", "end_date", "created_at")
	if err := selectWhere(ctx, repo.db, &classes, `SELECT `+classColumns+` FROM class`, w, suffix); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo *classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	if !validID(id) {
		return class.Class{}, class.ErrNotFound
	}
	var cls class.Class
	if err := repo.db.GetContext(ctx, &cls, `SELECT `+classColumns+` FROM class WHERE id = $1`, id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return cls, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	if !validID(cls.ID) {
		return class.Class{}, class.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE class SET
		name = :name, subject = :subject, teacher = :teacher, time = :time,
		start_date = :start_date, end_date = :end_date, status = :status, updated_at = :updated_at
		WHERE id = :id`, cls)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if rowsAffected(res) == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}

func (repo *classRepository) DeleteClass(ctx context.Context, id string) error {
	if !validID(id) {
		return class.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if rowsAffected(res) == 0 {
		return class.ErrNotFound
	}
	return nil
}

func (repo *classRepository) CompleteExpiredClasses(ctx context.Context, today core.Date, now time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE class SET status = $1, updated_at = $2
		WHERE status = $3 AND end_date IS NOT NULL AND end_date <= $4`,
		class.StatusCompleted, now.UTC(), class.StatusActive, today)
	if err != nil {
		return 0, errors.Wrap(err, "completing expired classes")
	}
	return rowsAffected(res), nil
}

func (repo *classRepository) UpgradeClass(ctx context.Context, sourceID string, cls class.Class) (class.Class, int, error) {
	if !validID(sourceID) {
		return class.Class{}, 0, class.ErrNotFound
	}

	var moved int
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var found bool
		// the row lock keeps the source class from being deleted mid-upgrade
		err := tx.GetContext(ctx, &found, `SELECT true FROM class WHERE id = $1 FOR UPDATE`, sourceID)
		if err != nil {
			return trapNoRowsErr(err, class.ErrNotFound, "finding source class")
		}

		if cls, err = insertClass(ctx, tx, cls); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `UPDATE student SET class_id = $1, updated_at = $2 WHERE class_id = $3`,
			cls.ID, cls.CreatedAt, sourceID)
		if err != nil {
			return errors.Wrap(err, "moving students")
		}
		moved = rowsAffected(res)
		return nil
	})
	if err != nil {
		return class.Class{}, 0, err
	}
	return cls, moved, nil
}

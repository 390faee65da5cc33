package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.db.insertClass(cls), nil
}

func (db *DB) insertClass(cls class.Class) class.Class {
	cls.ID = uuid.New().String()
	db.classes = append(db.classes, &cls)
	return cls
}

func (db *DB) findClass(id string) *class.Class {
	for _, c := range db.classes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (repo *classRepository) QueryClasses(_ context.Context, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]class.Class, 0)
	for _, cls := range repo.db.classes {
		if filter != nil {
			if filter.Status != "" && cls.Status != filter.Status {
				continue
			}
			if filter.IDs != nil && !inStrings(cls.ID, filter.IDs) {
				continue
			}
		}
		classes = append(classes, *cls)
	}

	sortByOrderings(classes, ordering, func(i, j int, field string) int {
		a, b := classes[i], classes[j]
		switch field {
		case "name":
			return compareStrings(a.Name, b.Name)
		case "subject":
			return compareStrings(a.Subject, b.Subject)
		case "start_date":
			return compareTimes(a.StartDate.Time, b.StartDate.Time)
		case "end_date":
			return compareTimes(a.EndDate.Time, b.EndDate.Time)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return classes, nil
}

func (repo *classRepository) GetClass(_ context.Context, id string) (class.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls := repo.db.findClass(id); cls != nil {
		return *cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig := repo.db.findClass(cls.ID)
	if orig == nil {
		return class.Class{}, class.ErrNotFound
	}
	*orig = cls
	return cls, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i, cls := range repo.db.classes {
		if cls.ID == id {
			repo.db.classes = append(repo.db.classes[:i], repo.db.classes[i+1:]...)
			return nil
		}
	}
	return class.ErrNotFound
}

func (repo *classRepository) CompleteExpiredClasses(_ context.Context, today core.Date, now time.Time) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, cls := range repo.db.classes {
		if cls.Status == class.StatusActive && cls.Expired(today) {
			cls.Status = class.StatusCompleted
			cls.UpdatedAt = now
			cnt++
		}
	}
	return cnt, nil
}

func (repo *classRepository) UpgradeClass(_ context.Context, sourceID string, cls class.Class) (class.Class, int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.findClass(sourceID) == nil {
		return class.Class{}, 0, class.ErrNotFound
	}
	cls = repo.db.insertClass(cls)

	var moved int
	for _, std := range repo.db.students {
		if std.ClassID == sourceID {
			std.ClassID = cls.ID
			std.UpdatedAt = cls.CreatedAt
			moved++
		}
	}
	return cls, moved, nil
}

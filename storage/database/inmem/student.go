package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (db *DB) findStudent(id string) *student.Student {
	for _, s := range db.students {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (repo *studentRepository) CheckStudentIDUniqueness(_ context.Context, studentID string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, std := range repo.db.students {
		if std.StudentID == studentID && !inStrings(std.ID, excludedIDs) {
			return student.ErrStudentIDExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, s := range repo.db.students {
		if s.StudentID == std.StudentID {
			return student.Student{}, student.ErrStudentIDExists
		}
	}
	std.ID = uuid.New().String()
	repo.db.students = append(repo.db.students, &std)
	return std, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0)
	for _, std := range repo.db.students {
		if filter != nil {
			if filter.ClassID != "" && std.ClassID != filter.ClassID {
				continue
			}
			if filter.Search != "" &&
				!(containsFold(std.Name, filter.Search) || containsFold(std.StudentID, filter.Search) || containsFold(std.Email, filter.Search)) {
				continue
			}
			if filter.IDs != nil && !inStrings(std.ID, filter.IDs) {
				continue
			}
		}
		students = append(students, *std)
	}

	sortByOrderings(students, ordering, func(i, j int, field string) int {
		a, b := students[i], students[j]
		switch field {
		case "name":
			return compareStrings(a.Name, b.Name)
		case "student_id":
			return compareStrings(a.StudentID, b.StudentID)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return students, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if std := repo.db.findStudent(id); std != nil {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig := repo.db.findStudent(std.ID)
	if orig == nil {
		return student.Student{}, student.ErrNotFound
	}
	for _, s := range repo.db.students {
		if s.ID != std.ID && s.StudentID == std.StudentID {
			return student.Student{}, student.ErrStudentIDExists
		}
	}
	*orig = std
	return std, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i, std := range repo.db.students {
		if std.ID == id {
			repo.db.students = append(repo.db.students[:i], repo.db.students[i+1:]...)
			return nil
		}
	}
	return student.ErrNotFound
}

package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/student"
)

const studentColumns = `id, name, student_id, email, avatar, class_id, father_name, gender, created_at, updated_at`

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckStudentIDUniqueness(ctx context.Context, studentID string, excludedIDs ...string) error {
	w := new(where)
	w.add("student_id = ?", studentID)
	if ids := validIDs(excludedIDs); len(ids) > 0 {
		w.add("id NOT IN (?)", ids)
	}

	var found []bool
	if err := selectWhere(ctx, repo.db, &found, `SELECT true FROM student`, w, " LIMIT 1"); err != nil {
		return errors.Wrap(err, "checking student ID uniqueness")
	}
	if len(found) > 0 {
		return student.ErrStudentIDExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO student (`+studentColumns+`)
		VALUES (:id, :name, :student_id, :email, :avatar, :class_id, :father_name, :gender, :created_at, :updated_at)`, std)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrStudentIDExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	w := new(where)
	if filter != nil {
		if filter.ClassID != "" {
			if !validID(filter.ClassID) {
				return make([]student.Student, 0), nil
			}
			w.add("class_id = ?", filter.ClassID)
		}
		if filter.Search != "" {
			val := containsPattern(filter.Search)
			w.add(`(name ILIKE ? ESCAPE '\' OR student_id ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\')`, val, val, val)
		}
		if filter.IDs != nil {
			ids := validIDs(filter.IDs)
			if len(ids) == 0 {
				return make([]student.Student, 0), nil
			}
			w.add("id IN (?)", ids)
		}
	}

	students := make([]student.Student, 0)
	suffix := orderBy(ordering, "created_at ASC", "name", "student_id", "created_at")
	if err := selectWhere(ctx, repo.db, &students, `SELECT `+studentColumns+` FROM student`, w, suffix); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var std student.Student
	if err := repo.db.GetContext(ctx, &std, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return std, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	if !validID(std.ID) {
		return student.Student{}, student.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE student SET
		name = :name, student_id = :student_id, email = :email, avatar = :avatar, class_id = :class_id,
		father_name = :father_name, gender = :gender, updated_at = :updated_at
		WHERE id = :id`, std)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrStudentIDExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if rowsAffected(res) == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if !validID(id) {
		return student.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if rowsAffected(res) == 0 {
		return student.ErrNotFound
	}
	return nil
}

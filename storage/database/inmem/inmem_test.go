package inmemdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
	"github.com/trezcool/mahudhurio/tests"
)

var bg = context.Background()

func TestUserRepository_RegisterUser(t *testing.T) {
	db := inmemdb.Open()
	repo := inmemdb.NewUserRepository(db)

	decide := func(stats user.ApprovalStats) user.Approval {
		return user.DecideApproval(user.RoleTeacher, stats)
	}

	var wg sync.WaitGroup
	for _, email := range []string{"a@school.test", "b@school.test", "c@school.test", "d@school.test"} {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, err := repo.RegisterUser(bg, user.User{Name: email, Email: email}, decide)
			assert.NoError(t, err)
		}(email)
	}
	wg.Wait()

	users, err := repo.QueryUsers(bg, &user.QueryFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, users, 4)

	var admins, approved int
	for _, u := range users {
		if u.IsAdmin() {
			admins++
		}
		if u.IsApproved {
			approved++
		}
	}
	assert.Equal(t, 1, admins, "exactly one user bootstraps as admin")
	assert.Equal(t, 1, approved)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.RegisterUser(bg, user.User{Name: "A", Email: "a@school.test"}, decide)
		assert.Equal(t, user.ErrEmailExists, err)
	})
}

func TestUserRepository_QueryUsers_search(t *testing.T) {
	db := inmemdb.Open()
	repo := inmemdb.NewUserRepository(db)
	jane := testutil.CreateUser(t, repo, "Jane_Doe", "jane@school.test", "", user.RoleTeacher, true)
	testutil.CreateUser(t, repo, "John", "john@school.test", "", user.RoleTeacher, true)

	tests := []struct {
		search string
		want   []string
	}{
		{search: "JANE", want: []string{jane.ID}},
		{search: "_", want: []string{jane.ID}},
		{search: "%"},
		{search: "j%n"},
	}
	for _, tt := range tests {
		users, err := repo.QueryUsers(bg, &user.QueryFilter{Search: tt.search}, nil)
		require.NoError(t, err)
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, tt.want, ids, "search %q", tt.search)
	}
}

func TestAttendanceRepository(t *testing.T) {
	db := inmemdb.Open()
	classRepo := inmemdb.NewClassRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)
	repo := inmemdb.NewAttendanceRepository(db)

	cls := testutil.CreateClass(t, classRepo, "Form 1", "2021-01-04", "")
	amani := testutil.CreateStudent(t, studentRepo, "Amani", "S001", cls.ID)
	baraka := testutil.CreateStudent(t, studentRepo, "Baraka", "S002", cls.ID)
	mon, tue := core.DateOf(2021, time.March, 1), core.DateOf(2021, time.March, 2)

	rec := func(std student.Student, date core.Date, s attendance.Status) attendance.Record {
		return attendance.Record{StudentID: std.ID, ClassID: cls.ID, Date: date, Status: s}
	}

	first, err := repo.UpsertAttendance(bg, []attendance.Record{rec(amani, tue, attendance.StatusPresent), rec(baraka, mon, attendance.StatusAbsent)})
	require.NoError(t, err)

	t.Run("existence by class & date", func(t *testing.T) {
		exists, err := repo.AttendanceExists(bg, []attendance.ClassDate{{ClassID: cls.ID, Date: mon}})
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = repo.AttendanceExists(bg, []attendance.ClassDate{{ClassID: cls.ID, Date: tue.AddDays(1)}})
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("upsert keeps one record per key", func(t *testing.T) {
		saved, err := repo.UpsertAttendance(bg, []attendance.Record{rec(amani, tue, attendance.StatusLate)})
		require.NoError(t, err)
		assert.Equal(t, first[0].ID, saved[0].ID)

		all, err := repo.QueryAttendance(bg, attendance.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.True(t, all[0].Date.Equal(mon), "ordered by date")
		assert.Equal(t, attendance.StatusLate, all[1].Status)
	})

	t.Run("report join survives deleted students", func(t *testing.T) {
		require.NoError(t, studentRepo.DeleteStudent(bg, baraka.ID))
		rows, err := repo.QueryReportRecords(bg, attendance.Filter{From: mon, To: tue})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Nil(t, rows[0].Student)
		require.NotNil(t, rows[1].Student)
		assert.Equal(t, "Amani", rows[1].Student.Name)
		assert.Equal(t, "Form 1", rows[1].Class.Name)
	})
}

func TestClassRepository_UpgradeClass(t *testing.T) {
	db := inmemdb.Open()
	classRepo := inmemdb.NewClassRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)

	src := testutil.CreateClass(t, classRepo, "Form 1", "2020-01-06", "2020-12-18")
	other := testutil.CreateClass(t, classRepo, "Form 3", "2020-01-06", "")
	testutil.CreateStudent(t, studentRepo, "Amani", "S001", src.ID)
	testutil.CreateStudent(t, studentRepo, "Baraka", "S002", src.ID)
	testutil.CreateStudent(t, studentRepo, "Chausiku", "S003", other.ID)

	next, moved, err := classRepo.UpgradeClass(bg, src.ID, class.Class{Name: "Form 2", StartDate: core.DateOf(2021, time.January, 4), Status: class.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.NotEmpty(t, next.ID)

	stds, err := studentRepo.QueryStudents(bg, &student.QueryFilter{ClassID: next.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, stds, 2)

	_, _, err = classRepo.UpgradeClass(bg, "nope", class.Class{Name: "Ghost"})
	assert.Equal(t, class.ErrNotFound, err)
}

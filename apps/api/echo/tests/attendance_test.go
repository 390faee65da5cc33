package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/tests"
)

func bulkBody(t *testing.T, inputs ...attendance.Input) []byte {
	return marchallObj(t, attendance.BulkInput{Records: inputs})
}

func Test_attendanceApi_bulkUpsert(t *testing.T) {
	stack.Reset()
	_, teacher, _ := seedUsers(t)
	token := getToken(t, teacher)
	cls := testutil.CreateClass(t, stack.ClassRepo, "Form 1", "2021-01-04", "")
	amani := testutil.CreateStudent(t, stack.StudentRepo, "Amani", "S001", cls.ID)
	baraka := testutil.CreateStudent(t, stack.StudentRepo, "Baraka", "S002", cls.ID)

	attendanceNotifs := func(t *testing.T) []notification.Notification {
		notifs, err := stack.NotificationSvc.Query(bg, notification.QueryFilter{Type: notification.TypeAttendance})
		require.NoError(t, err)
		return notifs
	}

	t.Run("taking attendance", func(t *testing.T) {
		rec := do(http.MethodPost, "/v1/attendance/bulk", token, bulkBody(t,
			attendance.Input{StudentID: amani.ID, ClassID: cls.ID, Date: "2021-03-01", Status: "present"},
			attendance.Input{StudentID: baraka.ID, ClassID: cls.ID, Date: "2021-03-01", Status: "Absent"},
		))
		assertStatus(t, rec, http.StatusOK)
		var records []attendance.Record
		unmarchall(t, rec, &records)
		require.Len(t, records, 2)
		assert.Equal(t, attendance.StatusAbsent, records[1].Status)

		notifs := attendanceNotifs(t)
		require.Len(t, notifs, 1)
		assert.Equal(t, notification.ActionTaken, notifs[0].Action)
		assert.Equal(t, "Attendance taken", notifs[0].Title)
	})

	t.Run("correcting attendance overwrites", func(t *testing.T) {
		rec := do(http.MethodPost, "/v1/attendance/bulk", token, bulkBody(t,
			attendance.Input{StudentID: baraka.ID, ClassID: cls.ID, Date: "2021-03-01", Status: "present"},
			attendance.Input{StudentID: baraka.ID, ClassID: cls.ID, Date: "2021-03-01", Status: "late"},
		))
		assertStatus(t, rec, http.StatusOK)
		var records []attendance.Record
		unmarchall(t, rec, &records)
		require.Len(t, records, 1)
		assert.Equal(t, attendance.StatusLate, records[0].Status)

		all, err := stack.AttendanceRepo.QueryAttendance(bg, attendance.Filter{ClassID: cls.ID})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		notifs := attendanceNotifs(t)
		require.Len(t, notifs, 2)
		assert.Equal(t, notification.ActionUpdated, notifs[0].Action)
	})

	tests := []httpTest{
		{name: "empty batch", method: http.MethodPost, path: "/v1/attendance/bulk", token: token, body: []byte(`{"records": []}`), wantCode: http.StatusBadRequest},
		{
			name: "invalid status", method: http.MethodPost, path: "/v1/attendance/bulk", token: token,
			body:     bulkBody(t, attendance.Input{StudentID: amani.ID, ClassID: cls.ID, Date: "2021-03-02", Status: "sick"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid date", method: http.MethodPost, path: "/v1/attendance/bulk", token: token,
			body:     bulkBody(t, attendance.Input{StudentID: amani.ID, ClassID: cls.ID, Date: "02/03/2021", Status: "present"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/v1/attendance/bulk", token: token,
			body:     bulkBody(t, attendance.Input{StudentID: "nope", ClassID: cls.ID, Date: "2021-03-02", Status: "present"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": `student "nope" not found`}),
		},
	}
	runHTTPTests(t, tests)

	t.Run("failed batches write nothing", func(t *testing.T) {
		rec := do(http.MethodPost, "/v1/attendance/bulk", token, bulkBody(t,
			attendance.Input{StudentID: amani.ID, ClassID: cls.ID, Date: "2021-03-02", Status: "present"},
			attendance.Input{StudentID: "nope", ClassID: cls.ID, Date: "2021-03-02", Status: "present"},
		))
		assertStatus(t, rec, http.StatusBadRequest)
		recs, err := stack.AttendanceRepo.QueryAttendance(bg, attendance.Filter{ClassID: cls.ID, From: core.DateOf(2021, time.March, 2)})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func Test_attendanceApi_queryUpdateDelete(t *testing.T) {
	stack.Reset()
	_, teacher, _ := seedUsers(t)
	token := getToken(t, teacher)
	cls := testutil.CreateClass(t, stack.ClassRepo, "Form 1", "2021-01-04", "")
	amani := testutil.CreateStudent(t, stack.StudentRepo, "Amani", "S001", cls.ID)
	baraka := testutil.CreateStudent(t, stack.StudentRepo, "Baraka", "S002", cls.ID)

	r1 := testutil.CreateAttendance(t, stack.AttendanceRepo, amani, "2021-03-02", attendance.StatusPresent)
	r2 := testutil.CreateAttendance(t, stack.AttendanceRepo, baraka, "2021-03-01", attendance.StatusAbsent)
	r3 := testutil.CreateAttendance(t, stack.AttendanceRepo, baraka, "2021-03-03", attendance.StatusLate)

	tests := []httpTest{
		{name: "ordered by date", path: "/v1/attendance", token: token, wantCode: http.StatusOK, wantData: marchallList(t, r2, r1, r3)},
		{name: "by student", path: "/v1/attendance?student_id=" + baraka.ID, token: token, wantCode: http.StatusOK, wantData: marchallList(t, r2, r3)},
		{name: "by date", path: "/v1/attendance?date=2021-03-02", token: token, wantCode: http.StatusOK, wantData: marchallList(t, r1)},
		{name: "by range", path: "/v1/attendance?from=2021-03-02&to=2021-03-03", token: token, wantCode: http.StatusOK, wantData: marchallList(t, r1, r3)},
		{name: "invalid date", path: "/v1/attendance?date=yesterday", token: token, wantCode: http.StatusBadRequest},
		{name: "retrieve", path: "/v1/attendance/" + r1.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, r1)},
		{name: "unknown record", path: "/v1/attendance/nope", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	runHTTPTests(t, tests)

	t.Run("update", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/attendance/"+r2.ID, token, []byte(`{"status": "late"}`))
		assertStatus(t, rec, http.StatusOK)
		var updated attendance.Record
		unmarchall(t, rec, &updated)
		assert.Equal(t, attendance.StatusLate, updated.Status)
		assert.Equal(t, r2.Date, updated.Date)

		rec = do(http.MethodPut, "/v1/attendance/"+r2.ID, token, []byte(`{"status": ""}`))
		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(http.MethodDelete, "/v1/attendance/"+r3.ID, token)
		assertStatus(t, rec, http.StatusNoContent)
		rec = do(http.MethodGet, "/v1/attendance/"+r3.ID, token)
		assertStatus(t, rec, http.StatusNotFound)
	})
}

func Test_reportApi_attendance(t *testing.T) {
	stack.Reset()
	_, teacher, _ := seedUsers(t)
	token := getToken(t, teacher)
	cls := testutil.CreateClass(t, stack.ClassRepo, "Form 1", "2021-01-04", "")
	amani := testutil.CreateStudent(t, stack.StudentRepo, "Amani", "S001", cls.ID)
	baraka := testutil.CreateStudent(t, stack.StudentRepo, "Baraka", "S002", cls.ID)

	testutil.CreateAttendance(t, stack.AttendanceRepo, amani, "2021-03-01", attendance.StatusPresent)
	testutil.CreateAttendance(t, stack.AttendanceRepo, baraka, "2021-03-01", attendance.StatusAbsent)
	testutil.CreateAttendance(t, stack.AttendanceRepo, amani, "2021-03-02", attendance.StatusLate)
	testutil.CreateAttendance(t, stack.AttendanceRepo, baraka, "2021-03-02", attendance.StatusPresent)
	testutil.CreateAttendance(t, stack.AttendanceRepo, baraka, "2021-04-01", attendance.StatusPresent)

	t.Run("explicit range", func(t *testing.T) {
		rec := do(http.MethodGet, "/v1/reports/attendance?start_date=2021-03-01&end_date=2021-03-31", token)
		assertStatus(t, rec, http.StatusOK)
		var rep attendance.Report
		unmarchall(t, rec, &rep)

		assert.Equal(t, attendance.ReportCustom, rep.Period.Type)
		assert.Equal(t, attendance.Summary{Total: 4, Present: 2, Absent: 1, Late: 1, AttendanceRate: 75}, rep.Summary)
		assert.Len(t, rep.Records, 4)
		assert.Equal(t, []attendance.Group{
			{Key: "2021-03-01", Present: 1, Absent: 1, Total: 2},
			{Key: "2021-03-02", Present: 1, Late: 1, Total: 2},
		}, rep.ByDate)
		assert.Equal(t, []attendance.Group{{Key: "Form 1", Present: 2, Absent: 1, Late: 1, Total: 4}}, rep.ByClass)
		assert.Equal(t, []attendance.Group{
			{Key: "Amani", Present: 1, Late: 1, Total: 2},
			{Key: "Baraka", Present: 1, Absent: 1, Total: 2},
		}, rep.ByStudent)
		require.NotNil(t, rep.Records[0].Student)
		assert.Equal(t, "Amani", rep.Records[0].Student.Name)
	})

	t.Run("narrowed to a student", func(t *testing.T) {
		rec := do(http.MethodGet, "/v1/reports/attendance?type=monthly&start_date=2021-03-01&end_date=2021-04-30&student_id="+baraka.ID, token)
		assertStatus(t, rec, http.StatusOK)
		var rep attendance.Report
		unmarchall(t, rec, &rep)
		assert.Equal(t, attendance.ReportMonthly, rep.Period.Type)
		assert.Equal(t, 3, rep.Summary.Total)
		assert.Equal(t, 66.7, rep.Summary.AttendanceRate)
	})

	t.Run("deleted students are unknown", func(t *testing.T) {
		require.NoError(t, stack.StudentRepo.DeleteStudent(bg, amani.ID))
		rec := do(http.MethodGet, "/v1/reports/attendance?start_date=2021-03-01&end_date=2021-03-01", token)
		assertStatus(t, rec, http.StatusOK)
		var rep attendance.Report
		unmarchall(t, rec, &rep)
		assert.Equal(t, []attendance.Group{
			{Key: "Unknown", Present: 1, Total: 1},
			{Key: "Baraka", Absent: 1, Total: 1},
		}, rep.ByStudent)
	})

	t.Run("empty period", func(t *testing.T) {
		rec := do(http.MethodGet, "/v1/reports/attendance?start_date=2020-01-01&end_date=2020-01-31", token)
		assertStatus(t, rec, http.StatusOK)
		var rep attendance.Report
		unmarchall(t, rec, &rep)
		assert.Equal(t, 0, rep.Summary.Total)
		assert.Equal(t, float64(0), rep.Summary.AttendanceRate)
		assert.Empty(t, rep.Records)
	})

	tests := []httpTest{
		{name: "no period", path: "/v1/reports/attendance", token: token, wantCode: http.StatusBadRequest},
		{name: "single bound", path: "/v1/reports/attendance?start_date=2021-03-01", token: token, wantCode: http.StatusBadRequest},
		{name: "reversed bounds", path: "/v1/reports/attendance?start_date=2021-03-31&end_date=2021-03-01", token: token, wantCode: http.StatusBadRequest},
		{name: "invalid type", path: "/v1/reports/attendance?type=yearly", token: token, wantCode: http.StatusBadRequest},
		{name: "daily", path: "/v1/reports/attendance?type=daily", token: token, wantCode: http.StatusOK},
		{name: "auth required", path: "/v1/reports/attendance?type=daily", wantCode: http.StatusUnauthorized},
	}
	runHTTPTests(t, tests)
}

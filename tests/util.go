// Package testutil wires the in-memory stack and creates fixtures for tests.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/fee"
	"github.com/trezcool/mahudhurio/core/jobs"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/report"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Sup3r$ecretKey"

var bg = context.Background()

// NewLogger returns a silent logger that never reports.
func NewLogger() core.Logger {
	core.Conf.TestMode = true
	logsvc.Configure(core.Conf)
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "TEST : ", log.LstdFlags))
}

// Stack is the whole application on an in-memory DB, with synchronous notifications & emails.
type Stack struct {
	DB     *inmemdb.DB
	Logger core.Logger
	Outbox *emailsvc.Outbox

	UserRepo         user.Repository
	ClassRepo        class.Repository
	StudentRepo      student.Repository
	AttendanceRepo   *inmemdb.AttendanceRepository
	FeeRepo          fee.Repository
	NotificationRepo notification.Repository

	NotificationSvc notification.Service
	UserSvc         user.Service
	ClassSvc        class.Service
	StudentSvc      student.Service
	AttendanceSvc   attendance.Service
	FeeSvc          fee.Service
	Reports         *report.Dispatcher
	Jobs            *jobs.Runner
}

func NewStack() *Stack {
	logger := NewLogger()
	core.ParseEmailTemplates(logger)

	db := inmemdb.Open()
	s := &Stack{
		DB:               db,
		Logger:           logger,
		Outbox:           emailsvc.NewOutbox(logger),
		UserRepo:         inmemdb.NewUserRepository(db),
		ClassRepo:        inmemdb.NewClassRepository(db),
		StudentRepo:      inmemdb.NewStudentRepository(db),
		AttendanceRepo:   inmemdb.NewAttendanceRepository(db),
		FeeRepo:          inmemdb.NewFeeRepository(db),
		NotificationRepo: inmemdb.NewNotificationRepository(db),
	}

	s.NotificationSvc = notification.NewService(s.NotificationRepo, s.Outbox, core.Conf.NotificationTTL)
	emitter := notification.NewInlineEmitter(s.NotificationSvc, logger)
	s.UserSvc = user.NewService(s.UserRepo, s.Outbox, emitter)
	s.ClassSvc = class.NewService(s.ClassRepo, emitter)
	s.StudentSvc = student.NewService(s.StudentRepo, s.ClassRepo, emitter)
	s.AttendanceSvc = attendance.NewService(s.AttendanceRepo, s.AttendanceRepo, s.ClassRepo, s.StudentRepo, emitter)
	s.FeeSvc = fee.NewService(s.FeeRepo, s.StudentRepo, s.ClassRepo, emitter)
	s.Reports = report.NewDispatcher(s.AttendanceSvc, s.UserSvc, s.Outbox, emitter)
	s.Jobs = jobs.NewRunner(s.ClassSvc, s.NotificationSvc, s.Reports, logger)
	return s
}

// Reset empties the DB & the outbox.
func (s *Stack) Reset() {
	s.DB.Reset()
	s.Outbox.Reset()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	isApproved bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Email:      email,
		Role:       role,
		IsApproved: isApproved,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(bg, usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateClass creates an active class, or a completed one when it ended already.
// end may be empty.
func CreateClass(t *testing.T, repo class.Repository, name, start, end string) class.Class {
	now := time.Now().UTC()
	cls := class.Class{
		Name:      name,
		Subject:   name + " subject",
		Teacher:   "Mr " + name,
		Time:      "08:00",
		StartDate: mustDate(t, start),
		Status:    class.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if end != "" {
		cls.EndDate = mustDate(t, end)
		if cls.Expired(core.NewDate(now)) {
			cls.Status = class.StatusCompleted
		}
	}
	cls, err := repo.CreateClass(bg, cls)
	if err != nil {
		t.Fatalf("CreateClass(): %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo student.Repository, name, studentID, classID string) student.Student {
	now := time.Now().UTC()
	std, err := repo.CreateStudent(bg, student.Student{
		Name:      name,
		StudentID: studentID,
		Email:     studentID + "@school.test",
		ClassID:   classID,
		Gender:    student.GenderFemale,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	return std
}

func CreateAttendance(
	t *testing.T,
	repo attendance.Repository,
	std student.Student,
	date string,
	status attendance.Status,
) attendance.Record {
	now := time.Now().UTC()
	recs, err := repo.UpsertAttendance(bg, []attendance.Record{{
		StudentID: std.ID,
		ClassID:   std.ClassID,
		Date:      mustDate(t, date),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}})
	if err != nil {
		t.Fatalf("CreateAttendance(): %v", err)
	}
	return recs[0]
}

func CreateFee(t *testing.T, repo fee.Repository, std student.Student, toBePaid, paid float64) fee.Fee {
	now := time.Now().UTC()
	f, err := repo.CreateFee(bg, fee.Fee{
		StudentID:   std.ID,
		ClassID:     std.ClassID,
		FeeToBePaid: toBePaid,
		FeePaid:     paid,
		FeeUnpaid:   fee.Unpaid(toBePaid, paid),
		PaymentDate: core.NewDate(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateFee(): %v", err)
	}
	return f
}

func mustDate(t *testing.T, s string) core.Date {
	d, err := core.ParseDateValue(s)
	if err != nil {
		t.Fatalf("core.ParseDateValue(%q): %v", s, err)
	}
	return d
}

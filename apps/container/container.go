// Package container builds the application graph out of the configuration.
// The api & admin binaries share it.
package container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

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
	queuesvc "github.com/trezcool/mahudhurio/services/queue"
	"github.com/trezcool/mahudhurio/storage/database"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
	boiledrepos "github.com/trezcool/mahudhurio/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/mahudhurio/storage/database/sqlx"
)

// Database engines
const (
	EnginePostgres = "postgres"
	EngineInMem    = "inmem"
)

// Queue backends
const (
	QueueInline = "inline"
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

type Options struct {
	// LogPrefix tags every log line, eg. "API : ".
	LogPrefix string
	// SkipMigrations leaves the schema alone; the admin `migrate` command manages it.
	SkipMigrations bool
	// Queue overrides Conf.Queue.Backend.
	Queue string
}

type repositories struct {
	users         user.Repository
	classes       class.Repository
	students      student.Repository
	attendance    attendance.Repository
	reports       attendance.ReportRepository
	fees          fee.Repository
	notifications notification.Repository
}

type Container struct {
	Conf   *core.Config
	Logger *logsvc.RollbarLogger
	Mail   core.EmailService

	NotificationSvc notification.Service
	UserSvc         user.Service
	ClassSvc        class.Service
	StudentSvc      student.Service
	AttendanceSvc   attendance.Service
	FeeSvc          fee.Service
	Reports         *report.Dispatcher
	Jobs            *jobs.Runner

	db         *sqlx.DB
	dispatcher *notification.Dispatcher
	closers    []func() error
}

func newLogger(conf *core.Config, prefix string) *logsvc.RollbarLogger {
	logsvc.Configure(conf)
	return logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile))
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "EMAIL : ", log.LstdFlags), logger)
	}
	return emailsvc.NewSendgridService(logger)
}

func newDB(conf *core.Config, migrate bool) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func (c *Container) openRepositories(opts Options) (*repositories, error) {
	switch c.Conf.Database.Engine {
	case EngineInMem:
		db := inmemdb.Open()
		attendanceRepo := inmemdb.NewAttendanceRepository(db)
		return &repositories{
			users:         inmemdb.NewUserRepository(db),
			classes:       inmemdb.NewClassRepository(db),
			students:      inmemdb.NewStudentRepository(db),
			attendance:    attendanceRepo,
			reports:       attendanceRepo,
			fees:          inmemdb.NewFeeRepository(db),
			notifications: inmemdb.NewNotificationRepository(db),
		}, nil

	case EnginePostgres:
		db, err := newDB(c.Conf, !opts.SkipMigrations)
		if err != nil {
			return nil, errors.Wrap(err, "setting up database")
		}
		c.db = db
		c.closers = append(c.closers, db.Close)
		return &repositories{
			users:         sqlxrepos.NewUserRepository(db),
			classes:       sqlxrepos.NewClassRepository(db),
			students:      sqlxrepos.NewStudentRepository(db),
			attendance:    sqlxrepos.NewAttendanceRepository(db),
			reports:       boiledrepos.NewReportRepository(db),
			fees:          sqlxrepos.NewFeeRepository(db),
			notifications: sqlxrepos.NewNotificationRepository(db),
		}, nil
	}
	return nil, errors.Errorf("unknown database engine %q", c.Conf.Database.Engine)
}

func (c *Container) newEmitter(backend string) (notification.Emitter, error) {
	var queue core.Queue
	switch backend {
	case QueueInline:
		return notification.NewInlineEmitter(c.NotificationSvc, c.Logger), nil
	case QueueMemory:
		queue = queuesvc.NewInMemory(c.Conf.Queue.Size)
	case QueueRedis:
		client := queuesvc.NewRedisClient(c.Conf.Queue.RedisAddr)
		rq := queuesvc.NewRedis(client, c.Conf.Queue.Key, c.Logger)
		if err := rq.Ping(context.Background()); err != nil {
			_ = client.Close()
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		queue = rq
	default:
		return nil, errors.Errorf("unknown queue backend %q", backend)
	}

	c.dispatcher = notification.NewDispatcher(queue, c.NotificationSvc, c.Logger, notification.DispatcherOptions{
		MaxAttempts: c.Conf.Queue.MaxAttempts,
		RetryDelay:  c.Conf.Queue.RetryDelay,
	})
	return c.dispatcher, nil
}

// New wires every service. Close releases what it opened.
func New(conf *core.Config, opts Options) (*Container, error) {
	c := &Container{Conf: conf}
	c.Logger = newLogger(conf, opts.LogPrefix)
	c.Mail = newEmailService(conf, c.Logger)

	core.ParseEmailTemplates(c.Logger)

	repos, err := c.openRepositories(opts)
	if err != nil {
		return nil, err
	}

	c.NotificationSvc = notification.NewService(repos.notifications, c.Mail, conf.NotificationTTL)

	backend := opts.Queue
	if backend == "" {
		backend = conf.Queue.Backend
	}
	emitter, err := c.newEmitter(backend)
	if err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "setting up notifications")
	}

	c.UserSvc = user.NewService(repos.users, c.Mail, emitter)
	c.ClassSvc = class.NewService(repos.classes, emitter)
	c.StudentSvc = student.NewService(repos.students, repos.classes, emitter)
	c.AttendanceSvc = attendance.NewService(repos.attendance, repos.reports, repos.classes, repos.students, emitter)
	c.FeeSvc = fee.NewService(repos.fees, repos.students, repos.classes, emitter)
	c.Reports = report.NewDispatcher(c.AttendanceSvc, c.UserSvc, c.Mail, emitter)
	c.Jobs = jobs.NewRunner(c.ClassSvc, c.NotificationSvc, c.Reports, c.Logger)
	return c, nil
}

// DB is nil unless the engine is postgres.
func (c *Container) DB() *sqlx.DB {
	return c.db
}

// RunNotifications consumes the notification queue until ctx is done.
// The returned channel is closed once the consumer stopped; right away with inline notifications.
func (c *Container) RunNotifications(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if c.dispatcher == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		if err := c.dispatcher.Run(ctx); err != nil {
			c.Logger.Error(fmt.Sprintf("notification dispatcher stopped: %v", err), err)
		}
	}()
	return done
}

func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	c.Logger.Close()
	return firstErr
}

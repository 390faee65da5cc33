package echoapi

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/fee"
	"github.com/trezcool/mahudhurio/core/jobs"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	appfs "github.com/trezcool/mahudhurio/fs"
	metricsvc "github.com/trezcool/mahudhurio/services/metrics"
)

const landingTemplate = "templates/pages/landing.gohtml"

type (
	Deps struct {
		Logger          core.Logger
		UserSvc         user.Service
		ClassSvc        class.Service
		StudentSvc      student.Service
		AttendanceSvc   attendance.Service
		FeeSvc          fee.Service
		NotificationSvc notification.Service
		Jobs            *jobs.Runner
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		address  string
		app      *echo.Echo
		deps     *Deps
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(address string, shutdown chan os.Signal, deps *Deps) Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &server{
		address:  address,
		app:      echo.New(),
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := core.Conf.Debug && !core.Conf.TestMode

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !core.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsvc.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", landing(s.deps.Logger))
	s.app.GET("/healthz", healthz)
	s.app.GET("/metrics", metricsvc.Handler())

	v1 := s.app.Group("/v1")
	jwt := jwtMiddleware()
	approved := approvedMiddleware(s.deps.UserSvc)

	registerAuthAPI(v1, jwt, s.deps.UserSvc)
	registerUserAPI(v1, jwt, approved, s.deps.UserSvc)
	registerClassAPI(v1, jwt, approved, s.deps.ClassSvc, s.deps.UserSvc)
	registerStudentAPI(v1, jwt, approved, s.deps.StudentSvc, s.deps.UserSvc)
	registerAttendanceAPI(v1, jwt, approved, s.deps.AttendanceSvc, s.deps.UserSvc)
	registerFeeAPI(v1, jwt, approved, s.deps.FeeSvc, s.deps.UserSvc)
	registerNotificationAPI(v1, jwt, approved, s.deps.NotificationSvc)
	registerReportAPI(v1, jwt, approved, s.deps.AttendanceSvc)
	registerJobsAPI(v1, s.deps.Jobs)
}

func (s *server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- os.Interrupt:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func landing(logger core.Logger) echo.HandlerFunc {
	tmpl, err := template.ParseFS(appfs.FS, landingTemplate)
	if err != nil {
		logger.Error("parsing landing page: "+err.Error(), err)
	}
	return func(ctx echo.Context) error {
		if tmpl == nil {
			return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
		}
		data := map[string]interface{}{
			"AppName":         core.Conf.AppName,
			"FrontendBaseURL": core.Conf.FrontendBaseURL,
			"Build":           core.Conf.Build,
			"Year":            time.Now().Year(),
		}
		ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
		ctx.Response().WriteHeader(http.StatusOK)
		return tmpl.Execute(ctx.Response(), data)
	}
}

func healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

package logsvc

import (
	"fmt"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// RollbarLogger prints to a std logger and reports to rollbar (when a token is configured).
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// Configure sets up the rollbar client once per process.
func Configure(conf *core.Config) {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
}

func NewRollbarLogger(std *log.Logger) *RollbarLogger {
	return &RollbarLogger{std: std}
}

// Close waits for queued reports to be sent.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// report splits args into rollbar's interface: the message first, then errors & extras.
// A user.User arg sets the reported person.
func (l *RollbarLogger) report(level, msg string, args []interface{}) {
	var person *user.User
	items := make([]interface{}, 0, len(args)+1)
	items = append(items, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if person == nil {
				person = &a
			}
		case *user.User:
			if person == nil && a != nil {
				person = a
			}
		default:
			items = append(items, arg)
		}
	}

	if person != nil {
		rollbar.SetPerson(person.ID, person.Name, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, items...)
}

func (l *RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		switch arg.(type) {
		case user.User, *user.User:
			continue
		case error:
			l.std.Printf("%+v", arg)
		default:
			l.std.Print(fmt.Sprint(arg))
		}
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.print("DEBUG", msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
	l.print("INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
	l.print("WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
	l.print("ERROR", msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	l.print("FATAL", msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}

package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/jobs"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/tests"
)

var stack *testutil.Stack

func setup(t *testing.T) *commandLine {
	if stack == nil {
		stack = testutil.NewStack()
	}
	stack.Reset()

	// start CLI
	return &commandLine{
		db:     new(sql.DB),
		usrSvc: stack.UserSvc,
		jobs:   stack.Jobs,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case err == nil:
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Fatalf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
				}
				if check != nil {
					check(t, tt)
				}
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			default:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "holidays", "sql"}},
	}
	runCLITests(t, cli, tests, nil)

	t.Run("inmem engine", func(t *testing.T) {
		noDB := &commandLine{usrSvc: stack.UserSvc, jobs: stack.Jobs}
		if err := noDB.run([]string{"admin", "migrate", "up"}); err != errNoDB {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errNoDB)
		}
	})
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	t.Run("missing flags", func(t *testing.T) {
		mockPassword(testutil.Password)
		if err := cli.run([]string{"admin", "adduser", "-email", "jane@school.test"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("no password", func(t *testing.T) {
		mockPassword("")
		if err := cli.run([]string{"admin", "adduser", "-email", "jane@school.test", "-name", "Jane"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		mockPassword("weak")
		err := cli.run([]string{"admin", "adduser", "-email", "jane@school.test", "-name", "Jane"})
		if err == nil {
			t.Fatal("cli.run() error = nil, want a validation error")
		}
	})

	t.Run("create admin", func(t *testing.T) {
		mockPassword(testutil.Password)
		if err := cli.run([]string{"admin", "adduser", "-email", "Jane@School.test", "-name", "Jane", "-admin"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := stack.UserSvc.GetByEmail(ctx, "jane@school.test")
		if err != nil {
			t.Fatalf("GetByEmail() failed, %v", err)
		}
		if !usr.IsApproved || usr.Role != user.RoleAdmin {
			t.Errorf("addUser() = approved %v role %s, want approved admin", usr.IsApproved, usr.Role)
		}
	})

	t.Run("update existing", func(t *testing.T) {
		pending := testutil.CreateUser(t, stack.UserRepo, "Pending", "pending@school.test", testutil.Password, user.RoleTeacher, false)
		mockPassword("N3w$ecretKey")
		if err := cli.run([]string{"admin", "adduser", "-email", pending.Email, "-name", "Approved"}); err != nil {
			t.Fatalf("cli.run() unexpected error = %v", err)
		}
		usr, err := stack.UserSvc.GetByEmail(ctx, pending.Email)
		if err != nil {
			t.Fatalf("GetByEmail() failed, %v", err)
		}
		if !usr.IsApproved || usr.Name != "Approved" {
			t.Errorf("addUser() = approved %v name %s, want approved Approved", usr.IsApproved, usr.Name)
		}
		if err := usr.CheckPassword("N3w$ecretKey"); err != nil {
			t.Errorf("addUser() did not set the new password, %v", err)
		}
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, stack.UserRepo, "User", "awe@school.test", testutil.Password, user.RoleTeacher, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@school.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@school.test"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "lol"}},
		{name: "reset with mixed case", args: []string{"resetpassword", "-email", "AWE@school.test"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := stack.UserRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr && !(tt.wantErr == user.ErrNotFound && core.IsNotFound(err)) {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_jobs(t *testing.T) {
	cli := setup(t)

	cls := testutil.CreateClass(t, stack.ClassRepo, "Form 1", "2021-01-04", "")
	cls.EndDate = core.DateOf(2021, time.June, 30)
	if _, err := stack.ClassRepo.UpdateClass(context.Background(), cls); err != nil {
		t.Fatalf("UpdateClass() failed, %v", err)
	}

	tests := []cliTest{
		{name: "complete classes", args: []string{jobs.CompleteClasses}},
		{name: "cleanup notifications", args: []string{jobs.CleanupNotifications}},
		{name: "dispatch reports", args: []string{jobs.DispatchReports}},
	}
	runCLITests(t, cli, tests, nil)

	refreshed, err := stack.ClassRepo.GetClass(context.Background(), cls.ID)
	if err != nil {
		t.Fatalf("GetClass() failed, %v", err)
	}
	if refreshed.Status != class.StatusCompleted {
		t.Errorf("complete-classes left status = %s, want %s", refreshed.Status, class.StatusCompleted)
	}
}

package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/tests"
)

const cronKey = "t3st-cr0n-k3y"

var (
	bg    = context.Background()
	stack *testutil.Stack
	app   Server

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errNotApproved  = httpErr{Error: "account pending approval"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	core.Conf.Server.DisableReqLogs = true
	core.Conf.CronKey = cronKey

	stack = testutil.NewStack()
	app = NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Logger:          stack.Logger,
			UserSvc:         stack.UserSvc,
			ClassSvc:        stack.ClassSvc,
			StudentSvc:      stack.StudentSvc,
			AttendanceSvc:   stack.AttendanceSvc,
			FeeSvc:          stack.FeeSvc,
			NotificationSvc: stack.NotificationSvc,
			Jobs:            stack.Jobs,
		},
	)

	os.Exit(m.Run())
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves a request and returns the recorded response.
func do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// seedUsers creates an approved admin, an approved teacher & a pending teacher.
func seedUsers(t *testing.T) (admin, teacher, pending user.User) {
	admin = testutil.CreateUser(t, stack.UserRepo, "Admin", "admin@school.test", testutil.Password, user.RoleAdmin, true)
	teacher = testutil.CreateUser(t, stack.UserRepo, "Teacher", "teacher@school.test", testutil.Password, user.RoleTeacher, true)
	pending = testutil.CreateUser(t, stack.UserRepo, "Pending", "pending@school.test", testutil.Password, user.RoleTeacher, false)
	return
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	assert.Equal(t, code, rec.Code, rec.Body.String())
}

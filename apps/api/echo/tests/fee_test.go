package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/fee"
	"github.com/trezcool/mahudhurio/tests"
)

func Test_feeApi_create(t *testing.T) {
	stack.Reset()
	_, teacher, _ := seedUsers(t)
	token := getToken(t, teacher)
	cls := testutil.CreateClass(t, stack.ClassRepo, "Form 1", "2021-01-04", "")
	amani := testutil.CreateStudent(t, stack.StudentRepo, "Amani", "S001", cls.ID)

	t.Run("unpaid is derived", func(t *testing.T) {
		body := `{"student_id": "` + amani.ID + `", "class_id": "` + cls.ID + `", "fee_to_be_paid": 1500.5, "fee_paid": 1000.25, "payment_date": "2021-02-01"}`
		rec := do(http.MethodPost, "/v1/fees", token, []byte(body))
		assertStatus(t, rec, http.StatusCreated)
		var f fee.Fee
		unmarchall(t, rec, &f)
		assert.Equal(t, 500.25, f.FeeUnpaid)
		assert.Equal(t, "2021-02-01", f.PaymentDate.String())
	})

	t.Run("unpaid may be given", func(t *testing.T) {
		body := `{"student_id": "` + amani.ID + `", "class_id": "` + cls.ID + `", "fee_to_be_paid": 1500, "fee_paid": 0, "fee_unpaid": 1200}`
		rec := do(http.MethodPost, "/v1/fees", token, []byte(body))
		assertStatus(t, rec, http.StatusCreated)
		var f fee.Fee
		unmarchall(t, rec, &f)
		assert.Equal(t, float64(1200), f.FeeUnpaid)
		assert.Equal(t, core.NewDate(time.Now()).String(), f.PaymentDate.String())
	})

	tests := []httpTest{
		{
			name: "missing amount", method: http.MethodPost, path: "/v1/fees", token: token,
			body:     []byte(`{"student_id": "` + amani.ID + `", "class_id": "` + cls.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"fee_to_be_paid": "this field is required"}),
		},
		{
			name: "negative amount", method: http.MethodPost, path: "/v1/fees", token: token,
			body:     []byte(`{"student_id": "` + amani.ID + `", "class_id": "` + cls.ID + `", "fee_to_be_paid": -1}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/v1/fees", token: token,
			body:     []byte(`{"student_id": "nope", "class_id": "` + cls.ID + `", "fee_to_be_paid": 10}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": "student not found"}),
		},
		{
			name: "unknown class", method: http.MethodPost, path: "/v1/fees", token: token,
			body:     []byte(`{"student_id": "` + amani.ID + `", "class_id": "nope", "fee_to_be_paid": 10}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class_id": "class not found"}),
		},
	}
	runHTTPTests(t, tests)
}

func Test_feeApi_queryUpdateDelete(t *testing.T) {
	stack.Reset()
	_, teacher, _ := seedUsers(t)
	token := getToken(t, teacher)
	cls := testutil.CreateClass(t, stack.ClassRepo, "Form 1", "2021-01-04", "")
	amani := testutil.CreateStudent(t, stack.StudentRepo, "Amani", "S001", cls.ID)
	baraka := testutil.CreateStudent(t, stack.StudentRepo, "Baraka", "S002", cls.ID)
	f1 := testutil.CreateFee(t, stack.FeeRepo, amani, 1000, 200)
	f2 := testutil.CreateFee(t, stack.FeeRepo, baraka, 1000, 900)

	tests := []httpTest{
		{name: "all", path: "/v1/fees", token: token, wantCode: http.StatusOK, wantData: marchallList(t, f1, f2)},
		{name: "by student", path: "/v1/fees?student_id=" + baraka.ID, token: token, wantCode: http.StatusOK, wantData: marchallList(t, f2)},
		{name: "most unpaid first", path: "/v1/fees?ordering=-fee_unpaid", token: token, wantCode: http.StatusOK, wantData: marchallList(t, f1, f2)},
		{name: "least unpaid first", path: "/v1/fees?ordering=fee_unpaid", token: token, wantCode: http.StatusOK, wantData: marchallList(t, f2, f1)},
		{name: "retrieve", path: "/v1/fees/" + f1.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, f1)},
		{name: "unknown fee", path: "/v1/fees/nope", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	runHTTPTests(t, tests)

	t.Run("paying re-derives unpaid", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/fees/"+f1.ID, token, []byte(`{"fee_paid": 650.5}`))
		assertStatus(t, rec, http.StatusOK)
		var f fee.Fee
		unmarchall(t, rec, &f)
		assert.Equal(t, 650.5, f.FeePaid)
		assert.Equal(t, 349.5, f.FeeUnpaid)
		assert.Equal(t, float64(1000), f.FeeToBePaid)
	})

	t.Run("payment date only", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/fees/"+f1.ID, token, []byte(`{"payment_date": "2021-03-05"}`))
		assertStatus(t, rec, http.StatusOK)
		var f fee.Fee
		unmarchall(t, rec, &f)
		assert.Equal(t, 349.5, f.FeeUnpaid)
		assert.Equal(t, "2021-03-05", f.PaymentDate.String())
	})

	t.Run("invalid payment date", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/fees/"+f1.ID, token, []byte(`{"payment_date": "March 5th"}`))
		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("payment date cannot be cleared", func(t *testing.T) {
		rec := do(http.MethodPut, "/v1/fees/"+f1.ID, token, []byte(`{"payment_date": ""}`))
		assertStatus(t, rec, http.StatusBadRequest)
		ok, _ := jsonBytesEqual(rec.Body.Bytes(), marchallObj(t, map[string]string{"payment_date": "this field cannot be blank"}))
		assert.True(t, ok, rec.Body.String())

		f, err := stack.FeeRepo.GetFee(bg, f1.ID)
		assert.NoError(t, err)
		assert.Equal(t, "2021-03-05", f.PaymentDate.String())
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(http.MethodDelete, "/v1/fees/"+f2.ID, token)
		assertStatus(t, rec, http.StatusNoContent)
		rec = do(http.MethodGet, "/v1/fees/"+f2.ID, token)
		assertStatus(t, rec, http.StatusNotFound)
	})
}

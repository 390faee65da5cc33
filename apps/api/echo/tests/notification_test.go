package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core/notification"
)

func deliver(t *testing.T, title string, typ notification.Type) notification.Notification {
	ntf, err := stack.NotificationSvc.Deliver(bg, notification.Template{
		Title:      title,
		Message:    title + "!",
		Type:       typ,
		EntityType: string(typ),
	})
	require.NoError(t, err)
	return ntf
}

func Test_notificationApi(t *testing.T) {
	stack.Reset()
	_, teacher, pending := seedUsers(t)
	token := getToken(t, teacher)

	n1 := deliver(t, "Class created", notification.TypeClass)
	n2 := deliver(t, "Student enrolled", notification.TypeStudent)
	n3 := deliver(t, "Class updated", notification.TypeClass)

	t.Run("approved users receive emails", func(t *testing.T) {
		sent := stack.Outbox.Sent()
		require.Len(t, sent, 6) // 3 notifications to admin & teacher
		for _, msg := range sent {
			assert.Equal(t, "notification", msg.TemplateName)
			assert.NotEqual(t, pending.Email, msg.To[0].Address)
		}
	})

	tests := []httpTest{
		{name: "pending user", path: "/v1/notifications", token: getToken(t, pending), wantCode: http.StatusForbidden},
		{name: "newest first", path: "/v1/notifications", token: token, wantCode: http.StatusOK, wantData: marchallList(t, n3, n2, n1)},
		{name: "by type", path: "/v1/notifications?type=class", token: token, wantCode: http.StatusOK, wantData: marchallList(t, n3, n1)},
		{name: "unread count", path: "/v1/notifications/unread-count", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.CountResponse{Count: 3})},
		{name: "mark unknown read", method: http.MethodPut, path: "/v1/notifications/nope/read", token: token, wantCode: http.StatusNotFound},
		{name: "mark read", method: http.MethodPut, path: "/v1/notifications/" + n1.ID + "/read", token: token, wantCode: http.StatusNoContent},
		{name: "one less unread", path: "/v1/notifications/unread-count", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.CountResponse{Count: 2})},
		{name: "unread only", path: "/v1/notifications?unread=true", token: token, wantCode: http.StatusOK, wantData: marchallList(t, n3, n2)},
		{name: "mark all read", method: http.MethodPut, path: "/v1/notifications/read-all", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.CountResponse{Count: 2})},
		{name: "none unread", path: "/v1/notifications/unread-count", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.CountResponse{Count: 0})},
		{name: "delete", method: http.MethodDelete, path: "/v1/notifications/" + n2.ID, token: token, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/v1/notifications/" + n2.ID, token: token, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, tests)

	t.Run("invalid templates are rejected", func(t *testing.T) {
		_, err := stack.NotificationSvc.Deliver(bg, notification.Template{Title: "x", Message: "y", Type: "gossip"})
		assert.Error(t, err)
		_, err = stack.NotificationSvc.Deliver(bg, notification.Template{Title: " ", Message: "y", Type: notification.TypeSystem})
		assert.Error(t, err)
	})
}

package user

import (
	"testing"
	"time"
)

func TestDecideApproval(t *testing.T) {
	tests := []struct {
		name      string
		requested Role
		stats     ApprovalStats
		want      Approval
	}{
		{name: "first user", requested: RoleTeacher, want: Approval{Role: RoleAdmin, IsApproved: true}},
		{name: "no admin left", requested: RoleTeacher, stats: ApprovalStats{Total: 3}, want: Approval{Role: RoleAdmin, IsApproved: true}},
		{name: "teacher waits", requested: RoleTeacher, stats: ApprovalStats{Total: 1, Admins: 1}, want: Approval{Role: RoleTeacher}},
		{name: "admin waits too", requested: RoleAdmin, stats: ApprovalStats{Total: 1, Admins: 1}, want: Approval{Role: RoleAdmin}},
		{name: "unknown role", requested: "janitor", stats: ApprovalStats{Total: 1, Admins: 1}, want: Approval{Role: RoleTeacher}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideApproval(tt.requested, tt.stats); got != tt.want {
				t.Errorf("DecideApproval() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResetCode_Expired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "valid", expiresAt: now.Add(time.Minute)},
		{name: "expires now", expiresAt: now, want: true},
		{name: "expired", expiresAt: now.Add(-time.Minute), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (ResetCode{ExpiresAt: tt.expiresAt}).Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPasswordPolicy(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		wantErr bool
	}{
		{name: "valid", pwd: "Sup3r$ecretKey"},
		{name: "too short", pwd: "S3$k", wantErr: true},
		{name: "whitespace", pwd: "Sup3r $ecret", wantErr: true},
		{name: "all numeric", pwd: "1234567890", wantErr: true},
		{name: "no special", pwd: "Sup3rSecretKey", wantErr: true},
		{name: "no upper", pwd: "sup3r$ecretkey", wantErr: true},
		{name: "similar to email", pwd: "Jane@school.t3st", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := ResetUserPassword{Email: "jane@school.test", Code: "123456", Password: tt.pwd, PasswordConfirm: tt.pwd}
			if err := rp.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("mismatch", func(t *testing.T) {
		rp := ResetUserPassword{Email: "jane@school.test", Code: "123456", Password: "Sup3r$ecretKey", PasswordConfirm: "Sup3r$ecretKez"}
		if err := rp.Validate(); err == nil {
			t.Error("Validate() error = nil, want a mismatch error")
		}
	})

	t.Run("code format", func(t *testing.T) {
		rp := ResetUserPassword{Email: "jane@school.test", Code: "12a456", Password: "Sup3r$ecretKey", PasswordConfirm: "Sup3r$ecretKey"}
		if err := rp.Validate(); err == nil {
			t.Error("Validate() error = nil, want a code error")
		}
	})
}

func TestUpdatePreferences_Apply(t *testing.T) {
	off := false
	prefs := DefaultPreferences("u1")

	got := UpdatePreferences{ReportEmails: &off}.Apply(prefs)
	if !got.EmailNotifications || got.ReportEmails {
		t.Errorf("Apply() = %+v, want email notifications only", got)
	}
	if got = (UpdatePreferences{}).Apply(prefs); got != prefs {
		t.Errorf("Apply() = %+v, want %+v", got, prefs)
	}
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode() error = %v", err)
		}
		if len(code) != 6 {
			t.Errorf("generateCode() = %q, want 6 digits", code)
		}
	}
}

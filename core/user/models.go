package user

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/mahudhurio/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

var Roles = []Role{RoleAdmin, RoleTeacher}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher:
		return true
	}
	return false
}

type User struct {
	ID           string      `json:"id" db:"id"`
	Email        string      `json:"email" db:"email"`
	Name         string      `json:"name" db:"name"`
	Role         Role        `json:"role" db:"role"`
	IsApproved   bool        `json:"is_approved" db:"is_approved"`
	Avatar       null.String `json:"avatar" db:"avatar"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time   `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ApprovalStats is the state of the user table right before an insert.
type ApprovalStats struct {
	Total  int
	Admins int
}

type Approval struct {
	Role       Role
	IsApproved bool
}

// DecideApproval bootstraps the first admin: when there are no users, or no admins left,
// the newcomer becomes an approved admin. Everyone else waits for approval.
func DecideApproval(requested Role, stats ApprovalStats) Approval {
	if stats.Total == 0 || stats.Admins == 0 {
		return Approval{Role: RoleAdmin, IsApproved: true}
	}
	if !requested.Valid() {
		requested = RoleTeacher
	}
	return Approval{Role: requested, IsApproved: false}
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"omitempty,role"`
	Avatar          string `json:"avatar" validate:"omitempty,url"`
}

func (nu *NewUser) Validate(svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Avatar = core.CleanString(nu.Avatar)
	if nu.Role == "" {
		nu.Role = RoleTeacher
	}

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what an admin may change on an existing User.
type UpdateUser struct {
	Name       string `json:"name"`
	Role       Role   `json:"role" validate:"omitempty,role"`
	IsApproved *bool  `json:"is_approved"`
}

func (uu *UpdateUser) Validate(origUsr User) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if uu.Role == "" {
		uu.Role = origUsr.Role
	}
	return core.Validate.Struct(uu)
}

// UpdateProfile defines what a User may change about themselves.
type UpdateProfile struct {
	Name            string  `json:"name"`
	Avatar          *string `json:"avatar" validate:"omitempty,url"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	email string
}

func (up *UpdateProfile) Validate(origUsr User) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = origUsr.Name
	}
	if up.Avatar != nil {
		avatar := core.CleanString(*up.Avatar)
		up.Avatar = &avatar
	}
	up.email = origUsr.Email
	return core.Validate.Struct(up)
}

type Preferences struct {
	UserID             string    `json:"-" db:"user_id"`
	EmailNotifications bool      `json:"email_notifications" db:"email_notifications"`
	ReportEmails       bool      `json:"report_emails" db:"report_emails"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func DefaultPreferences(userID string) Preferences {
	return Preferences{UserID: userID, EmailNotifications: true, ReportEmails: true}
}

type UpdatePreferences struct {
	EmailNotifications *bool `json:"email_notifications"`
	ReportEmails       *bool `json:"report_emails"`
}

func (up UpdatePreferences) Apply(prefs Preferences) Preferences {
	if up.EmailNotifications != nil {
		prefs.EmailNotifications = *up.EmailNotifications
	}
	if up.ReportEmails != nil {
		prefs.ReportEmails = *up.ReportEmails
	}
	return prefs
}

type ResetCode struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"` // UTC
	IsUsed    bool      `db:"is_used"`
	CreatedAt time.Time `db:"created_at"` // UTC
}

func (rc ResetCode) Expired(now time.Time) bool {
	return !rc.ExpiresAt.After(now)
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (pr *PasswordResetRequest) Validate() error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return core.Validate.Struct(pr)
}

type VerifyResetCode struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func (vc *VerifyResetCode) Validate() error {
	vc.Email = core.CleanString(vc.Email, true /* lower */)
	vc.Code = strings.TrimSpace(vc.Code)
	return core.Validate.Struct(vc)
}

type ResetUserPassword struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required,len=6,numeric"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate() error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	rp.Code = strings.TrimSpace(rp.Code)
	return core.Validate.Struct(rp)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Role       Role   `query:"role"`
	IsApproved *bool  `query:"-"`

	// ReportEmails keeps users who opted in to report emails.
	ReportEmails bool `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter finds a single User by one of its fields. The first non-empty one wins.
type GetFilter struct {
	ID    string
	Email string
}

package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/notification"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("user")
	ErrResetCodeAbsent = core.NewNotFoundError("password reset code")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrInvalidCode     = core.NewValidationError(errors.New("invalid or expired code"))

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		// RegisterUser inserts usr with the Approval returned by decide.
		// Counting existing users and inserting happen under a single writer lock.
		RegisterUser(ctx context.Context, usr User, decide func(ApprovalStats) Approval) (User, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error

		// GetPreferences returns the defaults when none were saved.
		GetPreferences(ctx context.Context, userID string) (Preferences, error)
		SavePreferences(ctx context.Context, prefs Preferences) (Preferences, error)

		// ReplaceResetCode deletes any code issued to rc.Email before inserting rc.
		ReplaceResetCode(ctx context.Context, rc ResetCode) (ResetCode, error)
		GetResetCode(ctx context.Context, email, code string) (ResetCode, error)
		MarkResetCodeUsed(ctx context.Context, id string) error
		DeleteResetCode(ctx context.Context, id string) error
	}

	Service interface {
		CheckUniqueness(email string, excludedUsers ...User) error
		// Register signs up a new User, bootstrapping the first admin.
		Register(ctx context.Context, nu NewUser) (User, error)
		// Create inserts an approved User with the requested role, bypassing the approval gate.
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error)
		Approve(ctx context.Context, actor User, id string) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error

		GetPreferences(ctx context.Context, usr User) (Preferences, error)
		UpdatePreferences(ctx context.Context, usr User, up UpdatePreferences) (Preferences, error)

		RequestPasswordReset(ctx context.Context, email string) error
		VerifyResetCode(ctx context.Context, data VerifyResetCode) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		emitter notification.Emitter
		codeTTL time.Duration
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, emitter notification.Emitter) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		emitter: emitter,
		codeTTL: core.Conf.PasswordResetTTL,
	}
}

func (svc *service) CheckUniqueness(email string, excludedUsers ...User) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, ids...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) newUser(nu NewUser) (User, error) {
	now := nowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		Avatar:    null.NewString(nu.Avatar, nu.Avatar != ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return usr, nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.newUser(nu)
	if err != nil {
		return User{}, err
	}
	requested := nu.Role
	usr, err = svc.repo.RegisterUser(ctx, usr, func(stats ApprovalStats) Approval {
		return DecideApproval(requested, stats)
	})
	if err != nil {
		return User{}, errors.Wrap(err, "registering user")
	}

	tmpl := notification.Template{
		Title:      "New user registered",
		Type:       notification.TypeUser,
		EntityType: "user",
		EntityID:   usr.ID,
		ActorName:  usr.Name,
	}
	if usr.IsApproved {
		tmpl.Message = fmt.Sprintf("%s joined as %s.", usr.Name, usr.Role)
		tmpl.Action = notification.ActionCreated
	} else {
		tmpl.Message = fmt.Sprintf("%s registered as %s and is waiting for approval.", usr.Name, usr.Role)
		tmpl.Action = notification.ActionPending
	}
	svc.emitter.Emit(ctx, tmpl)
	return usr, nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.newUser(nu)
	if err != nil {
		return User{}, err
	}
	usr.IsApproved = true
	usr, err = svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Role = uu.Role
	if uu.IsApproved != nil {
		usr.IsApproved = *uu.IsApproved
	}
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr.Name = up.Name
	if up.Avatar != nil {
		usr.Avatar = null.NewString(*up.Avatar, *up.Avatar != "")
	}
	if up.Password != "" {
		if err := usr.SetPassword(up.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Approve(ctx context.Context, actor User, id string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	if usr.IsApproved {
		return usr, nil
	}
	usr.IsApproved = true
	usr.UpdatedAt = nowFunc().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "approving user")
	}

	svc.emitter.Emit(ctx, notification.Template{
		Title:      "User approved",
		Message:    fmt.Sprintf("%s approved %s.", actor.Name, usr.Name),
		Type:       notification.TypeUser,
		EntityType: "user",
		EntityID:   usr.ID,
		ActorName:  actor.Name,
		Action:     notification.ActionApproved,
	})
	return usr, nil
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(nowFunc().UTC())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

func (svc *service) GetPreferences(ctx context.Context, usr User) (Preferences, error) {
	return svc.repo.GetPreferences(ctx, usr.ID)
}

func (svc *service) UpdatePreferences(ctx context.Context, usr User, up UpdatePreferences) (Preferences, error) {
	prefs, err := svc.repo.GetPreferences(ctx, usr.ID)
	if err != nil {
		return Preferences{}, errors.Wrap(err, "getting preferences")
	}
	prefs = up.Apply(prefs)
	prefs.UpdatedAt = nowFunc().UTC()
	return svc.repo.SavePreferences(ctx, prefs)
}

// Password reset

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestPasswordReset issues a new code to the User with this email, if any.
// Unknown emails are not reported to the caller.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}

	code, err := generateCode()
	if err != nil {
		return errors.Wrap(err, "generating reset code")
	}
	now := nowFunc().UTC()
	if _, err = svc.repo.ReplaceResetCode(ctx, ResetCode{
		Email:     usr.Email,
		Code:      code,
		ExpiresAt: now.Add(svc.codeTTL),
		CreatedAt: now,
	}); err != nil {
		return errors.Wrap(err, "saving reset code")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":     usr.Name,
			"Code":     code,
			"ValidFor": svc.codeTTL.String(),
		},
	})
	return nil
}

// lookupCode returns ErrInvalidCode for any code that is unknown or expired.
func (svc *service) lookupCode(ctx context.Context, email, code string) (ResetCode, error) {
	rc, err := svc.repo.GetResetCode(ctx, email, code)
	if err != nil {
		if core.IsNotFound(err) {
			return ResetCode{}, ErrInvalidCode
		}
		return ResetCode{}, errors.Wrap(err, "finding reset code")
	}
	if rc.Expired(nowFunc().UTC()) {
		return ResetCode{}, ErrInvalidCode
	}
	return rc, nil
}

func (svc *service) VerifyResetCode(ctx context.Context, data VerifyResetCode) error {
	rc, err := svc.lookupCode(ctx, data.Email, data.Code)
	if err != nil {
		return err
	}
	if rc.IsUsed {
		return ErrInvalidCode
	}
	return errors.Wrap(svc.repo.MarkResetCodeUsed(ctx, rc.ID), "marking reset code used")
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	rc, err := svc.lookupCode(ctx, data.Email, data.Code)
	if err != nil {
		return err
	}
	if !rc.IsUsed {
		return ErrInvalidCode
	}

	usr, err := svc.GetByEmail(ctx, data.Email)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrInvalidCode
		}
		return errors.Wrap(err, "finding user by email")
	}
	if _, err = svc.SetPassword(ctx, usr, data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	return errors.Wrap(svc.repo.DeleteResetCode(ctx, rc.ID), "deleting reset code")
}

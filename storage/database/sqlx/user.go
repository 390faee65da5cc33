package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// registerLockKey serializes sign-ups so that only one caller can bootstrap the first admin.
const registerLockKey = 7_240_001

const (
	userColumns    = `id, email, name, password_hash, role, is_approved, avatar, created_at, updated_at, last_login`
	insertUserStmt = `INSERT INTO "user" (` + userColumns + `)
		VALUES (:id, :email, :name, :password_hash, :role, :is_approved, :avatar, :created_at, :updated_at, :last_login)`
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	w := new(where)
	w.add("email = ?", email)
	if ids := validIDs(excludedIDs); len(ids) > 0 {
		w.add("id NOT IN (?)", ids)
	}

	var found []bool
	if err := selectWhere(ctx, repo.db, &found, `SELECT true FROM "user"`, w, " LIMIT 1"); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if len(found) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func insertUser(ctx context.Context, exec sqlx.ExtContext, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	if _, err := sqlx.NamedExecContext(ctx, exec, insertUserStmt, usr); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) RegisterUser(ctx context.Context, usr user.User, decide func(user.ApprovalStats) user.Approval) (user.User, error) {
	var created user.User
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", registerLockKey); err != nil {
			return errors.Wrap(err, "locking user registration")
		}

		var stats user.ApprovalStats
		row := tx.QueryRowxContext(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE role = 'admin') FROM "user"`)
		if err := row.Scan(&stats.Total, &stats.Admins); err != nil {
			return errors.Wrap(err, "counting users")
		}

		approval := decide(stats)
		usr.Role = approval.Role
		usr.IsApproved = approval.IsApproved

		var err error
		created, err = insertUser(ctx, tx, usr)
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	return created, nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	return insertUser(ctx, repo.db, usr)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			val := containsPattern(filter.Search)
			w.add(`(name ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\')`, val, val)
		}
		if filter.Role != "" {
			w.add("role = ?", filter.Role)
		}
		if filter.IsApproved != nil {
			w.add("is_approved = ?", *filter.IsApproved)
		}
		if filter.ReportEmails {
			w.add(`NOT EXISTS (SELECT 1 FROM user_preferences p WHERE p.user_id = "user".id AND NOT p.report_emails)`)
		}
	}

	users := make([]user.User, 0)
	suffix := orderBy(ordering, "created_at ASC", "name", "email", "role", "is_approved", "created_at")
	if err := selectWhere(ctx, repo.db, &users, `SELECT `+userColumns+` FROM "user"`, w, suffix); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var usr user.User
	var err error

	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE email = $1`, filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !validID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	res, err := repo.db.NamedExecContext(ctx, `UPDATE "user" SET
		email = :email, name = :name, password_hash = :password_hash, role = :role, is_approved = :is_approved,
		avatar = :avatar, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, usr)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if rowsAffected(res) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func (repo *userRepository) GetPreferences(ctx context.Context, userID string) (user.Preferences, error) {
	prefs := user.DefaultPreferences(userID)
	if !validID(userID) {
		return prefs, nil
	}
	err := repo.db.GetContext(ctx, &prefs,
		`SELECT user_id, email_notifications, report_emails, updated_at FROM user_preferences WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return user.DefaultPreferences(userID), nil
	}
	if err != nil {
		return user.Preferences{}, errors.Wrap(err, "getting preferences")
	}
	return prefs, nil
}

func (repo *userRepository) SavePreferences(ctx context.Context, prefs user.Preferences) (user.Preferences, error) {
	if !validID(prefs.UserID) {
		return user.Preferences{}, user.ErrNotFound
	}
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO user_preferences (user_id, email_notifications, report_emails, updated_at)
		VALUES (:user_id, :email_notifications, :report_emails, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			email_notifications = EXCLUDED.email_notifications,
			report_emails = EXCLUDED.report_emails,
			updated_at = EXCLUDED.updated_at`, prefs)
	if err != nil {
		if isForeignKeyViolation(err) {
			return user.Preferences{}, user.ErrNotFound
		}
		return user.Preferences{}, errors.Wrap(err, "saving preferences")
	}
	return prefs, nil
}

func (repo *userRepository) ReplaceResetCode(ctx context.Context, rc user.ResetCode) (user.ResetCode, error) {
	rc.ID = uuid.New().String()
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_code WHERE email = $1`, rc.Email); err != nil {
			return errors.Wrap(err, "deleting previous reset codes")
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO password_reset_code (id, email, code, expires_at, is_used, created_at)
			VALUES (:id, :email, :code, :expires_at, :is_used, :created_at)`, rc)
		return errors.Wrap(err, "inserting reset code")
	})
	if err != nil {
		return user.ResetCode{}, err
	}
	return rc, nil
}

func (repo *userRepository) GetResetCode(ctx context.Context, email, code string) (user.ResetCode, error) {
	var rc user.ResetCode
	err := repo.db.GetContext(ctx, &rc, `SELECT id, email, code, expires_at, is_used, created_at
		FROM password_reset_code WHERE email = $1 AND code = $2
		ORDER BY created_at DESC LIMIT 1`, email, code)
	if err != nil {
		return user.ResetCode{}, trapNoRowsErr(err, user.ErrResetCodeAbsent, "getting reset code")
	}
	return rc, nil
}

func (repo *userRepository) MarkResetCodeUsed(ctx context.Context, id string) error {
	if !validID(id) {
		return user.ErrResetCodeAbsent
	}
	res, err := repo.db.ExecContext(ctx, `UPDATE password_reset_code SET is_used = true WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "marking reset code used")
	}
	if rowsAffected(res) == 0 {
		return user.ErrResetCodeAbsent
	}
	return nil
}

func (repo *userRepository) DeleteResetCode(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM password_reset_code WHERE id = $1`, id)
	return errors.Wrap(err, "deleting reset code")
}

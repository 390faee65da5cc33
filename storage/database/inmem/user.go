package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) find(id string) (int, *user.User) {
	for i, u := range repo.db.users {
		if u.ID == id {
			return i, u
		}
	}
	return -1, nil
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email && !inStrings(usr.ID, excludedIDs) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) insert(usr user.User) (user.User, error) {
	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = uuid.New().String()
	repo.db.users = append(repo.db.users, &usr)
	return usr, nil
}

func (repo *userRepository) RegisterUser(_ context.Context, usr user.User, decide func(user.ApprovalStats) user.Approval) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stats := user.ApprovalStats{Total: len(repo.db.users)}
	for _, u := range repo.db.users {
		if u.IsAdmin() {
			stats.Admins++
		}
	}
	approval := decide(stats)
	usr.Role = approval.Role
	usr.IsApproved = approval.IsApproved
	return repo.insert(usr)
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.insert(usr)
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter != nil {
			if filter.Search != "" && !(containsFold(usr.Name, filter.Search) || containsFold(usr.Email, filter.Search)) {
				continue
			}
			if filter.Role != "" && usr.Role != filter.Role {
				continue
			}
			if filter.IsApproved != nil && usr.IsApproved != *filter.IsApproved {
				continue
			}
			if filter.ReportEmails {
				if prefs, ok := repo.db.preferences[usr.ID]; ok && !prefs.ReportEmails {
					continue
				}
			}
		}
		users = append(users, usr)
	}

	sortByOrderings(users, ordering, func(i, j int, field string) int {
		a, b := users[i], users[j]
		switch field {
		case "name":
			return compareStrings(a.Name, b.Name)
		case "email":
			return compareStrings(a.Email, b.Email)
		case "role":
			return compareStrings(string(a.Role), string(b.Role))
		case "is_approved":
			return compareBools(a.IsApproved, b.IsApproved)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		switch {
		case filter.ID != "":
			if usr.ID == filter.ID {
				return *usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	_, orig := repo.find(usr.ID)
	if orig == nil {
		return user.User{}, user.ErrNotFound
	}
	*orig = usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	kept := repo.db.users[:0]
	for _, usr := range repo.db.users {
		if inStrings(usr.ID, ids) {
			delete(repo.db.preferences, usr.ID)
			continue
		}
		kept = append(kept, usr)
	}
	repo.db.users = kept
	return nil
}

func (repo *userRepository) GetPreferences(_ context.Context, userID string) (user.Preferences, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if prefs, ok := repo.db.preferences[userID]; ok {
		return prefs, nil
	}
	return user.DefaultPreferences(userID), nil
}

func (repo *userRepository) SavePreferences(_ context.Context, prefs user.Preferences) (user.Preferences, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, usr := repo.find(prefs.UserID); usr == nil {
		return user.Preferences{}, user.ErrNotFound
	}
	repo.db.preferences[prefs.UserID] = prefs
	return prefs, nil
}

func (repo *userRepository) ReplaceResetCode(_ context.Context, rc user.ResetCode) (user.ResetCode, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	kept := repo.db.resetCodes[:0]
	for _, c := range repo.db.resetCodes {
		if c.Email != rc.Email {
			kept = append(kept, c)
		}
	}
	rc.ID = uuid.New().String()
	repo.db.resetCodes = append(kept, &rc)
	return rc, nil
}

func (repo *userRepository) GetResetCode(_ context.Context, email, code string) (user.ResetCode, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.resetCodes {
		if c.Email == email && c.Code == code {
			return *c, nil
		}
	}
	return user.ResetCode{}, user.ErrResetCodeAbsent
}

func (repo *userRepository) MarkResetCodeUsed(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, c := range repo.db.resetCodes {
		if c.ID == id {
			c.IsUsed = true
			return nil
		}
	}
	return user.ErrResetCodeAbsent
}

func (repo *userRepository) DeleteResetCode(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	kept := repo.db.resetCodes[:0]
	for _, c := range repo.db.resetCodes {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	repo.db.resetCodes = kept
	return nil
}

// emailRecipients is shared with the notification repository.
func (db *DB) emailRecipients() []notification.Recipient {
	recipients := make([]notification.Recipient, 0)
	for _, usr := range db.users {
		if !usr.IsApproved {
			continue
		}
		if prefs, ok := db.preferences[usr.ID]; ok && !prefs.EmailNotifications {
			continue
		}
		recipients = append(recipients, notification.Recipient{Name: usr.Name, Email: usr.Email})
	}
	return recipients
}

package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, ntf notification.Notification) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ntf.ID = uuid.New().String()
	repo.db.notifications = append(repo.db.notifications, &ntf)
	return ntf, nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	res := make([]notification.Notification, 0)
	for i := len(repo.db.notifications) - 1; i >= 0; i-- {
		ntf := repo.db.notifications[i]
		if filter.Unread && ntf.IsRead {
			continue
		}
		if filter.Type != "" && ntf.Type != filter.Type {
			continue
		}
		res = append(res, *ntf)
	}
	return res, nil
}

func (repo *notificationRepository) CountUnreadNotifications(_ context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var cnt int
	for _, ntf := range repo.db.notifications {
		if !ntf.IsRead {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *notificationRepository) MarkNotificationsRead(_ context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, ntf := range repo.db.notifications {
		if inStrings(ntf.ID, ids) {
			ntf.IsRead = true
			cnt++
		}
	}
	return cnt, nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(_ context.Context) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, ntf := range repo.db.notifications {
		if !ntf.IsRead {
			ntf.IsRead = true
			cnt++
		}
	}
	return cnt, nil
}

func (repo *notificationRepository) DeleteNotification(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i, ntf := range repo.db.notifications {
		if ntf.ID == id {
			repo.db.notifications = append(repo.db.notifications[:i], repo.db.notifications[i+1:]...)
			return nil
		}
	}
	return notification.ErrNotFound
}

func (repo *notificationRepository) DeleteNotificationsBefore(_ context.Context, t time.Time) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	kept := repo.db.notifications[:0]
	var cnt int
	for _, ntf := range repo.db.notifications {
		if ntf.CreatedAt.Before(t) {
			cnt++
			continue
		}
		kept = append(kept, ntf)
	}
	repo.db.notifications = kept
	return cnt, nil
}

func (repo *notificationRepository) QueryEmailRecipients(_ context.Context) ([]notification.Recipient, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.emailRecipients(), nil
}

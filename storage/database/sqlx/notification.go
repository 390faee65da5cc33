package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/notification"
)

const notificationColumns = `id, title, message, type, entity_type, entity_id, actor_name, action, is_read, created_at`

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, ntf notification.Notification) (notification.Notification, error) {
	ntf.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO notification (`+notificationColumns+`)
		VALUES (:id, :title, :message, :type, :entity_type, :entity_id, :actor_name, :action, :is_read, :created_at)`, ntf)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return ntf, nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	w := new(where)
	if filter.Unread {
		w.add("NOT is_read")
	}
	if filter.Type != "" {
		w.add("type = ?", filter.Type)
	}

	res := make([]notification.Notification, 0)
	if err := selectWhere(ctx, repo.db, &res, `SELECT `+notificationColumns+` FROM notification`, w, " ORDER BY created_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return res, nil
}

func (repo *notificationRepository) CountUnreadNotifications(ctx context.Context) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM notification WHERE NOT is_read`); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return cnt, nil
}

func (repo *notificationRepository) MarkNotificationsRead(ctx context.Context, ids ...string) (int, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`UPDATE notification SET is_read = true WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	return rowsAffected(res), nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE notification SET is_read = true WHERE NOT is_read`)
	if err != nil {
		return 0, errors.Wrap(err, "marking all notifications read")
	}
	return rowsAffected(res), nil
}

func (repo *notificationRepository) DeleteNotification(ctx context.Context, id string) error {
	if !validID(id) {
		return notification.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM notification WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if rowsAffected(res) == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) DeleteNotificationsBefore(ctx context.Context, t time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM notification WHERE created_at < $1`, t.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting old notifications")
	}
	return rowsAffected(res), nil
}

func (repo *notificationRepository) QueryEmailRecipients(ctx context.Context) ([]notification.Recipient, error) {
	recipients := make([]notification.Recipient, 0)
	err := repo.db.SelectContext(ctx, &recipients, `SELECT u.name, u.email
		FROM "user" u
		LEFT JOIN user_preferences p ON p.user_id = u.id
		WHERE u.is_approved AND COALESCE(p.email_notifications, true)
		ORDER BY u.created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying email recipients")
	}
	return recipients, nil
}

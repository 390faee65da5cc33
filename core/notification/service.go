package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

var (
	ErrNotFound = core.NewNotFoundError("notification")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, ntf Notification) (Notification, error)
		// QueryNotifications returns notifications, newest first.
		QueryNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		CountUnreadNotifications(ctx context.Context) (int, error)
		MarkNotificationsRead(ctx context.Context, ids ...string) (int, error)
		MarkAllNotificationsRead(ctx context.Context) (int, error)
		DeleteNotification(ctx context.Context, id string) error
		DeleteNotificationsBefore(ctx context.Context, t time.Time) (int, error)
		// QueryEmailRecipients returns approved users who opted in to email notifications.
		QueryEmailRecipients(ctx context.Context) ([]Recipient, error)
	}

	Service interface {
		Query(ctx context.Context, filter QueryFilter) ([]Notification, error)
		UnreadCount(ctx context.Context) (int, error)
		MarkRead(ctx context.Context, id string) error
		MarkAllRead(ctx context.Context) (int, error)
		Delete(ctx context.Context, id string) error
		// Cleanup deletes notifications older than the retention threshold.
		Cleanup(ctx context.Context, now time.Time) (int, error)
		// Deliver inserts a notification from tmpl and emails the opted-in recipients.
		// An error with a stored Notification means only the emails failed.
		Deliver(ctx context.Context, tmpl Template) (Notification, error)
	}

	service struct {
		repo      Repository
		mailSvc   core.EmailService
		retention time.Duration
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, retention time.Duration) Service {
	return &service{repo: repo, mailSvc: mailSvc, retention: retention}
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, filter)
}

func (svc *service) UnreadCount(ctx context.Context) (int, error) {
	return svc.repo.CountUnreadNotifications(ctx)
}

func (svc *service) MarkRead(ctx context.Context, id string) error {
	cnt, err := svc.repo.MarkNotificationsRead(ctx, id)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}

func (svc *service) MarkAllRead(ctx context.Context) (int, error) {
	return svc.repo.MarkAllNotificationsRead(ctx)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteNotification(ctx, id)
}

func (svc *service) Cleanup(ctx context.Context, now time.Time) (int, error) {
	cnt, err := svc.repo.DeleteNotificationsBefore(ctx, now.Add(-svc.retention))
	if err != nil {
		return 0, errors.Wrap(err, "deleting old notifications")
	}
	return cnt, nil
}

func (svc *service) Deliver(ctx context.Context, tmpl Template) (Notification, error) {
	if err := tmpl.Validate(); err != nil {
		return Notification{}, err
	}
	ntf, err := svc.repo.CreateNotification(ctx, FromTemplate(tmpl, nowFunc()))
	if err != nil {
		return Notification{}, errors.Wrap(err, "inserting notification")
	}

	recipients, err := svc.repo.QueryEmailRecipients(ctx)
	if err != nil {
		return ntf, errors.Wrap(err, "querying email recipients")
	}
	if len(recipients) > 0 && svc.mailSvc != nil {
		messages := make([]*core.EmailMessage, 0, len(recipients))
		for _, rcpt := range recipients {
			messages = append(messages, &core.EmailMessage{
				To:           []mail.Address{{Name: rcpt.Name, Address: rcpt.Email}},
				Subject:      ntf.Title,
				TemplateName: "notification",
				TemplateData: map[string]string{
					"Name":    rcpt.Name,
					"Title":   ntf.Title,
					"Message": ntf.Message,
				},
			})
		}
		svc.mailSvc.SendMessages(messages...)
	}
	return ntf, nil
}

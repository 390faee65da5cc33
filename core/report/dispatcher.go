// Package report emails the periodic attendance report.
package report

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/user"
)

type Dispatcher struct {
	attendanceSvc attendance.Service
	userSvc       user.Service
	mailSvc       core.EmailService
	emitter       notification.Emitter
	reportType    attendance.ReportType
}

func NewDispatcher(
	attendanceSvc attendance.Service,
	userSvc user.Service,
	mailSvc core.EmailService,
	emitter notification.Emitter,
) *Dispatcher {
	return &Dispatcher{
		attendanceSvc: attendanceSvc,
		userSvc:       userSvc,
		mailSvc:       mailSvc,
		emitter:       emitter,
		reportType:    attendance.ReportWeekly,
	}
}

// Dispatch builds the report of the period around now and emails it to every approved admin
// who opted in to report emails. It returns the number of recipients.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time) (int, error) {
	period, err := attendance.ResolvePeriod(d.reportType, "", "", now)
	if err != nil {
		return 0, err
	}
	rep, err := d.attendanceSvc.GenerateReport(ctx, attendance.ReportQuery{
		StartDate: period.StartDate.String(),
		EndDate:   period.EndDate.String(),
		Type:      d.reportType,
	})
	if err != nil {
		return 0, errors.Wrap(err, "generating report")
	}

	approved := true
	admins, err := d.userSvc.Query(ctx, &user.QueryFilter{Role: user.RoleAdmin, IsApproved: &approved, ReportEmails: true}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying report recipients")
	}

	subject := fmt.Sprintf("Attendance report %s - %s", rep.Period.StartDate, rep.Period.EndDate)
	messages := make([]*core.EmailMessage, 0, len(admins))
	for _, admin := range admins {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: admin.Name, Address: admin.Email}},
			Subject:      subject,
			TemplateName: "attendance_report",
			TemplateData: map[string]interface{}{
				"Name":   admin.Name,
				"Report": rep,
			},
		})
	}
	if len(messages) > 0 {
		d.mailSvc.SendMessages(messages...)
	}

	d.emitter.Emit(ctx, notification.Template{
		Title: "Attendance report generated",
		Message: fmt.Sprintf(
			"The %s report (%s - %s) was sent to %d admin(s): %d records, %.1f%% attendance.",
			rep.Period.Type, rep.Period.StartDate, rep.Period.EndDate, len(messages), rep.Summary.Total, rep.Summary.AttendanceRate,
		),
		Type:       notification.TypeReport,
		EntityType: "report",
		Action:     notification.ActionGenerated,
	})
	return len(messages), nil
}

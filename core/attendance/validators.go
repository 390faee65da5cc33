package attendance

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

var (
	statusTag  = "attendance_status"
	statusText = "status must be one of present, absent or late"

	reportTypeTag  = "report_type"
	reportTypeText = "type must be one of daily, weekly or monthly"
)

func init() {
	_ = core.Validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(statusTag, statusText)

	_ = core.Validate.RegisterValidation(reportTypeTag, reportTypeValidation)
	core.RegisterCustomTranslation(reportTypeTag, reportTypeText)
}

func statusValidation(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(Status); ok {
		return s.Valid()
	}
	return false
}

func reportTypeValidation(fl validator.FieldLevel) bool {
	if t, ok := fl.Field().Interface().(ReportType); ok {
		return t.Valid()
	}
	return false
}

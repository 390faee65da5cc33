package student

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

var (
	genderTag  = "gender"
	genderText = "gender must be one of male or female"
)

func init() {
	_ = core.Validate.RegisterValidation(genderTag, genderValidation)
	core.RegisterCustomTranslation(genderTag, genderText)
}

func genderValidation(fl validator.FieldLevel) bool {
	if g, ok := fl.Field().Interface().(Gender); ok {
		return g.Valid()
	}
	return false
}

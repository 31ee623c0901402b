package activation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/classboom/classboom/core"
)

var (
	kindTag  = "principalkind"
	kindText = "{0} must be one of student, parent, staff"

	staffRoleTag  = "staffrole"
	staffRoleText = "{0} must be one of admin, teacher, accountant, secretary"
)

// InitValidators registers the activation validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(kindTag, kindValidation)
	core.RegisterCustomTranslation(validate, translator, kindTag, kindText)

	_ = validate.RegisterValidation(staffRoleTag, staffRoleValidation)
	core.RegisterCustomTranslation(validate, translator, staffRoleTag, staffRoleText)
}

func kindValidation(fl validator.FieldLevel) bool {
	_, err := ParseKind(fl.Field().String())
	return err == nil
}

func staffRoleValidation(fl validator.FieldLevel) bool {
	_, err := ParseStaffRole(fl.Field().String())
	return err == nil
}

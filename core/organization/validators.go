package organization

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
)

var (
	grantTypeTag  = "granttype"
	grantTypeText = "unknown capability"
)

// InitValidators registers the organization validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(grantTypeTag, grantTypeValidation)
	core.RegisterCustomTranslation(validate, translator, grantTypeTag, grantTypeText)
}

// grantTypeValidation accepts both capability & privilege scheme names.
func grantTypeValidation(fl validator.FieldLevel) bool {
	_, ok := capability.ParseGrantType(fl.Field().String())
	return ok
}

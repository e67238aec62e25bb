package excuse

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/himig/core"
)

var (
	excuseKindTag  = "excusekind"
	excuseKindText = "invalid excuse kind"
)

// InitValidators registers this package's custom validators.
// core.InitValidators must have been called first.
func InitValidators() {
	_ = core.Validate.RegisterValidation(excuseKindTag, excuseKindValidation)
	core.RegisterCustomTranslation(excuseKindTag, excuseKindText)
}

// excuseKindValidation checks that the provided kind is a known paalam kind.
func excuseKindValidation(fl validator.FieldLevel) bool {
	kind := Kind(fl.Field().String())
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

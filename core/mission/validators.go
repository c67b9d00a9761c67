package mission

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/cinetwork/cin/backend/core"
)

var (
	schedTag  = "schedule"
	schedText = "the mission must end after it starts"
)

// InitValidators registers the mission validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(missionStructValidation, NewMission{}, UpdateMission{})
	core.RegisterCustomTranslation(validate, translator, schedTag, schedText)
}

func missionStructValidation(sl validator.StructLevel) {
	switch m := sl.Current().Interface().(type) {
	case NewMission:
		validateSchedule(m.StartsAt, m.EndsAt, sl)
	case UpdateMission:
		validateSchedule(m.StartsAt, m.EndsAt, sl)
	}
}

func validateSchedule(startsAt, endsAt *time.Time, sl validator.StructLevel) {
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		sl.ReportError(endsAt, "ends_at", "EndsAt", schedTag, "")
	}
}

package api

import (
	"github.com/go-playground/validator/v10"
)

const (
	maxQuestionOptions = 4
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("options", func(fl validator.FieldLevel) bool {
		opts, ok := fl.Field().Interface().([]OptionInput)
		if !ok {
			return false
		}
		return validOptions(opts) == nil
	})
	return v
}

// validOptions checks the option set of a question: 1 to 4 options,
// distinct order values within 1..4 and exactly one correct option.
func validOptions(opts []OptionInput) error {
	if len(opts) == 0 {
		return errNoOptions
	}
	if len(opts) > maxQuestionOptions {
		return errTooManyOptions
	}
	var (
		seen    [maxQuestionOptions + 1]bool
		correct int
	)
	for _, o := range opts {
		if o.Order < 1 || o.Order > maxQuestionOptions {
			return errOptionOrder
		}
		if seen[o.Order] {
			return errDuplicateOrder
		}
		seen[o.Order] = true
		if o.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return errCorrectCount
	}
	return nil
}

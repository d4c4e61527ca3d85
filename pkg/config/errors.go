package config

import (
	"fmt"

	"dualstrusion-go/pkg/errors"
)

func missingOption(section, option string) *errors.MergeError {
	return errors.Newf(errors.ErrConfigOption, "option '%s' in section '%s' must be specified", option, section).
		SetContext("section", section).
		SetContext("option", option)
}

func invalidValue(section, option, value, expected string) *errors.MergeError {
	return errors.Newf(errors.ErrConfigType, "option '%s' in section '%s': invalid value '%s', expected %s",
		option, section, value, expected).
		SetContext("section", section).
		SetContext("option", option)
}

func outOfRange(section, option string, value float64, constraint string) *errors.MergeError {
	return errors.ConfigValidationError(section, option, fmt.Sprintf("value %v %s", value, constraint))
}

package domain

import "errors"

var (
	ErrNotFound = errors.New("not_found")

	ErrInvalidTitle               = errors.New("invalid_title")
	ErrInvalidDescription         = errors.New("invalid_description")
	ErrInvalidLocationRequirement = errors.New("invalid_location_requirement")
	ErrInvalidExperienceLevel     = errors.New("invalid_experience_level")
	ErrInvalidEmploymentType      = errors.New("invalid_employment_type")
	ErrInvalidLocation            = errors.New("invalid_location")
	ErrInvalidWage                = errors.New("invalid_wage")
)

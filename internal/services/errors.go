package services

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrOwnerRequired    = errors.New("a signed in user is required")
	ErrInvalidStatus    = errors.New("attendance status must be attending (1) or not attending (2)")
	ErrInvalidFile      = errors.New("file is missing or has no usable name")
	ErrInvalidBirthday  = errors.New("birthday must be a YYYY-MM-DD date")
)

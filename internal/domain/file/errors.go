package file

import "errors"

var (
	ErrFileNotFound = errors.New("file not found")
	ErrValidation   = errors.New("validation error")
	ErrPersistence  = errors.New("catalog persistence failure")
	ErrDuplicate    = errors.New("duplicate catalog entry")
)

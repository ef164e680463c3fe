package blobstore

import "errors"

var (
	ErrNotFound             = errors.New("blob not found")
	ErrInvalidRange         = errors.New("invalid byte range")
	ErrUnsupportedMediaType = errors.New("file type is not allowed")
	ErrPayloadTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrEmptyFile            = errors.New("file is empty")
)

package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrBusy     = errors.New("busy")
)

package domain

import "errors"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrDecode          = errors.New("document decode failed")
	ErrUnknownContract = errors.New("unknown document contract")
	ErrUnsupportedMime = errors.New("unsupported content type")
	ErrEmptyDocument   = errors.New("document contains no recognizable text")
)

package repository

import "errors"

var (
	ErrProfileNotFound   = errors.New("smtp profile not found")
	ErrProfileNameExists = errors.New("smtp profile with this name already exists")
	ErrRecordNotFound    = errors.New("delivery record not found")
	ErrRecordTerminal    = errors.New("delivery record missing or already terminal")
	ErrInvalidInput      = errors.New("invalid input parameters")
)

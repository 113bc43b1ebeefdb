package models

import "errors"

var (
	// ErrNotFound is returned when a stored record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when inserting a record whose key is taken.
	ErrConflict = errors.New("already exists")
)

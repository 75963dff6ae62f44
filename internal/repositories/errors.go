package repositories

import "errors"

// ErrNotFound is returned when a referenced document or row does not exist.
var ErrNotFound = errors.New("not found")

package repositories

import "errors"

// ErrNotFound is returned by all repositories when a lookup misses. Callers
// that need to distinguish "doesn't exist" from other failures test for it
// with errors.Is.
var ErrNotFound = errors.New("record not found")

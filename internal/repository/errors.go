package repository

import "errors"

// ErrDuplicate is returned by adapters when a write violates a uniqueness
// constraint (webhook identity, schedule external ref).
var ErrDuplicate = errors.New("duplicate record")

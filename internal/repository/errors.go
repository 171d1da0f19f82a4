package repository

import "errors"

var (
	// ErrNotFound indicates the requested record id is absent from the store
	ErrNotFound = errors.New("classification record not found")

	// ErrStoreUnavailable indicates the persistence layer is unreachable
	ErrStoreUnavailable = errors.New("store unavailable")
)

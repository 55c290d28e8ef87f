package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable covers transport failures, timeouts and an open circuit.
	ErrRemoteUnavailable = errors.New("remote catalog unavailable")
	// ErrRemoteNotFound covers non-2xx answers and empty documents.
	ErrRemoteNotFound = errors.New("remote item not found")
	// ErrNotBackedUp means a files backup was requested before any metadata backup.
	ErrNotBackedUp = errors.New("archive item not found, backup metadata first")
	ErrIntegrityConflict = errors.New("database integrity error")
	ErrFilesystem        = errors.New("filesystem error")
	ErrUnsafePath        = fmt.Errorf("%w: unsafe file path", ErrFilesystem)
	ErrChecksumMismatch  = fmt.Errorf("%w: checksum mismatch", ErrFilesystem)
	ErrAlreadyExists     = errors.New("item already exists")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

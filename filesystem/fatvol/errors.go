package fatvol

import "errors"

// Sentinel errors, grouped by §7 error-taxonomy bucket, so callers can
// errors.Is against a stable category instead of parsing messages. Disk I/O
// errors have no sentinel here; they are returned wrapped as they are.
var (
	// Validation
	ErrInvalidName       = errors.New("fatvol: file name must be 1..15 characters")
	ErrInvalidDescriptor = errors.New("fatvol: invalid or unused file descriptor")
	ErrInvalidOffset     = errors.New("fatvol: offset out of range")
	ErrInvalidLength     = errors.New("fatvol: length out of range")

	// State
	ErrNotMounted      = errors.New("fatvol: volume is not mounted")
	ErrAlreadyMounted  = errors.New("fatvol: volume is already mounted")
	ErrNotFormatted    = errors.New("fatvol: volume was never formatted with MakeFS")
	ErrAlreadyExists   = errors.New("fatvol: a disk image already exists at this path")

	// Resource exhaustion
	ErrDirectoryFull   = errors.New("fatvol: directory is full")
	ErrDescriptorsFull = errors.New("fatvol: no free file descriptors")
	ErrNoSpace         = errors.New("fatvol: no free blocks on volume")

	// Referential
	ErrFileNotFound = errors.New("fatvol: no such file")
	ErrFileExists   = errors.New("fatvol: a file with that name already exists")
	ErrFileInUse    = errors.New("fatvol: file is open and cannot be deleted")
)

package ledger

import (
	"errors"
	"fmt"
)

// ErrNotLoaded is returned by mutations attempted before Load.
var ErrNotLoaded = errors.New("ledger not loaded")

// StorageError wraps a failure to read, write or (de)serialize the persisted ledger.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err carries a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

package analysis

import (
	"errors"
	"fmt"
)

// ErrValidation covers rejected request input other than a missing file.
var ErrValidation = errors.New("validation failed")

// ErrNoImage indicates the request carried no usable image payload.
var ErrNoImage = errors.New("no image file supplied")

// ErrStoreUnavailable indicates the object store handle was never initialized.
var ErrStoreUnavailable = errors.New("object store not initialized")

// ErrHistoryDisabled indicates no history database was configured.
var ErrHistoryDisabled = errors.New("analysis history not configured")

// ErrNotFound indicates a stored object or record does not exist.
var ErrNotFound = errors.New("not found")

// StorageError covers connection loss, write interruption and read failures
// against the object store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// UpstreamError covers any failure of the vision model call: transport,
// quota rejection, or a malformed response. The HTTP layer does not
// distinguish between these.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("upstream analysis failed: %v", e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

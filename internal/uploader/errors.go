package uploader

import "fmt"

// PresignError indicates the backend rejected the presign request. Message
// is the server's own error text when it provided one.
type PresignError struct {
	StatusCode int
	Message    string
}

func (e *PresignError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("presign failed with status %d", e.StatusCode)
}

// TransferError indicates the direct write to object storage failed. The
// job stays in whatever state the backend assigned; a partial direct write
// cannot be resumed, so there is no automatic retry.
type TransferError struct {
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage transfer: %v", e.Err)
	}
	return fmt.Sprintf("storage transfer failed with status %d", e.StatusCode)
}

func (e *TransferError) Unwrap() error { return e.Err }

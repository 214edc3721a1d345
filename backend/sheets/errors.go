package sheets

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrNotNativeSpreadsheet is returned by Describe for Excel files stored in
// Drive, which the Sheets API cannot edit in place.
var ErrNotNativeSpreadsheet = errors.New("file is an Excel workbook, not a Google Sheet; convert it with File > Save as Google Sheets")

// ErrNotSpreadsheet is returned by Describe for Drive files of any other type.
var ErrNotSpreadsheet = errors.New("file is not a spreadsheet")

// RemoteAccessError is a read or write the underlying store rejected.
type RemoteAccessError struct {
	Op      string // "list", "read", "append", "batch", "describe", "open"
	Code    int    // HTTP status when known, 0 otherwise
	Message string // user-facing explanation
	Err     error
}

func (e *RemoteAccessError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *RemoteAccessError) Unwrap() error {
	return e.Err
}

// wrapAPIError turns a Google API error into a RemoteAccessError.
func wrapAPIError(op string, err error) error {
	if err == nil {
		return nil
	}
	rae := &RemoteAccessError{Op: op, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		rae.Code = gerr.Code
	}
	switch rae.Code {
	case http.StatusNotFound:
		rae.Message = "file not found; check the spreadsheet ID"
	case http.StatusForbidden:
		rae.Message = "permission denied; the account needs Editor access to this sheet"
	case http.StatusUnauthorized:
		rae.Message = "authentication expired; log in again"
	default:
		rae.Message = "the Google API request failed"
	}
	return rae
}

// localError wraps a failure of the local workbook backend.
func localError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteAccessError{Op: op, Message: "workbook operation failed", Err: err}
}

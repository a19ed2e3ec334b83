package transport

import "fmt"

// ErrorCode is a closed set of transport failure classifications
// (spec §4.6 "Key behaviors").
type ErrorCode string

const (
	ErrUnsupportedProtocol ErrorCode = "UNSUPPORTED_PROTOCOL"

	ErrFTPConnectionError ErrorCode = "FTP_CONNECTION_ERROR"
	ErrFTPDisconnectError ErrorCode = "FTP_DISCONNECT_ERROR"
	ErrFTPNotConnected    ErrorCode = "FTP_NOT_CONNECTED"
	ErrFTPMkdirError      ErrorCode = "FTP_MKDIR_ERROR"

	ErrSFTPConnectionError ErrorCode = "SFTP_CONNECTION_ERROR"
	ErrSFTPDisconnectError ErrorCode = "SFTP_DISCONNECT_ERROR"
	ErrSFTPNotConnected    ErrorCode = "SFTP_NOT_CONNECTED"
	ErrSFTPMkdirError      ErrorCode = "SFTP_MKDIR_ERROR"

	ErrLocalFileNotFound ErrorCode = "LOCAL_FILE_NOT_FOUND"
	ErrUnknown           ErrorCode = "UNKNOWN_ERROR"
)

// Error is a typed transport failure carrying a closed-set Code alongside
// the underlying cause (spec §4.6).
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Err: err}
}

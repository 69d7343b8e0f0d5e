package registry

import (
	"errors"
	"fmt"
)

// Status is a Win32 error code as returned by the registry API. Zero is
// success. Status implements error so operation-level failures can travel
// through ordinary error returns and be recovered with AsStatus.
type Status uint32

const (
	ErrorSuccess              Status = 0
	ErrorFileNotFound         Status = 2
	ErrorAccessDenied         Status = 5
	ErrorInvalidHandle        Status = 6
	ErrorNotEnoughMemory      Status = 8
	ErrorInvalidData          Status = 13
	ErrorOutOfMemory          Status = 14
	ErrorBadNetPath           Status = 53
	ErrorInvalidParameter     Status = 87
	ErrorCallNotImplemented   Status = 120
	ErrorInsufficientBuffer   Status = 122
	ErrorBadPathname          Status = 161
	ErrorAlreadyExists        Status = 183
	ErrorMoreData             Status = 234
	ErrorNoMoreItems          Status = 259
	ErrorBadDB                Status = 1009
	ErrorBadKey               Status = 1010
	ErrorCantOpen             Status = 1011
	ErrorCantRead             Status = 1012
	ErrorCantWrite            Status = 1013
	ErrorKeyDeleted           Status = 1018
	ErrorKeyHasChildren       Status = 1020
	ErrorNoUnicodeTranslation Status = 1113
	ErrorPrivilegeNotHeld     Status = 1314
	WSAENotConn               Status = 10057
)

func (s Status) Error() string {
	return fmt.Sprintf("winerror %d (0x%x)", uint32(s), uint32(s))
}

// OK reports whether s is ErrorSuccess.
func (s Status) OK() bool {
	return s == ErrorSuccess
}

// AsStatus extracts an operation-level status from err. A nil error is
// ErrorSuccess.
func AsStatus(err error) (Status, bool) {
	if err == nil {
		return ErrorSuccess, true
	}

	var st Status
	if errors.As(err, &st) {
		return st, true
	}

	return ErrorSuccess, false
}

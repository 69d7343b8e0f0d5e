package registry

// systemMessages holds the system message table entries for every status the
// in-memory registry can produce, worded and terminated as FormatMessage
// returns them.
var systemMessages = map[Status]string{
	ErrorSuccess:              "The operation completed successfully.\r\n",
	ErrorFileNotFound:         "The system cannot find the file specified.\r\n",
	ErrorAccessDenied:         "Access is denied.\r\n",
	ErrorInvalidHandle:        "The handle is invalid.\r\n",
	ErrorNotEnoughMemory:      "Not enough memory resources are available to process this command.\r\n",
	ErrorInvalidData:          "The data is invalid.\r\n",
	ErrorOutOfMemory:          "Not enough memory resources are available to complete this operation.\r\n",
	ErrorBadNetPath:           "The network path was not found.\r\n",
	ErrorInvalidParameter:     "The parameter is incorrect.\r\n",
	ErrorCallNotImplemented:   "This function is not supported on this system.\r\n",
	ErrorInsufficientBuffer:   "The data area passed to a system call is too small.\r\n",
	ErrorBadPathname:          "The specified path is invalid.\r\n",
	ErrorAlreadyExists:        "Cannot create a file when that file already exists.\r\n",
	ErrorMoreData:             "More data is available.\r\n",
	ErrorNoMoreItems:          "No more data is available.\r\n",
	ErrorBadDB:                "The configuration registry database is corrupt.\r\n",
	ErrorBadKey:               "The configuration registry key is invalid.\r\n",
	ErrorCantOpen:             "The configuration registry key could not be opened.\r\n",
	ErrorCantRead:             "The configuration registry key could not be read.\r\n",
	ErrorCantWrite:            "The configuration registry key could not be written.\r\n",
	ErrorKeyDeleted:           "Illegal operation attempted on a registry key that has been marked for deletion.\r\n",
	ErrorKeyHasChildren:       "Cannot create a symbolic link in a registry key that already has subkeys or values.\r\n",
	ErrorNoUnicodeTranslation: "No mapping for the Unicode character exists in the target multi-byte code page.\r\n",
	ErrorPrivilegeNotHeld:     "A required privilege is not held by the client.\r\n",
	WSAENotConn:               "A request to send or receive data was disallowed because the socket is not connected and (when sending on a datagram socket) no address was supplied.\r\n",
}

const (
	messageBufferStart = 512

	// messageBufferLimit is the most FormatMessage will write, in code units.
	messageBufferLimit = 64 << 10
)

// formatGrowing calls format with a buffer that doubles for as long as the
// message does not fit. format returns the code units written.
func formatGrowing(format func(buf []uint16) (int, Status)) (Wide, bool) {
	for size := messageBufferStart; size <= messageBufferLimit; size *= 2 {
		buf := make([]uint16, size)

		n, st := format(buf)
		switch {
		case st == ErrorInsufficientBuffer:
			continue
		case !st.OK() || n == 0:
			return nil, false
		}

		return Wide(buf[:n]), true
	}

	return nil, false
}

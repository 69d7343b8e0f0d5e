package registry

// KeyInfo is the subset of RegQueryInfoKey output the bridge uses. Lengths are
// in UTF-16 code units without the terminator, except MaxValueLen which is in
// bytes.
type KeyInfo struct {
	SubKeys         uint32
	MaxSubKeyLen    uint32
	Values          uint32
	MaxValueNameLen uint32
	MaxValueLen     uint32

	// LastWriteTime is a FILETIME: 100ns intervals since 1601-01-01 UTC.
	LastWriteTime uint64
}

// ValueInfo describes the value found by EnumValue.
type ValueInfo struct {
	// NameLen is the name length in code units, without the terminator.
	NameLen int
	Type    ValueType
	// DataLen is the number of data bytes written, or required when the
	// status is ErrorMoreData.
	DataLen int
}

// API is the registry surface the bridge forwards to. Every method mirrors
// one Win32 call and reports its outcome as a Status rather than an error:
// failures here are data to be sent back, not reasons to stop.
//
// Wide arguments that are nil are passed to the platform as NULL. Output
// buffers are caller allocated; a buffer that is too small yields
// ErrorMoreData.
type API interface {
	CloseKey(key Handle) Status
	ConnectRegistry(machine Wide, key Handle) (Handle, Status)
	CreateKey(key Handle, subKey Wide) (Handle, Status)
	CreateKeyEx(key Handle, subKey Wide, reserved uint32, access Access) (Handle, Status)
	DeleteKey(key Handle, subKey Wide) Status
	DeleteKeyEx(key Handle, subKey Wide, access Access, reserved uint32) Status
	DeleteValue(key Handle, name Wide) Status

	// EnumKey writes the name of the index-th subkey into name and returns
	// its length.
	EnumKey(key Handle, index uint32, name []uint16) (int, Status)
	EnumValue(key Handle, index uint32, name []uint16, data []byte) (ValueInfo, Status)

	// ExpandEnvironmentStrings returns the number of code units, including
	// the terminator, that the expansion needs. A nil dst only probes.
	ExpandEnvironmentStrings(src Wide, dst []uint16) (int, Status)

	FlushKey(key Handle) Status
	LoadKey(key Handle, subKey, file Wide) Status
	OpenKeyEx(key Handle, subKey Wide, options uint32, access Access) (Handle, Status)
	QueryInfoKey(key Handle) (KeyInfo, Status)

	// QueryValue reads the default value of subKey as a string. The returned
	// size is in bytes and includes the terminator. A nil buf only probes.
	QueryValue(key Handle, subKey Wide, buf []uint16) (int, Status)

	// QueryValueEx reads a named value. A nil data only probes for the size.
	QueryValueEx(key Handle, name Wide, data []byte) (ValueType, int, Status)

	SaveKey(key Handle, file Wide) Status
	SetValue(key Handle, subKey, data Wide) Status
	SetValueEx(key Handle, name Wide, typ ValueType, data []byte) Status

	DisableReflectionKey(key Handle) Status
	EnableReflectionKey(key Handle) Status
	QueryReflectionKey(key Handle) (bool, Status)
}

// MessageLookup resolves a status to the platform's description of it.
// The text is returned untrimmed. ok is false when the platform has no
// message for the code.
type MessageLookup interface {
	FormatMessage(st Status) (msg Wide, ok bool)
}

// Backend is a registry API that can also describe its own status codes.
type Backend interface {
	API
	MessageLookup
}

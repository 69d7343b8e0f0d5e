package registry

import (
	"fmt"
	"strings"
)

// Handle is an opaque 64-bit token naming an open registry key.
//
// The bridge never dereferences a Handle. It only carries the value between
// the wire and the registry API, so the underlying integer is kept private to
// stop handles being mixed up with counts or indices.
type Handle struct {
	v uint64
}

// Predefined root keys. The values match the HKEY_* constants of the Win32 API.
var (
	ClassesRoot     = Handle{0x80000000}
	CurrentUser     = Handle{0x80000001}
	LocalMachine    = Handle{0x80000002}
	Users           = Handle{0x80000003}
	PerformanceData = Handle{0x80000004}
	CurrentConfig   = Handle{0x80000005}
	DynData         = Handle{0x80000006}
)

// NoKey is the zero handle.
var NoKey = Handle{}

// HandleFromUint64 wraps a raw token received from the wire or from the API.
func HandleFromUint64(v uint64) Handle {
	return Handle{v}
}

// Uint64 returns the raw token for transmission.
func (h Handle) Uint64() uint64 {
	return h.v
}

// IsZero reports whether h is the "no key" handle.
func (h Handle) IsZero() bool {
	return h.v == 0
}

// Predefined reports whether h is one of the HKEY_* root constants. Both the
// zero-extended and the sign-extended 64-bit forms are accepted.
func (h Handle) Predefined() bool {
	low := h.v & 0xffffffff
	high := h.v >> 32
	if high != 0 && high != 0xffffffff {
		return false
	}

	return low >= ClassesRoot.v && low <= DynData.v
}

// root folds a predefined handle onto its zero-extended form.
func (h Handle) root() Handle {
	if !h.Predefined() {
		return h
	}

	return Handle{h.v & 0xffffffff}
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%08X", h.v)
}

var rootNames = map[Handle]string{
	ClassesRoot:     "HKEY_CLASSES_ROOT",
	CurrentUser:     "HKEY_CURRENT_USER",
	LocalMachine:    "HKEY_LOCAL_MACHINE",
	Users:           "HKEY_USERS",
	PerformanceData: "HKEY_PERFORMANCE_DATA",
	CurrentConfig:   "HKEY_CURRENT_CONFIG",
	DynData:         "HKEY_DYN_DATA",
}

var rootAliases = map[string]Handle{
	"HKCR": ClassesRoot,
	"HKCU": CurrentUser,
	"HKLM": LocalMachine,
	"HKU":  Users,
	"HKCC": CurrentConfig,
}

// RootName returns the HKEY_* name of a predefined handle.
func RootName(h Handle) (string, bool) {
	name, ok := rootNames[h.root()]
	return name, ok
}

// ParseRoot maps "HKEY_CURRENT_USER" or its short form "HKCU" (any case) to
// the predefined handle.
func ParseRoot(name string) (Handle, bool) {
	for h, n := range rootNames {
		if strings.EqualFold(n, name) {
			return h, true
		}
	}

	for alias, h := range rootAliases {
		if strings.EqualFold(alias, name) {
			return h, true
		}
	}

	return NoKey, false
}

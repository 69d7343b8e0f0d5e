//go:build windows

package registry

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	advapi32 = windows.NewLazySystemDLL("advapi32.dll")

	procRegConnectRegistryW     = advapi32.NewProc("RegConnectRegistryW")
	procRegCreateKeyW           = advapi32.NewProc("RegCreateKeyW")
	procRegCreateKeyExW         = advapi32.NewProc("RegCreateKeyExW")
	procRegDeleteKeyW           = advapi32.NewProc("RegDeleteKeyW")
	procRegDeleteKeyExW         = advapi32.NewProc("RegDeleteKeyExW")
	procRegDeleteValueW         = advapi32.NewProc("RegDeleteValueW")
	procRegEnumValueW           = advapi32.NewProc("RegEnumValueW")
	procRegFlushKey             = advapi32.NewProc("RegFlushKey")
	procRegLoadKeyW             = advapi32.NewProc("RegLoadKeyW")
	procRegQueryValueW          = advapi32.NewProc("RegQueryValueW")
	procRegSaveKeyW             = advapi32.NewProc("RegSaveKeyW")
	procRegSetValueW            = advapi32.NewProc("RegSetValueW")
	procRegSetValueExW          = advapi32.NewProc("RegSetValueExW")
	procRegDisableReflectionKey = advapi32.NewProc("RegDisableReflectionKey")
	procRegEnableReflectionKey  = advapi32.NewProc("RegEnableReflectionKey")
	procRegQueryReflectionKey   = advapi32.NewProc("RegQueryReflectionKey")
)

// Native forwards every call to the Windows registry.
type Native struct{}

// OpenNative returns the platform registry.
func OpenNative() (Backend, error) {
	if err := advapi32.Load(); err != nil {
		return nil, err
	}

	return &Native{}, nil
}

func hkey(h Handle) windows.Handle {
	return windows.Handle(h.Uint64())
}

// wstr returns a NUL terminated copy of w, or nil for an absent string.
func wstr(w Wide) *uint16 {
	if w == nil {
		return nil
	}

	return &w.Terminated()[0]
}

func wbuf(b []uint16) *uint16 {
	if len(b) == 0 {
		return nil
	}

	return &b[0]
}

func bbuf(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}

	return &b[0]
}

func status(err error) Status {
	if err == nil {
		return ErrorSuccess
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return Status(errno)
	}

	return ErrorInvalidParameter
}

// call invokes a registry proc, whose return value is the status itself.
func call(proc *windows.LazyProc, args ...uintptr) Status {
	if err := proc.Find(); err != nil {
		return ErrorCallNotImplemented
	}

	r, _, _ := proc.Call(args...)
	return Status(uint32(r))
}

func (Native) CloseKey(key Handle) Status {
	return status(windows.RegCloseKey(hkey(key)))
}

func (Native) ConnectRegistry(machine Wide, key Handle) (Handle, Status) {
	var result windows.Handle
	st := call(procRegConnectRegistryW,
		uintptr(unsafe.Pointer(wstr(machine))),
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(&result)))

	return HandleFromUint64(uint64(result)), st
}

func (Native) CreateKey(key Handle, subKey Wide) (Handle, Status) {
	var result windows.Handle
	st := call(procRegCreateKeyW,
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(wstr(subKey))),
		uintptr(unsafe.Pointer(&result)))

	return HandleFromUint64(uint64(result)), st
}

func (Native) CreateKeyEx(key Handle, subKey Wide, reserved uint32, access Access) (Handle, Status) {
	var result windows.Handle
	st := call(procRegCreateKeyExW,
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(wstr(subKey))),
		uintptr(reserved),
		0, // class
		0, // options
		uintptr(access),
		0, // security attributes
		uintptr(unsafe.Pointer(&result)),
		0) // disposition

	return HandleFromUint64(uint64(result)), st
}

func (Native) DeleteKey(key Handle, subKey Wide) Status {
	return call(procRegDeleteKeyW, uintptr(hkey(key)), uintptr(unsafe.Pointer(wstr(subKey))))
}

func (Native) DeleteKeyEx(key Handle, subKey Wide, access Access, reserved uint32) Status {
	return call(procRegDeleteKeyExW,
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(wstr(subKey))),
		uintptr(access),
		uintptr(reserved))
}

func (Native) DeleteValue(key Handle, name Wide) Status {
	return call(procRegDeleteValueW, uintptr(hkey(key)), uintptr(unsafe.Pointer(wstr(name))))
}

func (Native) EnumKey(key Handle, index uint32, name []uint16) (int, Status) {
	n := uint32(len(name))
	err := windows.RegEnumKeyEx(hkey(key), index, wbuf(name), &n, nil, nil, nil, nil)

	return int(n), status(err)
}

func (Native) EnumValue(key Handle, index uint32, name []uint16, data []byte) (ValueInfo, Status) {
	nameLen := uint32(len(name))
	dataLen := uint32(len(data))
	var typ uint32

	st := call(procRegEnumValueW,
		uintptr(hkey(key)),
		uintptr(index),
		uintptr(unsafe.Pointer(wbuf(name))),
		uintptr(unsafe.Pointer(&nameLen)),
		0, // reserved
		uintptr(unsafe.Pointer(&typ)),
		uintptr(unsafe.Pointer(bbuf(data))),
		uintptr(unsafe.Pointer(&dataLen)))

	info := ValueInfo{NameLen: int(nameLen), Type: ValueType(typ), DataLen: int(dataLen)}
	if st.OK() {
		// nameLen is not reset between retries; trust the terminator.
		info.NameLen = len(Wide(name).CutNul())
	}

	return info, st
}

func (Native) ExpandEnvironmentStrings(src Wide, dst []uint16) (int, Status) {
	n, err := windows.ExpandEnvironmentStrings(wstr(src), wbuf(dst), uint32(len(dst)))
	if err != nil {
		return 0, status(err)
	}

	if dst != nil && int(n) > len(dst) {
		return int(n), ErrorMoreData
	}

	return int(n), ErrorSuccess
}

func (Native) FlushKey(key Handle) Status {
	return call(procRegFlushKey, uintptr(hkey(key)))
}

func (Native) LoadKey(key Handle, subKey, file Wide) Status {
	return call(procRegLoadKeyW,
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(wstr(subKey))),
		uintptr(unsafe.Pointer(wstr(file))))
}

func (Native) OpenKeyEx(key Handle, subKey Wide, options uint32, access Access) (Handle, Status) {
	var result windows.Handle
	err := windows.RegOpenKeyEx(hkey(key), wstr(subKey), options, uint32(access), &result)

	return HandleFromUint64(uint64(result)), status(err)
}

func (Native) QueryInfoKey(key Handle) (KeyInfo, Status) {
	var info KeyInfo
	var ft windows.Filetime

	err := windows.RegQueryInfoKey(hkey(key), nil, nil, nil,
		&info.SubKeys, &info.MaxSubKeyLen, nil,
		&info.Values, &info.MaxValueNameLen, &info.MaxValueLen,
		nil, &ft)

	info.LastWriteTime = uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime)
	return info, status(err)
}

func (Native) QueryValue(key Handle, subKey Wide, buf []uint16) (int, Status) {
	size := int32(2 * len(buf))
	st := call(procRegQueryValueW,
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(wstr(subKey))),
		uintptr(unsafe.Pointer(wbuf(buf))),
		uintptr(unsafe.Pointer(&size)))

	return int(size), st
}

func (Native) QueryValueEx(key Handle, name Wide, data []byte) (ValueType, int, Status) {
	var typ uint32
	n := uint32(len(data))
	err := windows.RegQueryValueEx(hkey(key), wstr(name), nil, &typ, bbuf(data), &n)

	return ValueType(typ), int(n), status(err)
}

func (Native) SaveKey(key Handle, file Wide) Status {
	return call(procRegSaveKeyW,
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(wstr(file))),
		0) // security attributes
}

func (Native) SetValue(key Handle, subKey, data Wide) Status {
	return call(procRegSetValueW,
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(wstr(subKey))),
		uintptr(TypeString),
		uintptr(unsafe.Pointer(wstr(data))),
		uintptr(len(data)))
}

func (Native) SetValueEx(key Handle, name Wide, typ ValueType, data []byte) Status {
	return call(procRegSetValueExW,
		uintptr(hkey(key)),
		uintptr(unsafe.Pointer(wstr(name))),
		0, // reserved
		uintptr(typ),
		uintptr(unsafe.Pointer(bbuf(data))),
		uintptr(len(data)))
}

func (Native) DisableReflectionKey(key Handle) Status {
	return call(procRegDisableReflectionKey, uintptr(hkey(key)))
}

func (Native) EnableReflectionKey(key Handle) Status {
	return call(procRegEnableReflectionKey, uintptr(hkey(key)))
}

func (Native) QueryReflectionKey(key Handle) (bool, Status) {
	var disabled int32
	st := call(procRegQueryReflectionKey, uintptr(hkey(key)), uintptr(unsafe.Pointer(&disabled)))

	return st.OK() && disabled != 0, st
}

// FormatMessage asks the system message table for st, in the default
// language.
func (Native) FormatMessage(st Status) (Wide, bool) {
	flags := uint32(windows.FORMAT_MESSAGE_FROM_SYSTEM | windows.FORMAT_MESSAGE_IGNORE_INSERTS)

	return formatGrowing(func(buf []uint16) (int, Status) {
		n, err := windows.FormatMessage(flags, 0, uint32(st), 0, buf, nil)
		if err != nil {
			var errno windows.Errno
			if errors.As(err, &errno) {
				return 0, Status(errno)
			}
			return 0, ErrorInvalidParameter
		}

		return int(n), ErrorSuccess
	})
}

var _ Backend = Native{}

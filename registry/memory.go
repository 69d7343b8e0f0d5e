package registry

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/luma/regbridge/storage"
)

// filetimeEpoch is 1970-01-01 expressed as a FILETIME.
const filetimeEpoch = 116444736000000000

// REG_OPTION_OPEN_LINK, the only option OpenKeyEx accepts besides zero.
const optionOpenLink = 0x8

type memValue struct {
	name string
	typ  ValueType
	data []byte
}

type memKey struct {
	name      string
	parent    *memKey
	subkeys   []*memKey
	values    []*memValue
	lastWrite uint64
	deleted   bool
	root      bool

	reflectionDisabled bool
}

func (k *memKey) child(name string) *memKey {
	for _, sub := range k.subkeys {
		if strings.EqualFold(sub.name, name) {
			return sub
		}
	}

	return nil
}

func (k *memKey) value(name string) (int, *memValue) {
	for i, v := range k.values {
		if strings.EqualFold(v.name, name) {
			return i, v
		}
	}

	return -1, nil
}

func (k *memKey) removeChild(c *memKey) {
	for i, sub := range k.subkeys {
		if sub == c {
			k.subkeys = append(k.subkeys[:i], k.subkeys[i+1:]...)
			return
		}
	}
}

func (k *memKey) markDeleted() {
	k.deleted = true
	for _, sub := range k.subkeys {
		sub.markDeleted()
	}
}

// MemoryOption configures a Memory registry.
type MemoryOption func(*Memory)

// WithEnv replaces the environment used by ExpandEnvironmentStrings.
func WithEnv(lookup func(name string) (string, bool)) MemoryOption {
	return func(m *Memory) {
		m.lookupEnv = lookup
	}
}

// WithStore sets where SaveKey writes and LoadKey reads hives.
func WithStore(store storage.Store) MemoryOption {
	return func(m *Memory) {
		m.store = store
	}
}

// WithClock sets the source of key last write times.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// Memory is a self contained registry held in process memory. It follows the
// Win32 registry's status contract closely enough to stand in for it in tests
// and on platforms without a native registry.
type Memory struct {
	mu sync.Mutex

	roots map[Handle]*memKey
	open  map[uint64]*memKey
	next  uint64

	lookupEnv func(string) (string, bool)
	store     storage.Store
	now       func() time.Time
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		open:      make(map[uint64]*memKey),
		next:      0x100,
		lookupEnv: os.LookupEnv,
		store:     storage.NewInmemoryStore(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.roots = make(map[Handle]*memKey)
	for _, h := range []Handle{ClassesRoot, CurrentUser, LocalMachine, Users, CurrentConfig} {
		name, _ := RootName(h)
		m.roots[h] = &memKey{name: name, root: true, lastWrite: m.filetime()}
	}

	return m
}

func (m *Memory) filetime() uint64 {
	return uint64(m.now().UnixNano()/100) + filetimeEpoch
}

func (m *Memory) touch(k *memKey) {
	k.lastWrite = m.filetime()
}

// resolve maps a handle to its key. Callers hold m.mu.
func (m *Memory) resolve(h Handle) (*memKey, Status) {
	if h.Predefined() {
		if k, ok := m.roots[h.root()]; ok {
			return k, ErrorSuccess
		}

		return nil, ErrorInvalidHandle
	}

	k, ok := m.open[h.Uint64()]
	if !ok {
		return nil, ErrorInvalidHandle
	}

	if k.deleted {
		return nil, ErrorKeyDeleted
	}

	return k, ErrorSuccess
}

func (m *Memory) newHandle(k *memKey) Handle {
	h := HandleFromUint64(m.next)
	m.open[m.next] = k
	m.next += 4

	return h
}

// splitPath breaks a backslash separated key path into its components.
func splitPath(path Wide) ([]string, Status) {
	s, err := path.CutNul().UTF8()
	if err != nil {
		return nil, ErrorNoUnicodeTranslation
	}

	var parts []string
	for _, p := range strings.Split(s, `\`) {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return parts, ErrorSuccess
}

// walk follows path below k. A nil result means a component is missing.
func walk(k *memKey, parts []string) *memKey {
	for _, p := range parts {
		if k = k.child(p); k == nil {
			return nil
		}
	}

	return k
}

func (m *Memory) lookup(key Handle, subKey Wide) (*memKey, Status) {
	k, st := m.resolve(key)
	if !st.OK() {
		return nil, st
	}

	parts, st := splitPath(subKey)
	if !st.OK() {
		return nil, st
	}

	if k = walk(k, parts); k == nil {
		return nil, ErrorFileNotFound
	}

	return k, ErrorSuccess
}

func (m *Memory) create(key Handle, subKey Wide) (*memKey, Status) {
	k, st := m.resolve(key)
	if !st.OK() {
		return nil, st
	}

	parts, st := splitPath(subKey)
	if !st.OK() {
		return nil, st
	}

	for _, p := range parts {
		next := k.child(p)
		if next == nil {
			next = &memKey{name: p, parent: k, lastWrite: m.filetime()}
			k.subkeys = append(k.subkeys, next)
			m.touch(k)
		}
		k = next
	}

	return k, ErrorSuccess
}

func valueName(name Wide) (string, Status) {
	s, err := name.CutNul().UTF8()
	if err != nil {
		return "", ErrorNoUnicodeTranslation
	}

	return s, ErrorSuccess
}

func (m *Memory) CloseKey(key Handle) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key.Predefined() {
		return ErrorSuccess
	}

	if _, ok := m.open[key.Uint64()]; !ok {
		return ErrorInvalidHandle
	}

	delete(m.open, key.Uint64())
	return ErrorSuccess
}

func isLocalMachine(machine string) bool {
	machine = strings.TrimPrefix(machine, `\\`)
	switch strings.ToLower(machine) {
	case "", ".", "localhost", "127.0.0.1":
		return true
	}

	host, err := os.Hostname()
	return err == nil && strings.EqualFold(host, machine)
}

func (m *Memory) ConnectRegistry(machine Wide, key Handle) (Handle, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, err := machine.CutNul().UTF8()
	if err != nil {
		return NoKey, ErrorNoUnicodeTranslation
	}

	if !isLocalMachine(name) {
		return NoKey, ErrorBadNetPath
	}

	if key.root() != LocalMachine && key.root() != Users {
		return NoKey, ErrorInvalidHandle
	}

	return m.newHandle(m.roots[key.root()]), ErrorSuccess
}

func (m *Memory) CreateKey(key Handle, subKey Wide) (Handle, Status) {
	return m.CreateKeyEx(key, subKey, 0, KeyAllAccess)
}

func (m *Memory) CreateKeyEx(key Handle, subKey Wide, reserved uint32, access Access) (Handle, Status) {
	if reserved != 0 {
		return NoKey, ErrorInvalidParameter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.create(key, subKey)
	if !st.OK() {
		return NoKey, st
	}

	return m.newHandle(k), ErrorSuccess
}

func (m *Memory) DeleteKey(key Handle, subKey Wide) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.lookup(key, subKey)
	if !st.OK() {
		return st
	}

	if k.root {
		return ErrorAccessDenied
	}

	if len(k.subkeys) > 0 {
		return ErrorAccessDenied
	}

	k.parent.removeChild(k)
	m.touch(k.parent)
	k.markDeleted()

	return ErrorSuccess
}

func (m *Memory) DeleteKeyEx(key Handle, subKey Wide, access Access, reserved uint32) Status {
	if reserved != 0 {
		return ErrorInvalidParameter
	}

	if access&KeyWow6432Key != 0 && access&KeyWow6464Key != 0 {
		return ErrorInvalidParameter
	}

	return m.DeleteKey(key, subKey)
}

func (m *Memory) DeleteValue(key Handle, name Wide) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.resolve(key)
	if !st.OK() {
		return st
	}

	n, st := valueName(name)
	if !st.OK() {
		return st
	}

	i, _ := k.value(n)
	if i < 0 {
		return ErrorFileNotFound
	}

	k.values = append(k.values[:i], k.values[i+1:]...)
	m.touch(k)

	return ErrorSuccess
}

func (m *Memory) EnumKey(key Handle, index uint32, name []uint16) (int, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.resolve(key)
	if !st.OK() {
		return 0, st
	}

	if int(index) >= len(k.subkeys) {
		return 0, ErrorNoMoreItems
	}

	w, err := NewWide(k.subkeys[index].name)
	if err != nil {
		return 0, ErrorNoUnicodeTranslation
	}

	if len(name) < len(w)+1 {
		return len(w), ErrorMoreData
	}

	copy(name, w)
	name[len(w)] = 0

	return len(w), ErrorSuccess
}

func (m *Memory) EnumValue(key Handle, index uint32, name []uint16, data []byte) (ValueInfo, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.resolve(key)
	if !st.OK() {
		return ValueInfo{}, st
	}

	if int(index) >= len(k.values) {
		return ValueInfo{}, ErrorNoMoreItems
	}

	v := k.values[index]
	w, err := NewWide(v.name)
	if err != nil {
		return ValueInfo{}, ErrorNoUnicodeTranslation
	}

	info := ValueInfo{NameLen: len(w), Type: v.typ, DataLen: len(v.data)}
	if len(name) < len(w)+1 {
		return info, ErrorMoreData
	}

	if data != nil && len(data) < len(v.data) {
		return info, ErrorMoreData
	}

	copy(name, w)
	name[len(w)] = 0
	copy(data, v.data)

	return info, ErrorSuccess
}

// expand replaces %NAME% references with their values. References to unset
// variables and unpaired percent signs are kept as is.
func (m *Memory) expand(s string) string {
	var out strings.Builder

	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			break
		}

		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			break
		}
		end += start + 1

		out.WriteString(s[:start])
		if value, ok := m.lookupEnv(s[start+1 : end]); ok && end > start+1 {
			out.WriteString(value)
			s = s[end+1:]
			continue
		}

		// Keep the first percent and rescan from the second, which may
		// open the next reference.
		out.WriteString(s[start:end])
		s = s[end:]
	}

	out.WriteString(s)
	return out.String()
}

func (m *Memory) ExpandEnvironmentStrings(src Wide, dst []uint16) (int, Status) {
	s, err := src.CutNul().UTF8()
	if err != nil {
		return 0, ErrorNoUnicodeTranslation
	}

	w, err := NewWide(m.expand(s))
	if err != nil {
		return 0, ErrorNoUnicodeTranslation
	}

	required := len(w) + 1
	if dst == nil {
		return required, ErrorSuccess
	}

	if len(dst) < required {
		return required, ErrorMoreData
	}

	copy(dst, w)
	dst[len(w)] = 0

	return required, ErrorSuccess
}

func (m *Memory) FlushKey(key Handle) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, st := m.resolve(key)
	return st
}

func (m *Memory) LoadKey(key Handle, subKey, file Wide) Status {
	if !key.Predefined() || (key.root() != LocalMachine && key.root() != Users) {
		return ErrorInvalidParameter
	}

	parts, st := splitPath(subKey)
	if !st.OK() {
		return st
	}

	if len(parts) != 1 {
		return ErrorInvalidParameter
	}

	path, err := file.CutNul().UTF8()
	if err != nil {
		return ErrorNoUnicodeTranslation
	}

	hive, err := m.store.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrorFileNotFound
	case err != nil:
		return ErrorBadDB
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent := m.roots[key.root()]
	if parent.child(parts[0]) != nil {
		return ErrorAccessDenied
	}

	loaded := fromHive(hive, parent)
	loaded.name = parts[0]
	parent.subkeys = append(parent.subkeys, loaded)

	return ErrorSuccess
}

func (m *Memory) OpenKeyEx(key Handle, subKey Wide, options uint32, access Access) (Handle, Status) {
	if options != 0 && options != optionOpenLink {
		return NoKey, ErrorInvalidParameter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.lookup(key, subKey)
	if !st.OK() {
		return NoKey, st
	}

	return m.newHandle(k), ErrorSuccess
}

func (m *Memory) QueryInfoKey(key Handle) (KeyInfo, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.resolve(key)
	if !st.OK() {
		return KeyInfo{}, st
	}

	info := KeyInfo{
		SubKeys:       uint32(len(k.subkeys)),
		Values:        uint32(len(k.values)),
		LastWriteTime: k.lastWrite,
	}

	for _, sub := range k.subkeys {
		if n := uint32(len(MustWide(sub.name))); n > info.MaxSubKeyLen {
			info.MaxSubKeyLen = n
		}
	}

	for _, v := range k.values {
		if n := uint32(len(MustWide(v.name))); n > info.MaxValueNameLen {
			info.MaxValueNameLen = n
		}
		if n := uint32(len(v.data)); n > info.MaxValueLen {
			info.MaxValueLen = n
		}
	}

	return info, ErrorSuccess
}

func (m *Memory) QueryValue(key Handle, subKey Wide, buf []uint16) (int, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.lookup(key, subKey)
	if !st.OK() {
		return 0, st
	}

	var text Wide
	if _, v := k.value(""); v != nil {
		if v.typ != TypeString && v.typ != TypeExpandString {
			return 0, ErrorInvalidData
		}
		text = WideFromBytes(v.data).CutNul()
	}

	size := 2 * (len(text) + 1)
	if buf == nil {
		return size, ErrorSuccess
	}

	if 2*len(buf) < size {
		return size, ErrorMoreData
	}

	copy(buf, text)
	buf[len(text)] = 0

	return size, ErrorSuccess
}

func (m *Memory) QueryValueEx(key Handle, name Wide, data []byte) (ValueType, int, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.resolve(key)
	if !st.OK() {
		return TypeNone, 0, st
	}

	n, st := valueName(name)
	if !st.OK() {
		return TypeNone, 0, st
	}

	_, v := k.value(n)
	if v == nil {
		return TypeNone, 0, ErrorFileNotFound
	}

	if data == nil {
		return v.typ, len(v.data), ErrorSuccess
	}

	if len(data) < len(v.data) {
		return v.typ, len(v.data), ErrorMoreData
	}

	copy(data, v.data)
	return v.typ, len(v.data), ErrorSuccess
}

func (m *Memory) SaveKey(key Handle, file Wide) Status {
	path, err := file.CutNul().UTF8()
	if err != nil {
		return ErrorNoUnicodeTranslation
	}

	if path == "" {
		return ErrorInvalidParameter
	}

	m.mu.Lock()
	k, st := m.resolve(key)
	var hive *storage.Key
	if st.OK() {
		hive = toHive(k)
	}
	m.mu.Unlock()

	if !st.OK() {
		return st
	}

	err = m.store.Save(path, hive)
	switch {
	case errors.Is(err, os.ErrExist):
		return ErrorAlreadyExists
	case errors.Is(err, os.ErrNotExist):
		return ErrorFileNotFound
	case err != nil:
		return ErrorCantWrite
	}

	return ErrorSuccess
}

func (m *Memory) SetValue(key Handle, subKey, data Wide) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.create(key, subKey)
	if !st.OK() {
		return st
	}

	m.set(k, "", TypeString, Wide(data.CutNul().Terminated()).Bytes())
	return ErrorSuccess
}

func (m *Memory) SetValueEx(key Handle, name Wide, typ ValueType, data []byte) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.resolve(key)
	if !st.OK() {
		return st
	}

	n, st := valueName(name)
	if !st.OK() {
		return st
	}

	m.set(k, n, typ, append([]byte(nil), data...))
	return ErrorSuccess
}

func (m *Memory) set(k *memKey, name string, typ ValueType, data []byte) {
	if _, v := k.value(name); v != nil {
		v.typ = typ
		v.data = data
	} else {
		k.values = append(k.values, &memValue{name: name, typ: typ, data: data})
	}

	m.touch(k)
}

func (m *Memory) DisableReflectionKey(key Handle) Status {
	return m.setReflection(key, true)
}

func (m *Memory) EnableReflectionKey(key Handle) Status {
	return m.setReflection(key, false)
}

func (m *Memory) setReflection(key Handle, disabled bool) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.resolve(key)
	if !st.OK() {
		return st
	}

	k.reflectionDisabled = disabled
	return ErrorSuccess
}

func (m *Memory) QueryReflectionKey(key Handle) (bool, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, st := m.resolve(key)
	if !st.OK() {
		return false, st
	}

	return k.reflectionDisabled, ErrorSuccess
}

// FormatMessage looks st up in the system message table.
func (m *Memory) FormatMessage(st Status) (Wide, bool) {
	text, ok := systemMessages[st]
	if !ok {
		return nil, false
	}

	return MustWide(text), true
}

func toHive(k *memKey) *storage.Key {
	hive := &storage.Key{
		Name:      k.name,
		LastWrite: k.lastWrite,
	}

	for _, v := range k.values {
		hive.Values = append(hive.Values, storage.Value{
			Name: v.name,
			Type: uint32(v.typ),
			Data: append([]byte(nil), v.data...),
		})
	}

	for _, sub := range k.subkeys {
		hive.SubKeys = append(hive.SubKeys, toHive(sub))
	}

	return hive
}

func fromHive(hive *storage.Key, parent *memKey) *memKey {
	k := &memKey{
		name:      hive.Name,
		parent:    parent,
		lastWrite: hive.LastWrite,
	}

	for _, v := range hive.Values {
		k.values = append(k.values, &memValue{
			name: v.Name,
			typ:  ValueType(v.Type),
			data: v.Data,
		})
	}

	for _, sub := range hive.SubKeys {
		k.subkeys = append(k.subkeys, fromHive(sub, k))
	}

	return k
}

var _ Backend = (*Memory)(nil)

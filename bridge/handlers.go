package bridge

import (
	"github.com/luma/regbridge/protocol"
	"github.com/luma/regbridge/registry"
)

// enumKeyBuffer is the fixed name buffer for ENUM_KEY: the registry's
// 255 character key name limit, a spare unit and the terminator.
const enumKeyBuffer = 256 + 1

// handler is one command: the request it decodes, the reply it fills in and
// the single registry call between the two.
type handler interface {
	request() protocol.Request
	response() protocol.Response
	run(s *Session) registry.Status
}

var handlers = map[protocol.Opcode]func() handler{
	protocol.OpCloseKey:                 func() handler { return &closeKey{} },
	protocol.OpConnectRegistry:          func() handler { return &connectRegistry{} },
	protocol.OpCreateKey:                func() handler { return &createKey{} },
	protocol.OpCreateKeyEx:              func() handler { return &createKeyEx{} },
	protocol.OpDeleteKey:                func() handler { return &deleteKey{} },
	protocol.OpDeleteKeyEx:              func() handler { return &deleteKeyEx{} },
	protocol.OpDeleteValue:              func() handler { return &deleteValue{} },
	protocol.OpEnumKey:                  func() handler { return &enumKey{} },
	protocol.OpEnumValue:                func() handler { return &enumValue{} },
	protocol.OpExpandEnvironmentStrings: func() handler { return &expandStrings{} },
	protocol.OpFlushKey:                 func() handler { return &flushKey{} },
	protocol.OpLoadKey:                  func() handler { return &loadKey{} },
	protocol.OpOpenKey:                  func() handler { return &openKey{} },
	protocol.OpOpenKeyEx:                func() handler { return &openKey{} },
	protocol.OpQueryInfoKey:             func() handler { return &queryInfoKey{} },
	protocol.OpQueryValue:               func() handler { return &queryValue{} },
	protocol.OpQueryValueEx:             func() handler { return &queryValueEx{} },
	protocol.OpSaveKey:                  func() handler { return &saveKey{} },
	protocol.OpSetValue:                 func() handler { return &setValue{} },
	protocol.OpSetValueEx:               func() handler { return &setValueEx{} },
	protocol.OpDisableReflectionKey:     func() handler { return &disableReflection{} },
	protocol.OpEnableReflectionKey:      func() handler { return &enableReflection{} },
	protocol.OpQueryReflectionKey:       func() handler { return &queryReflection{} },
}

// orEmpty turns an absent string into an empty one, for calls that reject
// NULL where an empty name is meant.
func orEmpty(w registry.Wide) registry.Wide {
	if w == nil {
		return registry.Wide{}
	}

	return w
}

// envelopeOnly is embedded by commands whose reply is the result alone.
type envelopeOnly struct{}

func (envelopeOnly) response() protocol.Response { return protocol.NoResponse{} }

type closeKey struct {
	envelopeOnly
	req protocol.KeyRequest
}

func (h *closeKey) request() protocol.Request { return &h.req }

func (h *closeKey) run(s *Session) registry.Status {
	if h.req.Key.IsZero() {
		return registry.ErrorSuccess
	}

	return s.api.CloseKey(h.req.Key)
}

type connectRegistry struct {
	req  protocol.ConnectRegistryRequest
	resp protocol.HandleResponse
}

func (h *connectRegistry) request() protocol.Request   { return &h.req }
func (h *connectRegistry) response() protocol.Response { return &h.resp }

func (h *connectRegistry) run(s *Session) (st registry.Status) {
	h.resp.Key, st = s.api.ConnectRegistry(h.req.Machine, h.req.Key)
	return st
}

type createKey struct {
	req  protocol.KeyNameRequest
	resp protocol.HandleResponse
}

func (h *createKey) request() protocol.Request   { return &h.req }
func (h *createKey) response() protocol.Response { return &h.resp }

func (h *createKey) run(s *Session) (st registry.Status) {
	h.resp.Key, st = s.api.CreateKey(h.req.Key, h.req.Name)
	return st
}

type createKeyEx struct {
	req  protocol.KeyAccessRequest
	resp protocol.HandleResponse
}

func (h *createKeyEx) request() protocol.Request   { return &h.req }
func (h *createKeyEx) response() protocol.Response { return &h.resp }

func (h *createKeyEx) run(s *Session) (st registry.Status) {
	h.resp.Key, st = s.api.CreateKeyEx(h.req.Key, h.req.SubKey, h.req.Reserved, h.req.Access)
	return st
}

type deleteKey struct {
	envelopeOnly
	req protocol.KeyNameRequest
}

func (h *deleteKey) request() protocol.Request { return &h.req }

func (h *deleteKey) run(s *Session) registry.Status {
	return s.api.DeleteKey(h.req.Key, h.req.Name)
}

type deleteKeyEx struct {
	envelopeOnly
	req protocol.KeyAccessRequest
}

func (h *deleteKeyEx) request() protocol.Request { return &h.req }

func (h *deleteKeyEx) run(s *Session) registry.Status {
	return s.api.DeleteKeyEx(h.req.Key, h.req.SubKey, h.req.Access, h.req.Reserved)
}

type deleteValue struct {
	envelopeOnly
	req protocol.KeyNameRequest
}

func (h *deleteValue) request() protocol.Request { return &h.req }

func (h *deleteValue) run(s *Session) registry.Status {
	return s.api.DeleteValue(h.req.Key, h.req.Name)
}

type enumKey struct {
	req  protocol.EnumRequest
	resp protocol.StringResponse
}

func (h *enumKey) request() protocol.Request   { return &h.req }
func (h *enumKey) response() protocol.Response { return &h.resp }

func (h *enumKey) run(s *Session) registry.Status {
	name := make([]uint16, enumKeyBuffer)

	n, st := s.api.EnumKey(h.req.Key, h.req.Index, name)
	if !st.OK() {
		return st
	}

	h.resp.Value, st = protocol.Narrow(name, n)
	return st
}

type enumValue struct {
	req  protocol.EnumRequest
	resp protocol.EnumValueResponse
}

func (h *enumValue) request() protocol.Request   { return &h.req }
func (h *enumValue) response() protocol.Response { return &h.resp }

// run sizes both buffers from the key's maxima, then doubles the data
// buffer while the registry asks for more. The name buffer only grows when
// the name itself no longer fits.
func (h *enumValue) run(s *Session) registry.Status {
	info, st := s.api.QueryInfoKey(h.req.Key)
	if !st.OK() {
		return st
	}

	nameSize := int(info.MaxValueNameLen) + 1
	dataSize := int(info.MaxValueLen)
	if dataSize < growFloor {
		dataSize = growFloor
	}
	dataSize++

	for {
		if 2*nameSize > s.maxBuffer || dataSize > s.maxBuffer {
			return registry.ErrorOutOfMemory
		}

		name := make([]uint16, nameSize)
		data := make([]byte, dataSize)

		found, st := s.api.EnumValue(h.req.Key, h.req.Index, name, data)
		if st == registry.ErrorMoreData {
			dataSize *= 2
			if found.NameLen >= nameSize {
				nameSize *= 2
			}
			continue
		}

		if !st.OK() {
			return st
		}

		if found.DataLen > len(data) {
			found.DataLen = len(data)
		}

		h.resp.Name, st = protocol.Narrow(name, found.NameLen)
		h.resp.Data = data[:found.DataLen]
		h.resp.Type = found.Type

		return st
	}
}

type expandStrings struct {
	req  protocol.ExpandRequest
	resp protocol.StringResponse
}

func (h *expandStrings) request() protocol.Request   { return &h.req }
func (h *expandStrings) response() protocol.Response { return &h.resp }

func (h *expandStrings) run(s *Session) registry.Status {
	required, st := s.api.ExpandEnvironmentStrings(h.req.Source, nil)
	size, st := startSize(required, st)
	if !st.OK() {
		return st
	}

	buf, st := grow(size, s.limit(2), func(buf []uint16) registry.Status {
		required, st = s.api.ExpandEnvironmentStrings(h.req.Source, buf)
		return st
	})
	if !st.OK() {
		return st
	}

	// required counts the terminator
	h.resp.Value, st = protocol.Narrow(buf, required-1)
	return st
}

type flushKey struct {
	envelopeOnly
	req protocol.KeyRequest
}

func (h *flushKey) request() protocol.Request { return &h.req }

func (h *flushKey) run(s *Session) registry.Status {
	if h.req.Key.IsZero() {
		return registry.ErrorSuccess
	}

	return s.api.FlushKey(h.req.Key)
}

// loadKey and saveKey reply with a handle that is always zero; callers read
// past it.
type loadKey struct {
	req  protocol.LoadKeyRequest
	resp protocol.HandleResponse
}

func (h *loadKey) request() protocol.Request   { return &h.req }
func (h *loadKey) response() protocol.Response { return &h.resp }

func (h *loadKey) run(s *Session) registry.Status {
	return s.api.LoadKey(h.req.Key, h.req.SubKey, h.req.File)
}

type openKey struct {
	req  protocol.KeyAccessRequest
	resp protocol.HandleResponse
}

func (h *openKey) request() protocol.Request   { return &h.req }
func (h *openKey) response() protocol.Response { return &h.resp }

func (h *openKey) run(s *Session) (st registry.Status) {
	h.resp.Key, st = s.api.OpenKeyEx(h.req.Key, h.req.SubKey, h.req.Reserved, h.req.Access)
	return st
}

type queryInfoKey struct {
	req  protocol.KeyRequest
	resp protocol.QueryInfoKeyResponse
}

func (h *queryInfoKey) request() protocol.Request   { return &h.req }
func (h *queryInfoKey) response() protocol.Response { return &h.resp }

func (h *queryInfoKey) run(s *Session) registry.Status {
	info, st := s.api.QueryInfoKey(h.req.Key)

	h.resp.SubKeys = info.SubKeys
	h.resp.Values = info.Values
	h.resp.LastWriteTime = info.LastWriteTime

	return st
}

type queryValue struct {
	req  protocol.KeyNameRequest
	resp protocol.StringResponse
}

func (h *queryValue) request() protocol.Request   { return &h.req }
func (h *queryValue) response() protocol.Response { return &h.resp }

func (h *queryValue) run(s *Session) registry.Status {
	subKey := orEmpty(h.req.Name)

	probed, st := s.api.QueryValue(h.req.Key, subKey, nil)
	size, st := startSize(probed, st)
	if !st.OK() {
		return st
	}

	var used int
	buf, st := grow((size+1)/2, s.limit(2), func(buf []uint16) registry.Status {
		used, st = s.api.QueryValue(h.req.Key, subKey, buf)
		return st
	})
	if !st.OK() {
		return st
	}

	// used is in bytes and counts the terminator
	h.resp.Value, st = protocol.Narrow(buf, used/2-1)
	return st
}

type queryValueEx struct {
	req  protocol.KeyNameRequest
	resp protocol.ValueResponse
}

func (h *queryValueEx) request() protocol.Request   { return &h.req }
func (h *queryValueEx) response() protocol.Response { return &h.resp }

func (h *queryValueEx) run(s *Session) registry.Status {
	name := orEmpty(h.req.Name)

	_, probed, st := s.api.QueryValueEx(h.req.Key, name, nil)
	size, st := startSize(probed, st)
	if !st.OK() {
		return st
	}

	var (
		typ  registry.ValueType
		used int
	)
	data, st := grow(size, s.limit(1), func(buf []byte) registry.Status {
		typ, used, st = s.api.QueryValueEx(h.req.Key, name, buf)
		return st
	})
	if !st.OK() {
		return st
	}

	if used > len(data) {
		used = len(data)
	}

	h.resp.Data = data[:used]
	h.resp.Type = typ

	return registry.ErrorSuccess
}

type saveKey struct {
	req  protocol.KeyNameRequest
	resp protocol.HandleResponse
}

func (h *saveKey) request() protocol.Request   { return &h.req }
func (h *saveKey) response() protocol.Response { return &h.resp }

func (h *saveKey) run(s *Session) registry.Status {
	return s.api.SaveKey(h.req.Key, h.req.Name)
}

type setValue struct {
	envelopeOnly
	req protocol.SetValueRequest
}

func (h *setValue) request() protocol.Request { return &h.req }

func (h *setValue) run(s *Session) registry.Status {
	return s.api.SetValue(h.req.Key, h.req.SubKey, h.req.Value)
}

type setValueEx struct {
	envelopeOnly
	req protocol.SetValueExRequest
}

func (h *setValueEx) request() protocol.Request { return &h.req }

func (h *setValueEx) run(s *Session) registry.Status {
	return s.api.SetValueEx(h.req.Key, h.req.Name, h.req.Type, h.req.Data)
}

type disableReflection struct {
	envelopeOnly
	req protocol.KeyRequest
}

func (h *disableReflection) request() protocol.Request { return &h.req }

func (h *disableReflection) run(s *Session) registry.Status {
	return s.api.DisableReflectionKey(h.req.Key)
}

type enableReflection struct {
	envelopeOnly
	req protocol.KeyRequest
}

func (h *enableReflection) request() protocol.Request { return &h.req }

func (h *enableReflection) run(s *Session) registry.Status {
	return s.api.EnableReflectionKey(h.req.Key)
}

type queryReflection struct {
	req  protocol.KeyRequest
	resp protocol.BoolResponse
}

func (h *queryReflection) request() protocol.Request   { return &h.req }
func (h *queryReflection) response() protocol.Response { return &h.resp }

func (h *queryReflection) run(s *Session) (st registry.Status) {
	h.resp.Value, st = s.api.QueryReflectionKey(h.req.Key)
	return st
}

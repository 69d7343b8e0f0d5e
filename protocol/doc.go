// Package protocol implements the framing of the registry bridge protocol:
// the messages a caller exchanges with a bridge over a loopback TCP stream.
//
// The protocol aims to be
//
// - trivial to implement from any language
// - fixed layout, so a reader never has to branch on a status to know how
//   many bytes follow
// - one request in flight at a time
//
// === Session
//
// The caller listens, the bridge connects. The bridge then sends the bare
// 18 byte greeting
//
//   ```
//   Bridge started 1.0
//   ```
//
// with no length prefix and no terminator. After that the caller sends
// requests and the bridge answers each one before reading the next opcode.
//
// === Encoding
//
// - integers are little endian; handles are 8 bytes, everything else 4
// - strings are a 4 byte length followed by that many UTF-8 bytes. A zero
//   length means "no string" and is followed by nothing
// - blobs (value data) are framed the same way as strings
//
// === Requests
//
//   ```
//   > <opcode:1><fields...>
//   < <response fields...><status:4>[<msglen:4><message>]
//   ```
//
// ABORT, CONNECT and opcodes the bridge does not know are read and ignored:
// nothing is sent back and the bridge waits for the next opcode.
//
// === Result envelope
//
// Every reply ends with a 4 byte Win32 status. Zero is success and ends the
// reply. Anything else is followed by a length-prefixed human readable
// description of the status.
//
// Fields that precede the envelope are always sent, zeroed on failure, so
// callers must treat a non-zero status as authoritative.
//
// === Layouts
//
// H is a handle, D a 4 byte integer, S a string, B a blob.
//
//   ```
//   CLOSE_KEY              H                 -> (nothing)
//   CONNECT_REGISTRY       H S(machine)      -> H
//   CREATE_KEY             H S(subkey)       -> H
//   CREATE_KEY_EX          H D D S(subkey)   -> H
//   DELETE_KEY             H S(subkey)       -> (nothing)
//   DELETE_KEY_EX          H D D S(subkey)   -> (nothing)
//   DELETE_VALUE           H S(name)         -> (nothing)
//   ENUM_KEY               H D(index)        -> S
//   ENUM_VALUE             H D(index)        -> S B D(type)
//   EXPAND_ENV_STRINGS     S                 -> S
//   FLUSH_KEY              H                 -> (nothing)
//   LOAD_KEY               H S(subkey) S     -> H(zero)
//   OPEN_KEY, OPEN_KEY_EX  H D D S(subkey)   -> H
//   QUERY_INFO_KEY         H                 -> D(subkeys) D(values) 8(filetime)
//   QUERY_VALUE            H S(subkey)       -> S
//   QUERY_VALUE_EX         H S(name)         -> B D(type)
//   SAVE_KEY               H S(file)         -> H(zero)
//   SET_VALUE              H S(subkey) S     -> (nothing)
//   SET_VALUE_EX           H D(type) S B     -> (nothing)
//   DISABLE/ENABLE_REFLECTION_KEY H         -> (nothing)
//   QUERY_REFLECTION_KEY   H                 -> 1 byte
//   ```
//
// The D D pair in the *_EX layouts is reserved/options then access mask.
package protocol

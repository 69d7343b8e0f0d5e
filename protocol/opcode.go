package protocol

import "fmt"

// Greeting is sent by the bridge, without a length prefix, as soon as the
// connection is up.
const Greeting = "Bridge started 1.0"

// Opcode is the first byte of every request.
type Opcode byte

const (
	OpAbort Opcode = iota
	OpConnect
	OpCloseKey
	OpConnectRegistry
	OpCreateKey
	OpCreateKeyEx
	OpDeleteKey
	OpDeleteKeyEx
	OpDeleteValue
	OpEnumKey
	OpEnumValue
	OpExpandEnvironmentStrings
	OpFlushKey
	OpLoadKey
	OpOpenKey
	OpOpenKeyEx
	OpQueryInfoKey
	OpQueryValue
	OpQueryValueEx
	OpSaveKey
	OpSetValue
	OpSetValueEx
	OpDisableReflectionKey
	OpEnableReflectionKey
	OpQueryReflectionKey
)

var opcodeNames = [...]string{
	OpAbort:                    "ABORT",
	OpConnect:                  "CONNECT",
	OpCloseKey:                 "CLOSE_KEY",
	OpConnectRegistry:          "CONNECT_REGISTRY",
	OpCreateKey:                "CREATE_KEY",
	OpCreateKeyEx:              "CREATE_KEY_EX",
	OpDeleteKey:                "DELETE_KEY",
	OpDeleteKeyEx:              "DELETE_KEY_EX",
	OpDeleteValue:              "DELETE_VALUE",
	OpEnumKey:                  "ENUM_KEY",
	OpEnumValue:                "ENUM_VALUE",
	OpExpandEnvironmentStrings: "EXPAND_ENVIRONMENT_STRINGS",
	OpFlushKey:                 "FLUSH_KEY",
	OpLoadKey:                  "LOAD_KEY",
	OpOpenKey:                  "OPEN_KEY",
	OpOpenKeyEx:                "OPEN_KEY_EX",
	OpQueryInfoKey:             "QUERY_INFO_KEY",
	OpQueryValue:               "QUERY_VALUE",
	OpQueryValueEx:             "QUERY_VALUE_EX",
	OpSaveKey:                  "SAVE_KEY",
	OpSetValue:                 "SET_VALUE",
	OpSetValueEx:               "SET_VALUE_EX",
	OpDisableReflectionKey:     "DISABLE_REFLECTION_KEY",
	OpEnableReflectionKey:      "ENABLE_REFLECTION_KEY",
	OpQueryReflectionKey:       "QUERY_REFLECTION_KEY",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}

	return fmt.Sprintf("OPCODE(%d)", byte(o))
}

package client

import (
	"errors"
	"fmt"

	"github.com/luma/regbridge/protocol"
	"github.com/luma/regbridge/registry"
)

// ErrBadGreeting means the peer is not a bridge speaking this protocol.
var ErrBadGreeting = errors.New("unexpected bridge greeting")

// Error is a failure the bridge reported for one command.
type Error struct {
	Op      protocol.Opcode
	Status  registry.Status
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (0x%x)", e.Op, e.Message, uint32(e.Status))
}

// Unwrap exposes the status, so errors.Is(err, registry.ErrorFileNotFound)
// works on command errors.
func (e *Error) Unwrap() error {
	return e.Status
}

package bridge

import (
	"fmt"
	"strings"

	"github.com/luma/regbridge/registry"
)

// describe produces the message sent after a non-zero status: the system
// description with trailing blanks and periods removed, or a synthesized one
// when the system has none.
func (s *Session) describe(st registry.Status) string {
	if s.messages != nil {
		if msg, ok := s.messages.FormatMessage(st); ok {
			if text, err := msg.UTF8(); err == nil {
				if text = trimMessage(text); text != "" {
					return text
				}
			}
		}
	}

	return fmt.Sprintf("Windows Error 0x%x", uint32(st))
}

func trimMessage(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r <= ' ' || r == '.'
	})
}

// Package slip implements SLIP-style byte framing: a frame is a run of
// escaped payload bytes terminated by a single END byte.
package slip

// Reserved byte values. A literal END or ESC inside the payload is replaced
// by ESC followed by the matching substitute.
const (
	End    = 0xC0
	Esc    = 0xDB
	EscEnd = 0xDC
	EscEsc = 0xDD
)

package joystick

import (
	"encoding/binary"
	"fmt"
)

// Report carries the current state of every configured control: absolute
// axis values, then relative axis deltas, then button states. On the wire
// the axis values are little-endian int32s and each button is one byte.
type Report struct {
	Abs     []int32
	Rel     []int32
	Buttons []byte
}

// ReportSize returns the marshalled size of a report for cfg.
func ReportSize(cfg *Config) int {
	return 4*int(cfg.AbsAxisCount) + 4*int(cfg.RelAxisCount) + int(cfg.ButtonCount)
}

// NewReport allocates a zeroed report shaped for cfg.
func NewReport(cfg *Config) *Report {
	return &Report{
		Abs:     make([]int32, cfg.AbsAxisCount),
		Rel:     make([]int32, cfg.RelAxisCount),
		Buttons: make([]byte, cfg.ButtonCount),
	}
}

// Marshal serialises the report as the TagReport payload.
func (r *Report) Marshal() []byte {
	buf := make([]byte, 4*len(r.Abs)+4*len(r.Rel)+len(r.Buttons))
	off := 0
	for _, v := range r.Abs {
		binary.LittleEndian.PutUint32(buf[off:], uint32(v))
		off += 4
	}
	for _, v := range r.Rel {
		binary.LittleEndian.PutUint32(buf[off:], uint32(v))
		off += 4
	}
	copy(buf[off:], r.Buttons)
	return buf
}

// UnmarshalReport parses a TagReport payload shaped for cfg.
func UnmarshalReport(cfg *Config, p []byte) (*Report, error) {
	if len(p) != ReportSize(cfg) {
		return nil, fmt.Errorf("report payload is %d bytes, want %d", len(p), ReportSize(cfg))
	}
	r := NewReport(cfg)
	off := 0
	for i := range r.Abs {
		r.Abs[i] = int32(binary.LittleEndian.Uint32(p[off:]))
		off += 4
	}
	for i := range r.Rel {
		r.Rel[i] = int32(binary.LittleEndian.Uint32(p[off:]))
		off += 4
	}
	copy(r.Buttons, p[off:])
	return r, nil
}

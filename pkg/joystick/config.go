// Package joystick defines the payloads exchanged between the capture client
// and the replay server: a one-shot device configuration record and the
// per-sync event report. Both are fixed little-endian layouts.
package joystick

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Record tags used by the forwarding layer.
const (
	TagConfig uint16 = 0
	TagReport uint16 = 1
)

// Table bounds for the configuration record.
const (
	MaxNameLen = 64
	MaxAbsAxes = 64
	MaxRelAxes = 16
	MaxButtons = 160
)

// Config describes one input device completely enough to clone it: identity
// plus the event codes it can emit, with ranges for absolute axes. The
// entries of each table are kernel event codes; only the first *Count are
// meaningful.
type Config struct {
	Name    [MaxNameLen]byte
	Vendor  uint16
	Product uint16

	AbsAxisCount uint16
	RelAxisCount uint16
	ButtonCount  uint16

	AbsAxis           [MaxAbsAxes]uint16
	AbsAxisMin        [MaxAbsAxes]int32
	AbsAxisMax        [MaxAbsAxes]int32
	AbsAxisFuzz       [MaxAbsAxes]int32
	AbsAxisFlat       [MaxAbsAxes]int32
	AbsAxisResolution [MaxAbsAxes]int32

	RelAxis [MaxRelAxes]uint16
	Buttons [MaxButtons]uint16
}

// ConfigSize is the marshalled size of a Config.
var ConfigSize = binary.Size(Config{})

// SetName stores name, truncated to the table bound.
func (c *Config) SetName(name string) {
	copy(c.Name[:], name)
}

// NameString returns the device name without trailing NULs.
func (c *Config) NameString() string {
	if i := bytes.IndexByte(c.Name[:], 0); i >= 0 {
		return string(c.Name[:i])
	}
	return string(c.Name[:])
}

// Marshal serialises the config as the TagConfig payload.
func (c *Config) Marshal() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, c)
	return buf.Bytes()
}

// UnmarshalConfig parses and validates a TagConfig payload.
func UnmarshalConfig(p []byte) (*Config, error) {
	if len(p) != ConfigSize {
		return nil, fmt.Errorf("config payload is %d bytes, want %d", len(p), ConfigSize)
	}
	var c Config
	if err := binary.Read(bytes.NewReader(p), binary.LittleEndian, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.AbsAxisCount > MaxAbsAxes || c.RelAxisCount > MaxRelAxes || c.ButtonCount > MaxButtons {
		return nil, fmt.Errorf("config counts out of range: abs %d rel %d buttons %d",
			c.AbsAxisCount, c.RelAxisCount, c.ButtonCount)
	}
	return &c, nil
}

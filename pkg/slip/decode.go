package slip

// Status reports the outcome of feeding one byte to a Decoder.
type Status int

const (
	// StatusOK means the byte was consumed and the frame is still open.
	StatusOK Status = iota
	// StatusEndOfFrame means a complete frame is available via Frame().
	StatusEndOfFrame
	// StatusBadEscape means ESC was followed by a byte that is neither
	// EscEnd nor EscEsc. The partial frame is invalid.
	StatusBadEscape
	// StatusOverflow means the frame exceeded the decoder's capacity.
	StatusOverflow
)

// Decoder accumulates one frame at a time from a raw byte stream. It is
// owned by a single connection and is not safe for concurrent use.
type Decoder struct {
	buf []byte
	n   int
	esc bool
}

// NewDecoder returns a decoder that accepts frames up to max payload bytes.
func NewDecoder(max int) *Decoder {
	return &Decoder{buf: make([]byte, max)}
}

// Reset discards any partial frame and clears the escape state. The caller
// must reset after StatusEndOfFrame, StatusBadEscape and StatusOverflow
// before feeding further bytes.
func (d *Decoder) Reset() {
	d.n = 0
	d.esc = false
}

// Frame returns the accumulated frame payload. Valid only immediately after
// WriteByte returned StatusEndOfFrame; the slice aliases the decoder's
// buffer and is invalidated by Reset.
func (d *Decoder) Frame() []byte {
	return d.buf[:d.n]
}

// WriteByte feeds one raw stream byte to the state machine.
func (d *Decoder) WriteByte(b byte) Status {
	if d.esc {
		d.esc = false
		switch b {
		case EscEnd:
			return d.store(End)
		case EscEsc:
			return d.store(Esc)
		}
		return StatusBadEscape
	}
	switch b {
	case End:
		return StatusEndOfFrame
	case Esc:
		d.esc = true
		return StatusOK
	}
	return d.store(b)
}

func (d *Decoder) store(b byte) Status {
	if d.n >= len(d.buf) {
		return StatusOverflow
	}
	d.buf[d.n] = b
	d.n++
	return StatusOK
}

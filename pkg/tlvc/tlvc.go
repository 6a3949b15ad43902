// Package tlvc implements the tagged record envelope carried inside one SLIP
// frame: a {tag, length} header, an opaque payload and a checksum footer.
//
// Header and footer fields are little-endian on the wire. The C lineage of
// this protocol wrote them in host order; fixing the order makes the format
// portable and leaves the bytes unchanged on little-endian hosts.
package tlvc

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderSize is tag (2) + length (2).
	HeaderSize = 4
	// FooterSize is checksum (2).
	FooterSize = 2
)

var (
	ErrTooShort         = errors.New("tlvc: buffer shorter than header and footer")
	ErrLengthMismatch   = errors.New("tlvc: header length disagrees with buffer size")
	ErrChecksumMismatch = errors.New("tlvc: checksum mismatch")
)

// checksum is the wrapping 16-bit sum of unsigned byte values.
func checksum(p []byte) uint16 {
	var sum uint16
	for _, b := range p {
		sum += uint16(b)
	}
	return sum
}

// Encode builds a complete record for tag and payload. The result is the
// logical frame handed to the SLIP encoder.
func Encode(tag uint16, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload)+FooterSize)
	binary.LittleEndian.PutUint16(buf[0:2], tag)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(payload)))
	copy(buf[HeaderSize:], payload)
	sum := checksum(buf[:HeaderSize+len(payload)])
	binary.LittleEndian.PutUint16(buf[HeaderSize+len(payload):], sum)
	return buf
}

// Decode validates buf and returns its tag and payload. The payload slice
// aliases buf; no copy is made.
func Decode(buf []byte) (tag uint16, payload []byte, err error) {
	if len(buf) < HeaderSize+FooterSize {
		return 0, nil, ErrTooShort
	}
	tag = binary.LittleEndian.Uint16(buf[0:2])
	length := int(binary.LittleEndian.Uint16(buf[2:4]))
	if HeaderSize+length+FooterSize != len(buf) {
		return 0, nil, ErrLengthMismatch
	}
	sum := checksum(buf[:HeaderSize+length])
	footer := binary.LittleEndian.Uint16(buf[HeaderSize+length:])
	if footer != sum {
		return 0, nil, ErrChecksumMismatch
	}
	return tag, buf[HeaderSize : HeaderSize+length], nil
}

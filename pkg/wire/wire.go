// Package wire composes the SLIP framing and TLVC record layers into the
// on-the-wire message format: one TLVC record per SLIP frame.
package wire

import (
	"io"

	"warpout-core/pkg/slip"
	"warpout-core/pkg/tlvc"
)

// DefaultMaxFrame bounds a decoded frame. Large enough for any config or
// report record with escaping headroom.
const DefaultMaxFrame = 32768

// WriteMessage encodes (tag, payload) as a TLVC record, SLIP-frames it and
// writes the whole frame to w.
func WriteMessage(w io.Writer, tag uint16, payload []byte) error {
	frame := slip.Encode(tlvc.Encode(tag, payload))
	_, err := w.Write(frame)
	return err
}

// MessageHandler receives each validated record. The payload slice aliases
// the decoder's frame buffer and is only valid for the duration of the call.
type MessageHandler func(tag uint16, payload []byte)

// ErrorHandler observes per-frame decode failures. The stream has already
// been reset when it runs; the connection stays usable.
type ErrorHandler func(err error)

// StreamDecoder is the per-connection decode state: it feeds incoming bytes
// through a SLIP decoder and, on each completed frame, validates the TLVC
// record and dispatches it. Malformed frames and records are dropped and the
// stream resynchronizes on the next END byte. Owned by one connection; not
// safe for concurrent use.
type StreamDecoder struct {
	dec       *slip.Decoder
	onMessage MessageHandler
	onError   ErrorHandler
}

// NewStreamDecoder returns a decoder for frames up to max bytes. onError may
// be nil.
func NewStreamDecoder(max int, onMessage MessageHandler, onError ErrorHandler) *StreamDecoder {
	return &StreamDecoder{
		dec:       slip.NewDecoder(max),
		onMessage: onMessage,
		onError:   onError,
	}
}

// Feed consumes a chunk of raw stream bytes, dispatching any completed
// records.
func (s *StreamDecoder) Feed(p []byte) {
	for _, b := range p {
		switch st := s.dec.WriteByte(b); st {
		case slip.StatusOK:
		case slip.StatusEndOfFrame:
			tag, payload, err := tlvc.Decode(s.dec.Frame())
			if err != nil {
				s.fail(err)
			} else {
				s.onMessage(tag, payload)
			}
			s.dec.Reset()
		default:
			s.fail(framingError(st))
			s.dec.Reset()
		}
	}
}

func (s *StreamDecoder) fail(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

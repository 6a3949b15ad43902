package wire

import (
	"bytes"
	"errors"
	"testing"

	"warpout-core/pkg/slip"
	"warpout-core/pkg/tlvc"
)

type capture struct {
	tags     []uint16
	payloads [][]byte
	errs     []error
}

func (c *capture) onMessage(tag uint16, payload []byte) {
	c.tags = append(c.tags, tag)
	c.payloads = append(c.payloads, append([]byte(nil), payload...))
}

func (c *capture) onError(err error) {
	c.errs = append(c.errs, err)
}

func TestWriteThenFeed(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, 1, []byte{0xC0, 0xDB, 0x42}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteMessage(&buf, 0, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	var c capture
	dec := NewStreamDecoder(DefaultMaxFrame, c.onMessage, c.onError)
	// Deliver one byte at a time to exercise partial reads.
	for _, b := range buf.Bytes() {
		dec.Feed([]byte{b})
	}

	if len(c.errs) != 0 {
		t.Fatalf("errors: %v", c.errs)
	}
	if len(c.tags) != 2 || c.tags[0] != 1 || c.tags[1] != 0 {
		t.Fatalf("tags: %v", c.tags)
	}
	if !bytes.Equal(c.payloads[0], []byte{0xC0, 0xDB, 0x42}) || len(c.payloads[1]) != 0 {
		t.Fatalf("payloads: %v", c.payloads)
	}
}

func TestEmptyFrameIsTooShort(t *testing.T) {
	var c capture
	dec := NewStreamDecoder(16, c.onMessage, c.onError)
	dec.Feed([]byte{slip.End})
	if len(c.tags) != 0 {
		t.Fatalf("unexpected message for empty frame")
	}
	if len(c.errs) != 1 || !errors.Is(c.errs[0], tlvc.ErrTooShort) {
		t.Fatalf("errs: %v, want ErrTooShort", c.errs)
	}
}

func TestBadEscapeResynchronizes(t *testing.T) {
	var c capture
	dec := NewStreamDecoder(DefaultMaxFrame, c.onMessage, c.onError)
	// ESC END aborts the frame; bytes already consumed are dropped and the
	// following frame decodes normally.
	dec.Feed([]byte{0x01, slip.Esc, slip.End})
	dec.Feed(slip.Encode(tlvc.Encode(1, []byte{7})))

	if len(c.errs) != 1 || !errors.Is(c.errs[0], ErrBadEscape) {
		t.Fatalf("errs: %v, want ErrBadEscape", c.errs)
	}
	if len(c.tags) != 1 || c.tags[0] != 1 || !bytes.Equal(c.payloads[0], []byte{7}) {
		t.Fatalf("recovery frame not decoded: tags %v payloads %v", c.tags, c.payloads)
	}
}

func TestOverflowDiscardsFrame(t *testing.T) {
	var c capture
	dec := NewStreamDecoder(8, c.onMessage, c.onError)
	dec.Feed(bytes.Repeat([]byte{0x11}, 32))
	if len(c.errs) == 0 || !errors.Is(c.errs[0], ErrOverflow) {
		t.Fatalf("errs: %v, want ErrOverflow", c.errs)
	}
	// The stream recovers after the terminator of the oversized frame.
	dec.Feed([]byte{slip.End})
	c.errs = nil
	dec.Feed(slip.Encode(tlvc.Encode(0, nil)))
	if len(c.tags) != 1 || c.tags[0] != 0 {
		t.Fatalf("post-overflow frame not decoded: %v", c.tags)
	}
}

func TestCorruptRecordDropped(t *testing.T) {
	rec := tlvc.Encode(1, []byte{1, 2, 3})
	rec[4] ^= 0x01
	var c capture
	dec := NewStreamDecoder(DefaultMaxFrame, c.onMessage, c.onError)
	dec.Feed(slip.Encode(rec))
	if len(c.tags) != 0 {
		t.Fatalf("corrupt record dispatched")
	}
	if len(c.errs) != 1 || !errors.Is(c.errs[0], tlvc.ErrChecksumMismatch) {
		t.Fatalf("errs: %v", c.errs)
	}
}

package slip

import (
	"bytes"
	"testing"
)

func decodeAll(t *testing.T, d *Decoder, stream []byte) []byte {
	t.Helper()
	for i, b := range stream {
		switch st := d.WriteByte(b); st {
		case StatusOK:
		case StatusEndOfFrame:
			if i != len(stream)-1 {
				t.Fatalf("frame ended at byte %d of %d", i, len(stream))
			}
			return d.Frame()
		default:
			t.Fatalf("byte %d: status %d", i, st)
		}
	}
	t.Fatalf("stream ended without END")
	return nil
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x01, 0x02, 0x03, 0x04},
		{End},
		{Esc},
		{Esc, End, Esc, Esc, 0x00, End},
		bytes.Repeat([]byte{End, Esc, 0x7F}, 100),
	}
	for _, p := range payloads {
		enc := Encode(p)
		if enc[len(enc)-1] != End {
			t.Fatalf("encoded frame not terminated by END: % x", enc)
		}
		d := NewDecoder(1024)
		got := decodeAll(t, d, enc)
		if !bytes.Equal(got, p) {
			t.Fatalf("round trip mismatch: got % x want % x", got, p)
		}
	}
}

func TestEncodeEscapes(t *testing.T) {
	enc := Encode([]byte{0x10, End, Esc, 0x20})
	want := []byte{0x10, Esc, EscEnd, Esc, EscEsc, 0x20, End}
	if !bytes.Equal(enc, want) {
		t.Fatalf("got % x want % x", enc, want)
	}
}

func TestDecodeEmptyFrame(t *testing.T) {
	d := NewDecoder(16)
	if st := d.WriteByte(End); st != StatusEndOfFrame {
		t.Fatalf("lone END: status %d", st)
	}
	if len(d.Frame()) != 0 {
		t.Fatalf("expected empty frame, got % x", d.Frame())
	}
}

func TestDecodeBadEscape(t *testing.T) {
	// ESC followed by END is a framing error, not a literal END.
	d := NewDecoder(16)
	if st := d.WriteByte(Esc); st != StatusOK {
		t.Fatalf("ESC: status %d", st)
	}
	if st := d.WriteByte(End); st != StatusBadEscape {
		t.Fatalf("ESC END: status %d, want StatusBadEscape", st)
	}

	d.Reset()
	if st := d.WriteByte(Esc); st != StatusOK {
		t.Fatalf("ESC after reset: status %d", st)
	}
	if st := d.WriteByte(0x42); st != StatusBadEscape {
		t.Fatalf("ESC 0x42: status %d, want StatusBadEscape", st)
	}
}

func TestDecodeOverflow(t *testing.T) {
	d := NewDecoder(4)
	for i := 0; i < 4; i++ {
		if st := d.WriteByte(byte(i)); st != StatusOK {
			t.Fatalf("byte %d: status %d", i, st)
		}
	}
	if st := d.WriteByte(0xFF); st != StatusOverflow {
		t.Fatalf("fifth byte: status %d, want StatusOverflow", st)
	}
	// After a reset the decoder is usable again.
	d.Reset()
	got := decodeAll(t, d, []byte{0xAA, End})
	if !bytes.Equal(got, []byte{0xAA}) {
		t.Fatalf("post-reset frame: % x", got)
	}
}

func TestDecodeBackToBackFrames(t *testing.T) {
	d := NewDecoder(16)
	stream := append(Encode([]byte{1, 2}), Encode([]byte{3})...)
	var frames [][]byte
	for _, b := range stream {
		switch st := d.WriteByte(b); st {
		case StatusEndOfFrame:
			frames = append(frames, append([]byte(nil), d.Frame()...))
			d.Reset()
		case StatusOK:
		default:
			t.Fatalf("status %d", st)
		}
	}
	if len(frames) != 2 || !bytes.Equal(frames[0], []byte{1, 2}) || !bytes.Equal(frames[1], []byte{3}) {
		t.Fatalf("frames: %v", frames)
	}
}

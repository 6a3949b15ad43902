package tlvc

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0xFF},
		[]byte("joystick report"),
		bytes.Repeat([]byte{0xC0, 0xDB, 0x00}, 500),
	}
	for _, p := range payloads {
		for _, tag := range []uint16{0, 1, 0xBEEF} {
			rec := Encode(tag, p)
			gotTag, gotPayload, err := Decode(rec)
			if err != nil {
				t.Fatalf("tag %d len %d: decode: %v", tag, len(p), err)
			}
			if gotTag != tag || !bytes.Equal(gotPayload, p) {
				t.Fatalf("round trip mismatch: tag %d->%d payload % x", tag, gotTag, gotPayload)
			}
		}
	}
}

func TestKnownChecksum(t *testing.T) {
	// tag=0, payload 01 02 03 04: header bytes sum to 4 (the length field),
	// payload bytes sum to 10, so the footer must carry 14.
	rec := Encode(0, []byte{1, 2, 3, 4})
	want := []byte{0, 0, 4, 0, 1, 2, 3, 4, 14, 0}
	if !bytes.Equal(rec, want) {
		t.Fatalf("record % x, want % x", rec, want)
	}
	tag, payload, err := Decode(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tag != 0 || !bytes.Equal(payload, []byte{1, 2, 3, 4}) {
		t.Fatalf("tag %d payload % x", tag, payload)
	}
}

func TestDecodeTooShort(t *testing.T) {
	for _, buf := range [][]byte{nil, {}, {1}, {1, 2, 3, 4, 5}} {
		if _, _, err := Decode(buf); !errors.Is(err, ErrTooShort) {
			t.Fatalf("len %d: err %v, want ErrTooShort", len(buf), err)
		}
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	rec := Encode(1, []byte{9, 9})
	// Truncating the payload breaks the header/buffer length relation.
	if _, _, err := Decode(rec[:len(rec)-1]); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err %v, want ErrLengthMismatch", err)
	}
	// So does appending a stray byte.
	if _, _, err := Decode(append(append([]byte(nil), rec...), 0)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err %v, want ErrLengthMismatch", err)
	}
}

func TestDecodeBitFlips(t *testing.T) {
	rec := Encode(7, []byte{0x10, 0x20, 0x30})
	// Flip every bit of every non-footer byte in turn; decode must never
	// succeed with corrupted data.
	for i := 0; i < len(rec)-FooterSize; i++ {
		for bit := 0; bit < 8; bit++ {
			mut := append([]byte(nil), rec...)
			mut[i] ^= 1 << bit
			if _, _, err := Decode(mut); err == nil {
				t.Fatalf("byte %d bit %d: corrupted record decoded successfully", i, bit)
			}
		}
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	rec := Encode(3, []byte{5})
	rec[len(rec)-1] ^= 0xFF
	if _, _, err := Decode(rec); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("err %v, want ErrChecksumMismatch", err)
	}
}

func TestPayloadAliasesInput(t *testing.T) {
	rec := Encode(2, []byte{0xAA, 0xBB})
	_, payload, err := Decode(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if &payload[0] != &rec[HeaderSize] {
		t.Fatalf("payload was copied")
	}
}

//go:build linux

// Package evdev reads Linux input devices: identity, capability bitmaps and
// the raw event stream from /dev/input/event*.
package evdev

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Input event types and code bounds from the kernel input API.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02
	EvAbs = 0x03

	EvMax  = 0x1F
	KeyMax = 0x2FF
	RelMax = 0x0F
	AbsMax = 0x3F
)

// InputEvent mirrors struct input_event on 64-bit kernels.
type InputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// EventSize is the on-disk size of one input_event, including padding.
const EventSize = 24

// AbsInfo mirrors struct input_absinfo.
type AbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// ioctl request constructors for the 'E' (input) magic.
func iocRead(nr, size uintptr) uintptr {
	return 2<<30 | size<<16 | 'E'<<8 | nr
}

func eviocgid() uintptr            { return iocRead(0x02, 8) }
func eviocgname(n uintptr) uintptr { return iocRead(0x06, n) }
func eviocgbit(ev, n uintptr) uintptr {
	return iocRead(0x20+ev, n)
}
func eviocgabs(code uintptr) uintptr { return iocRead(0x40+code, 24) }

// Device is an opened input device.
type Device struct {
	f *os.File
}

// Open opens an event device for reading.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{f: os.NewFile(uintptr(fd), path)}, nil
}

func (d *Device) Close() error {
	return d.f.Close()
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// ID returns the device's vendor and product identifiers.
func (d *Device) ID() (vendor, product uint16, err error) {
	// struct input_id: bustype, vendor, product, version.
	var id [4]uint16
	if err := d.ioctl(eviocgid(), unsafe.Pointer(&id)); err != nil {
		return 0, 0, fmt.Errorf("EVIOCGID: %w", err)
	}
	return id[1], id[2], nil
}

// Name returns the device name.
func (d *Device) Name() (string, error) {
	var buf [256]byte
	if err := d.ioctl(eviocgname(uintptr(len(buf))), unsafe.Pointer(&buf[0])); err != nil {
		return "", fmt.Errorf("EVIOCGNAME: %w", err)
	}
	if i := bytes.IndexByte(buf[:], 0); i >= 0 {
		return string(buf[:i]), nil
	}
	return string(buf[:]), nil
}

// TypeBits returns the bitmap of supported event types.
func (d *Device) TypeBits() ([]byte, error) {
	buf := make([]byte, (EvMax+7)/8)
	if err := d.ioctl(eviocgbit(0, uintptr(len(buf))), unsafe.Pointer(&buf[0])); err != nil {
		return nil, fmt.Errorf("EVIOCGBIT(0): %w", err)
	}
	return buf, nil
}

// CodeBits returns the bitmap of supported codes for one event type.
func (d *Device) CodeBits(evType int) ([]byte, error) {
	buf := make([]byte, (KeyMax+7)/8)
	if err := d.ioctl(eviocgbit(uintptr(evType), uintptr(len(buf))), unsafe.Pointer(&buf[0])); err != nil {
		return nil, fmt.Errorf("EVIOCGBIT(%d): %w", evType, err)
	}
	return buf, nil
}

// AbsRange queries the range parameters of one absolute axis.
func (d *Device) AbsRange(code int) (AbsInfo, error) {
	var info AbsInfo
	if err := d.ioctl(eviocgabs(uintptr(code)), unsafe.Pointer(&info)); err != nil {
		return AbsInfo{}, fmt.Errorf("EVIOCGABS(%d): %w", code, err)
	}
	return info, nil
}

// ReadEvents blocks until at least one event is available and returns the
// batch. Returns an error on EOF or device failure.
func (d *Device) ReadEvents() ([]InputEvent, error) {
	buf := make([]byte, 128*EventSize)
	n, err := d.f.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	events := make([]InputEvent, 0, n/EventSize)
	for off := 0; off+EventSize <= n; off += EventSize {
		events = append(events, parseEvent(buf[off:off+EventSize]))
	}
	return events, nil
}

// parseEvent decodes one input_event. The kernel writes native order; the
// supported targets are little-endian.
func parseEvent(p []byte) InputEvent {
	return InputEvent{
		Sec:   int64(binary.LittleEndian.Uint64(p[0:8])),
		Usec:  int64(binary.LittleEndian.Uint64(p[8:16])),
		Type:  binary.LittleEndian.Uint16(p[16:18]),
		Code:  binary.LittleEndian.Uint16(p[18:20]),
		Value: int32(binary.LittleEndian.Uint32(p[20:24])),
	}
}

// BitSet reports whether bit is set in an ioctl capability bitmap.
func BitSet(bits []byte, bit int) bool {
	if bit/8 >= len(bits) {
		return false
	}
	return bits[bit/8]&(1<<(bit%8)) != 0
}

//go:build linux

// Package uinput creates virtual input devices through /dev/uinput and
// injects events into them.
package uinput

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"warpout-core/pkg/evdev"
	"warpout-core/pkg/joystick"
)

const uinputDevice = "/dev/uinput"

const busVirtual = 0x06

// ioctl request constructors for the 'U' (uinput) magic.
func iow(nr, size uintptr) uintptr { return 1<<30 | size<<16 | 'U'<<8 | nr }
func io(nr uintptr) uintptr        { return 'U'<<8 | nr }

var (
	uiSetEvBit   = iow(100, 4)
	uiSetKeyBit  = iow(101, 4)
	uiSetRelBit  = iow(102, 4)
	uiSetAbsBit  = iow(103, 4)
	uiDevSetup   = iow(3, 92)
	uiAbsSetup   = iow(4, 28)
	uiDevCreate  = io(1)
	uiDevDestroy = io(2)
)

// uinputSetup mirrors struct uinput_setup.
type uinputSetup struct {
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	Name         [80]byte
	FFEffectsMax uint32
}

// uinputAbsSetup mirrors struct uinput_abs_setup.
type uinputAbsSetup struct {
	Code uint16
	_    [2]byte
	Info evdev.AbsInfo
}

// Device is a created virtual input device.
type Device struct {
	f *os.File
}

// Create builds a virtual device matching cfg and brings it up.
func Create(cfg *joystick.Config) (*Device, error) {
	fd, err := unix.Open(uinputDevice, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputDevice, err)
	}
	d := &Device{f: os.NewFile(uintptr(fd), uinputDevice)}

	if cfg.ButtonCount > 0 {
		if err := d.ioctlInt(uiSetEvBit, evdev.EvKey); err != nil {
			d.f.Close()
			return nil, fmt.Errorf("UI_SET_EVBIT(EV_KEY): %w", err)
		}
		for i := 0; i < int(cfg.ButtonCount); i++ {
			if err := d.ioctlInt(uiSetKeyBit, int(cfg.Buttons[i])); err != nil {
				d.f.Close()
				return nil, fmt.Errorf("UI_SET_KEYBIT(%d): %w", cfg.Buttons[i], err)
			}
		}
	}
	if cfg.RelAxisCount > 0 {
		if err := d.ioctlInt(uiSetEvBit, evdev.EvRel); err != nil {
			d.f.Close()
			return nil, fmt.Errorf("UI_SET_EVBIT(EV_REL): %w", err)
		}
		for i := 0; i < int(cfg.RelAxisCount); i++ {
			if err := d.ioctlInt(uiSetRelBit, int(cfg.RelAxis[i])); err != nil {
				d.f.Close()
				return nil, fmt.Errorf("UI_SET_RELBIT(%d): %w", cfg.RelAxis[i], err)
			}
		}
	}
	if cfg.AbsAxisCount > 0 {
		if err := d.ioctlInt(uiSetEvBit, evdev.EvAbs); err != nil {
			d.f.Close()
			return nil, fmt.Errorf("UI_SET_EVBIT(EV_ABS): %w", err)
		}
		for i := 0; i < int(cfg.AbsAxisCount); i++ {
			code := cfg.AbsAxis[i]
			if err := d.ioctlInt(uiSetAbsBit, int(code)); err != nil {
				d.f.Close()
				return nil, fmt.Errorf("UI_SET_ABSBIT(%d): %w", code, err)
			}
			abs := uinputAbsSetup{
				Code: code,
				Info: evdev.AbsInfo{
					Minimum:    cfg.AbsAxisMin[i],
					Maximum:    cfg.AbsAxisMax[i],
					Fuzz:       cfg.AbsAxisFuzz[i],
					Flat:       cfg.AbsAxisFlat[i],
					Resolution: cfg.AbsAxisResolution[i],
				},
			}
			if err := d.ioctlPtr(uiAbsSetup, unsafe.Pointer(&abs)); err != nil {
				d.f.Close()
				return nil, fmt.Errorf("UI_ABS_SETUP(%d): %w", code, err)
			}
		}
	}

	setup := uinputSetup{
		Bustype: busVirtual,
		Vendor:  cfg.Vendor,
		Product: cfg.Product,
	}
	copy(setup.Name[:], cfg.NameString())
	if err := d.ioctlPtr(uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		d.f.Close()
		return nil, fmt.Errorf("UI_DEV_SETUP: %w", err)
	}
	if err := d.ioctlInt(uiDevCreate, 0); err != nil {
		d.f.Close()
		return nil, fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return d, nil
}

// Emit injects one event.
func (d *Device) Emit(evType, code uint16, value int32) error {
	var buf [evdev.EventSize]byte
	binary.LittleEndian.PutUint16(buf[16:18], evType)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	if _, err := d.f.Write(buf[:]); err != nil {
		return fmt.Errorf("emit %d/%d: %w", evType, code, err)
	}
	return nil
}

// Sync flushes the pending event batch to readers of the virtual device.
func (d *Device) Sync() error {
	return d.Emit(evdev.EvSyn, 0, 0)
}

// Close destroys the virtual device.
func (d *Device) Close() error {
	err := d.ioctlInt(uiDevDestroy, 0)
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (d *Device) ioctlInt(req uintptr, val int) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(val))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Device) ioctlPtr(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

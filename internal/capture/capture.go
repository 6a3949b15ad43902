//go:build linux

// Package capture implements the client side: it opens an input device,
// describes it to the server as a configuration record, then forwards every
// event batch as reports.
package capture

import (
	"fmt"
	"log"

	"warpout-core/pkg/evdev"
	"warpout-core/pkg/joystick"
	"warpout-core/pkg/transport"
	"warpout-core/pkg/wire"
)

// Run forwards one device for the lifetime of one connection. It returns
// when the device or the connection fails; the caller decides whether to
// reconnect.
func Run(devicePath, addr string, dialer transport.TCPDialer) error {
	dev, err := evdev.Open(devicePath)
	if err != nil {
		return err
	}
	defer dev.Close()

	cfg, im, err := buildConfig(dev)
	if err != nil {
		return fmt.Errorf("scan %s: %w", devicePath, err)
	}

	conn, err := dialer.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := wire.WriteMessage(conn, joystick.TagConfig, cfg.Marshal()); err != nil {
		return fmt.Errorf("send config: %w", err)
	}
	log.Printf("forwarding %q (%d abs, %d rel, %d buttons) to %s",
		cfg.NameString(), cfg.AbsAxisCount, cfg.RelAxisCount, cfg.ButtonCount, addr)

	report := joystick.NewReport(cfg)
	for {
		events, err := dev.ReadEvents()
		if err != nil {
			return err
		}
		for _, ev := range events {
			if ev.Type == evdev.EvSyn {
				if err := wire.WriteMessage(conn, joystick.TagReport, report.Marshal()); err != nil {
					return fmt.Errorf("send report: %w", err)
				}
				// Relative deltas are per-report; absolute and
				// button state persists.
				for i := range report.Rel {
					report.Rel[i] = 0
				}
				continue
			}
			idx := im.get(ev.Type, ev.Code)
			if idx < 0 {
				continue
			}
			switch ev.Type {
			case evdev.EvKey:
				if ev.Value != 0 {
					report.Buttons[idx] = 1
				} else {
					report.Buttons[idx] = 0
				}
			case evdev.EvAbs:
				report.Abs[idx] = ev.Value
			case evdev.EvRel:
				report.Rel[idx] += ev.Value
			}
		}
	}
}

// buildConfig queries the device's identity and capability bitmaps and lays
// out the report: one slot per supported abs axis, rel axis and button, in
// code order.
func buildConfig(dev *evdev.Device) (*joystick.Config, *indexMap, error) {
	var cfg joystick.Config
	im := newIndexMap()

	vendor, product, err := dev.ID()
	if err != nil {
		return nil, nil, err
	}
	cfg.Vendor = vendor
	cfg.Product = product

	name, err := dev.Name()
	if err != nil {
		return nil, nil, err
	}
	cfg.SetName(name)

	types, err := dev.TypeBits()
	if err != nil {
		return nil, nil, err
	}

	if evdev.BitSet(types, evdev.EvAbs) {
		bits, err := dev.CodeBits(evdev.EvAbs)
		if err != nil {
			return nil, nil, err
		}
		for code := 0; code <= evdev.AbsMax; code++ {
			if !evdev.BitSet(bits, code) {
				continue
			}
			if cfg.AbsAxisCount == joystick.MaxAbsAxes {
				log.Printf("device has more than %d abs axes, extra axes dropped", joystick.MaxAbsAxes)
				break
			}
			info, err := dev.AbsRange(code)
			if err != nil {
				return nil, nil, err
			}
			i := cfg.AbsAxisCount
			cfg.AbsAxis[i] = uint16(code)
			cfg.AbsAxisMin[i] = info.Minimum
			cfg.AbsAxisMax[i] = info.Maximum
			cfg.AbsAxisFuzz[i] = info.Fuzz
			cfg.AbsAxisFlat[i] = info.Flat
			cfg.AbsAxisResolution[i] = info.Resolution
			im.set(evdev.EvAbs, uint16(code), int(i))
			cfg.AbsAxisCount++
		}
	}

	if evdev.BitSet(types, evdev.EvRel) {
		bits, err := dev.CodeBits(evdev.EvRel)
		if err != nil {
			return nil, nil, err
		}
		for code := 0; code <= evdev.RelMax; code++ {
			if !evdev.BitSet(bits, code) {
				continue
			}
			if cfg.RelAxisCount == joystick.MaxRelAxes {
				log.Printf("device has more than %d rel axes, extra axes dropped", joystick.MaxRelAxes)
				break
			}
			cfg.RelAxis[cfg.RelAxisCount] = uint16(code)
			im.set(evdev.EvRel, uint16(code), int(cfg.RelAxisCount))
			cfg.RelAxisCount++
		}
	}

	if evdev.BitSet(types, evdev.EvKey) {
		bits, err := dev.CodeBits(evdev.EvKey)
		if err != nil {
			return nil, nil, err
		}
		for code := 0; code <= evdev.KeyMax; code++ {
			if !evdev.BitSet(bits, code) {
				continue
			}
			if cfg.ButtonCount == joystick.MaxButtons {
				log.Printf("device has more than %d buttons, extra buttons dropped", joystick.MaxButtons)
				break
			}
			cfg.Buttons[cfg.ButtonCount] = uint16(code)
			im.set(evdev.EvKey, uint16(code), int(cfg.ButtonCount))
			cfg.ButtonCount++
		}
	}

	return &cfg, im, nil
}

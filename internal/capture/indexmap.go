//go:build linux

package capture

import "warpout-core/pkg/evdev"

// indexMap translates a kernel (type, code) pair to the control's slot in
// the report layout. Unmapped codes are -1.
type indexMap struct {
	abs [evdev.AbsMax + 1]int
	rel [evdev.RelMax + 1]int
	key [evdev.KeyMax + 1]int
}

func newIndexMap() *indexMap {
	m := &indexMap{}
	for i := range m.abs {
		m.abs[i] = -1
	}
	for i := range m.rel {
		m.rel[i] = -1
	}
	for i := range m.key {
		m.key[i] = -1
	}
	return m
}

func (m *indexMap) set(evType, code uint16, idx int) {
	switch evType {
	case evdev.EvAbs:
		if int(code) < len(m.abs) {
			m.abs[code] = idx
		}
	case evdev.EvRel:
		if int(code) < len(m.rel) {
			m.rel[code] = idx
		}
	case evdev.EvKey:
		if int(code) < len(m.key) {
			m.key[code] = idx
		}
	}
}

func (m *indexMap) get(evType, code uint16) int {
	switch evType {
	case evdev.EvAbs:
		if int(code) < len(m.abs) {
			return m.abs[code]
		}
	case evdev.EvRel:
		if int(code) < len(m.rel) {
			return m.rel[code]
		}
	case evdev.EvKey:
		if int(code) < len(m.key) {
			return m.key[code]
		}
	}
	return -1
}

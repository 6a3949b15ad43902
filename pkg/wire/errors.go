package wire

import (
	"errors"

	"warpout-core/pkg/slip"
)

var (
	ErrBadEscape = errors.New("wire: bad escape sequence")
	ErrOverflow  = errors.New("wire: frame exceeds buffer capacity")
)

func framingError(st slip.Status) error {
	if st == slip.StatusOverflow {
		return ErrOverflow
	}
	return ErrBadEscape
}

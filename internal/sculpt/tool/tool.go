// Package tool maps the sculptor's brush modes and sizes onto paint
// callbacks and patch effectors.
package tool

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTool is returned when parsing an unrecognised mode or size.
var ErrUnknownTool = errors.New("unknown tool")

// Mode selects what a stroke does to the triangles it paints.
type Mode int

// Brush modes.
const (
	Color Mode = iota
	Inflate
	Deflate
	Handle
	Lift
)

var modeNames = [...]string{"color", "inflate", "deflate", "handle", "lift"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Geometric reports whether the mode moves vertices.
func (m Mode) Geometric() bool { return m != Color }

// Handled reports whether strokes in this mode drag the start patch rather
// than follow the pointer.
func (m Mode) Handled() bool { return m == Handle }

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: mode %q", ErrUnknownTool, s)
}

// Size selects the patch radius.
type Size int

// Patch sizes.
const (
	Tri Size = iota
	Small
	Big
)

var sizeNames = [...]string{"tri", "small", "big"}

func (s Size) String() string {
	if s < 0 || int(s) >= len(sizeNames) {
		return fmt.Sprintf("Size(%d)", int(s))
	}
	return sizeNames[s]
}

// Radius returns the patch radius for the size. Tri paints single
// triangles.
func (s Size) Radius(small, big float32) float32 {
	switch s {
	case Small:
		return small
	case Big:
		return big
	default:
		return 0
	}
}

// ParseSize returns the size named s.
func ParseSize(s string) (Size, error) {
	for i, name := range sizeNames {
		if strings.EqualFold(s, name) {
			return Size(i), nil
		}
	}
	return 0, fmt.Errorf("%w: size %q", ErrUnknownTool, s)
}

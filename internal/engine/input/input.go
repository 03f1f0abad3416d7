// Package input turns SDL2 mouse, touch and keyboard events into pointer
// and key events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType identifies an Event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventPointerDown
	EventPointerMove
	EventPointerUp
	EventWheel
)

// Pointer buttons, numbered as SDL numbers them. A touch is reported as
// ButtonPrimary.
const (
	ButtonPrimary   uint8 = 1
	ButtonMiddle    uint8 = 2
	ButtonSecondary uint8 = 3
)

// touchMouseID marks mouse events SDL synthesizes from touches.
const touchMouseID = 0xFFFFFFFF

// Event represents a processed input event. Pointer positions are in
// window coordinates with the origin at the top left.
type Event struct {
	Type   EventType
	Key    sdl.Keycode
	Shift  bool
	Width  int
	Height int
	X, Y   float32
	DX, DY float32 // pointer motion or wheel scroll
	Button uint8
	Touch  bool
}

// Input handles all input processing.
type Input struct {
	events []Event

	width, height int
	finger        sdl.FingerID
	fingerDown    bool
}

// New creates an input handler for a window of the given size, used to
// scale touch positions.
func New(width, height int) *Input {
	return &Input{
		events: make([]Event, 0, 16),
		width:  width,
		height: height,
	}
}

// Update polls SDL events and converts them. It returns true when the user
// asked to quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.width, i.height = int(e.Data1), int(e.Data2)
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  i.width,
					Height: i.height,
				})
			}

		case *sdl.KeyboardEvent:
			if e.Repeat != 0 {
				continue
			}
			ev := Event{
				Key:   e.Keysym.Sym,
				Shift: e.Keysym.Mod&uint16(sdl.KMOD_SHIFT) != 0,
			}
			if e.Type == sdl.KEYDOWN {
				ev.Type = EventKeyDown
			} else {
				ev.Type = EventKeyUp
			}
			i.events = append(i.events, ev)

		case *sdl.MouseMotionEvent:
			if e.Which == touchMouseID {
				continue
			}
			i.events = append(i.events, Event{
				Type: EventPointerMove,
				X:    float32(e.X),
				Y:    float32(e.Y),
				DX:   float32(e.XRel),
				DY:   float32(e.YRel),
			})

		case *sdl.MouseButtonEvent:
			if e.Which == touchMouseID {
				continue
			}
			ev := Event{Type: EventPointerUp, X: float32(e.X), Y: float32(e.Y), Button: e.Button}
			if e.Type == sdl.MOUSEBUTTONDOWN {
				ev.Type = EventPointerDown
			}
			i.events = append(i.events, ev)

		case *sdl.MouseWheelEvent:
			i.events = append(i.events, Event{Type: EventWheel, DX: float32(e.X), DY: float32(e.Y)})

		case *sdl.TouchFingerEvent:
			if ev, ok := i.touch(e); ok {
				i.events = append(i.events, ev)
			}
		}
	}

	return false
}

// touch follows the first finger down and ignores the rest.
func (i *Input) touch(e *sdl.TouchFingerEvent) (Event, bool) {
	ev := Event{
		X:      e.X * float32(i.width),
		Y:      e.Y * float32(i.height),
		DX:     e.DX * float32(i.width),
		DY:     e.DY * float32(i.height),
		Button: ButtonPrimary,
		Touch:  true,
	}
	switch e.Type {
	case sdl.FINGERDOWN:
		if i.fingerDown {
			return ev, false
		}
		i.finger, i.fingerDown = e.FingerID, true
		ev.Type = EventPointerDown
	case sdl.FINGERMOTION:
		if !i.fingerDown || e.FingerID != i.finger {
			return ev, false
		}
		ev.Type = EventPointerMove
	case sdl.FINGERUP:
		if !i.fingerDown || e.FingerID != i.finger {
			return ev, false
		}
		i.fingerDown = false
		ev.Type = EventPointerUp
	default:
		return ev, false
	}
	return ev, true
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// KeyPressed reports whether key went down this frame.
func (i *Input) KeyPressed(key sdl.Keycode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == key {
			return true
		}
	}
	return false
}

package session

import "github.com/Faultbox/sculptor/internal/sculpt/tool"

// Command is a keyboard action.
type Command int

const (
	CmdNone Command = iota
	CmdMode
	CmdSize
	CmdColor
	CmdUndo
	CmdRegenerate
	CmdExportSTL
	CmdExportPLY
	CmdToggleBins
	CmdQuit
)

// Binding is the action bound to a key.
type Binding struct {
	Command Command
	Mode    tool.Mode
	Size    tool.Size
}

// escape is the escape key's code.
const escape = 0x1b

// KeyBinding maps an unshifted key code and the shift state to an action.
// Lower case w, e, r and t pick color, inflate, deflate and handle; shifted
// w, e and r pick the triangle, small and big patch sizes.
func KeyBinding(key rune, shift bool) Binding {
	if shift {
		switch key {
		case 'w':
			return Binding{Command: CmdSize, Size: tool.Tri}
		case 'e':
			return Binding{Command: CmdSize, Size: tool.Small}
		case 'r':
			return Binding{Command: CmdSize, Size: tool.Big}
		}
		return Binding{}
	}
	switch key {
	case 'w':
		return Binding{Command: CmdMode, Mode: tool.Color}
	case 'e':
		return Binding{Command: CmdMode, Mode: tool.Inflate}
	case 'r':
		return Binding{Command: CmdMode, Mode: tool.Deflate}
	case 't':
		return Binding{Command: CmdMode, Mode: tool.Handle}
	case 'l':
		return Binding{Command: CmdMode, Mode: tool.Lift}
	case 'c':
		return Binding{Command: CmdColor}
	case 'z':
		return Binding{Command: CmdUndo}
	case 'n':
		return Binding{Command: CmdRegenerate}
	case 's':
		return Binding{Command: CmdExportSTL}
	case 'p':
		return Binding{Command: CmdExportPLY}
	case 'b':
		return Binding{Command: CmdToggleBins}
	case escape, 'q':
		return Binding{Command: CmdQuit}
	}
	return Binding{}
}

// Apply performs the bindings that only touch session state and reports
// whether it did. Exports, overlay toggles and quitting are left to the
// host.
func (s *Session) Apply(b Binding) (bool, error) {
	switch b.Command {
	case CmdMode:
		s.SetMode(b.Mode)
	case CmdSize:
		s.SetSize(b.Size)
	case CmdColor:
		s.NextColor()
	case CmdUndo:
		s.Undo()
	case CmdRegenerate:
		return true, s.Regenerate()
	default:
		return false, nil
	}
	return true, nil
}

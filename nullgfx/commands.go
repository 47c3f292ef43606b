package nullgfx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/woozymasta/matsys"
)

// Op is a recorded command kind.
type Op int

// Command kinds.
const (
	OpBindSnapshot Op = iota
	OpSetConstant
	OpBindTexture
	OpDraw
)

func (o Op) String() string {
	switch o {
	case OpBindSnapshot:
		return "bind-snapshot"
	case OpSetConstant:
		return "set-constant"
	case OpBindTexture:
		return "bind-texture"
	case OpDraw:
		return "draw"
	default:
		return "unknown"
	}
}

// Command is one recorded command. Fields not used by Op are zero.
type Command struct {
	Op       Op
	Snapshot matsys.Snapshot
	Slot     int
	Value    mgl32.Vec4
	Texture  string
}

// CommandList records commands in order. It implements matsys.CommandBuffer.
type CommandList struct {
	Commands []Command
}

// BindSnapshot implements matsys.CommandBuffer.
func (c *CommandList) BindSnapshot(s matsys.Snapshot) {
	c.Commands = append(c.Commands, Command{Op: OpBindSnapshot, Snapshot: s})
}

// SetConstant implements matsys.CommandBuffer.
func (c *CommandList) SetConstant(slot int, v mgl32.Vec4) {
	c.Commands = append(c.Commands, Command{Op: OpSetConstant, Slot: slot, Value: v})
}

// BindTexture implements matsys.CommandBuffer.
func (c *CommandList) BindTexture(unit int, tex matsys.Texture) {
	name := ""
	if tex != nil {
		name = tex.Name()
	}
	c.Commands = append(c.Commands, Command{Op: OpBindTexture, Slot: unit, Texture: name})
}

// Draw implements matsys.CommandBuffer.
func (c *CommandList) Draw() {
	c.Commands = append(c.Commands, Command{Op: OpDraw})
}

// Count returns the number of recorded commands of kind op.
func (c *CommandList) Count(op Op) int {
	n := 0
	for _, cmd := range c.Commands {
		if cmd.Op == op {
			n++
		}
	}

	return n
}

// Reset drops every recorded command.
func (c *CommandList) Reset() {
	c.Commands = c.Commands[:0]
}

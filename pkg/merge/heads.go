// Package merge interleaves two single-extruder toolpaths into one
// dual-extrusion toolpath.
//
// Each input is split into layers, the layers are merged by height, and a
// toolchange block is synthesized whenever the printing head switches. The
// start blocks of both inputs are stitched into one, and the duplicated
// shutdown sequences at the end are reduced to a single one.
package merge

import (
	"fmt"
	"strings"

	"dualstrusion-go/pkg/layer"
)

// Identity names the head that produced a layer.
type Identity int

const (
	// None means no real layer has been emitted yet.
	None Identity = iota
	// Left is head A.
	Left
	// Right is head B.
	Right
)

// String returns "none", "left" or "right".
func (id Identity) String() string {
	switch id {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// Other returns the opposite head. The other of None is None.
func (id Identity) Other() Identity {
	switch id {
	case Left:
		return Right
	case Right:
		return Left
	default:
		return None
	}
}

// ToolIdentity carries the instruction strings that select a head.
type ToolIdentity struct {
	// Tool is the tool-select token, e.g. "T1".
	Tool string
	// Offset is the offset-recall instruction, e.g. "G55".
	Offset string
}

// Heads maps both identities to their instruction strings.
type Heads struct {
	Left  ToolIdentity
	Right ToolIdentity
}

// DefaultHeads matches dual-head MakerBot machines: the right extruder is
// tool 0 with work offset G54, the left is tool 1 with G55.
func DefaultHeads() Heads {
	return Heads{
		Left:  ToolIdentity{Tool: "T1", Offset: "G55"},
		Right: ToolIdentity{Tool: "T0", Offset: "G54"},
	}
}

// Get returns the instruction strings for id.
func (h Heads) Get(id Identity) ToolIdentity {
	if id == Right {
		return h.Right
	}
	return h.Left
}

// remapInto rewrites the other head's tokens into id's tokens. Each input
// was sliced for a single extruder, so whatever head it names must become
// the head it is assigned to.
func (h Heads) remapInto(id Identity) layer.Remap {
	from, to := h.Get(id.Other()), h.Get(id)
	return layer.Remap{
		FromTool:   from.Tool,
		ToTool:     to.Tool,
		FromOffset: from.Offset,
		ToOffset:   to.Offset,
	}
}

// commentPrefix tags a comment with the head it came from.
func commentPrefix(id Identity) string {
	return "(<" + id.String() + "> "
}

// MachineClass selects the wipe hardware layout.
type MachineClass int

const (
	// MachineGeneric wipes each head on its own station.
	MachineGeneric MachineClass = iota
	// MachineReplicator has one wipe shared by both heads.
	MachineReplicator
	// MachineThingOMatic wipes each head on its own station.
	MachineThingOMatic
)

// String returns the profile name of the machine class.
func (m MachineClass) String() string {
	switch m {
	case MachineReplicator:
		return "replicator"
	case MachineThingOMatic:
		return "tom"
	default:
		return "generic"
	}
}

// SharedWipe reports whether one wipe cleans both heads.
func (m MachineClass) SharedWipe() bool {
	return m == MachineReplicator
}

// MachineClasses lists the accepted profile names.
var MachineClasses = []string{"generic", "replicator", "tom"}

// ParseMachineClass parses a profile name.
func ParseMachineClass(s string) (MachineClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "generic":
		return MachineGeneric, nil
	case "replicator", "the_replicator":
		return MachineReplicator, nil
	case "tom", "thingomatic", "thing-o-matic":
		return MachineThingOMatic, nil
	default:
		return MachineGeneric, fmt.Errorf("unknown machine class %q", s)
	}
}

package domain

import "fmt"

// Kind identifies the concrete variant of a component.
type Kind uint8

// Component variants.
const (
	KindComponent Kind = iota
	KindNode
	KindEdge
	KindFace
	KindSystem
	KindRasterData
)

var kindNames = [...]string{
	KindComponent:  "component",
	KindNode:       "node",
	KindEdge:       "edge",
	KindFace:       "face",
	KindSystem:     "system",
	KindRasterData: "rasterdata",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps a kind name back to its value.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Capabilities describes what a component variant supports.
type Capabilities struct {
	HasGeometry  bool
	OwnsChildren bool
	IsGraphNode  bool
	IsGraphEdge  bool
}

// Capabilities returns the capability set of k.
func (k Kind) Capabilities() Capabilities {
	switch k {
	case KindNode:
		return Capabilities{HasGeometry: true, IsGraphNode: true}
	case KindEdge:
		return Capabilities{HasGeometry: true, IsGraphEdge: true}
	case KindFace:
		return Capabilities{HasGeometry: true}
	case KindRasterData:
		return Capabilities{HasGeometry: true}
	case KindSystem:
		return Capabilities{OwnsChildren: true}
	default:
		return Capabilities{}
	}
}

package fdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Kind names the fixed set of well-known property names spec.md §3
// calls out; everything else falls into KindUnknown and is exposed
// only as raw bytes, the spec's "catch-all {name, raw_bytes}" case.
type Kind int

const (
	KindUnknown Kind = iota
	KindCompatible
	KindModel
	KindPhandle
	KindStatus
	KindAddressCells
	KindSizeCells
	KindReg
	KindRanges
	KindDMARanges
	KindDMACoherent
	KindDMANoncoherent
	KindInterrupts
	KindInterruptParent
	KindInterruptsExtended
	KindInterruptCells
	KindInterruptController
	KindInterruptMap
	KindInterruptMapMask
	KindClockFrequency
	KindTimebaseFrequency
)

var knownKinds = map[string]Kind{
	"compatible":           KindCompatible,
	"model":                KindModel,
	"phandle":              KindPhandle,
	"status":               KindStatus,
	"#address-cells":       KindAddressCells,
	"#size-cells":          KindSizeCells,
	"reg":                  KindReg,
	"ranges":               KindRanges,
	"dma-ranges":           KindDMARanges,
	"dma-coherent":         KindDMACoherent,
	"dma-noncoherent":      KindDMANoncoherent,
	"interrupts":           KindInterrupts,
	"interrupt-parent":     KindInterruptParent,
	"interrupts-extended":  KindInterruptsExtended,
	"#interrupt-cells":     KindInterruptCells,
	"interrupt-controller": KindInterruptController,
	"interrupt-map":        KindInterruptMap,
	"interrupt-map-mask":   KindInterruptMapMask,
	"clock-frequency":      KindClockFrequency,
	"timebase-frequency":   KindTimebaseFrequency,
}

// Property is a single device-tree property: a name plus its raw
// big-endian payload, typed on demand by the accessors below rather
// than eagerly decoded into a Go union — mirroring how the teacher's
// own fdt.Property (node.go) keeps one populated field at a time and
// exposes Kind() to tell callers which.
type Property struct {
	Name string
	Raw  []byte
}

// Kind reports which of the well-known property names this is.
func (p Property) Kind() Kind {
	if k, ok := knownKinds[p.Name]; ok {
		return k
	}
	return KindUnknown
}

// AsU32 interprets the property as a single big-endian 32-bit scalar.
func (p Property) AsU32() (uint32, error) {
	if len(p.Raw) != 4 {
		return 0, fmt.Errorf("fdt: property %q is not a u32 (len=%d)", p.Name, len(p.Raw))
	}
	return binary.BigEndian.Uint32(p.Raw), nil
}

// AsU64 interprets the property as a scalar, big-endian, accepting
// either a 4-byte or 8-byte payload — spec.md §4.1 calls for u64
// parsing of clock-frequency/timebase-frequency "when the payload is 8
// bytes".
func (p Property) AsU64() (uint64, error) {
	switch len(p.Raw) {
	case 4:
		return uint64(binary.BigEndian.Uint32(p.Raw)), nil
	case 8:
		return binary.BigEndian.Uint64(p.Raw), nil
	default:
		return 0, fmt.Errorf("fdt: property %q is not a u32/u64 scalar (len=%d)", p.Name, len(p.Raw))
	}
}

// AsU32Array splits the property into big-endian u32 cells.
func (p Property) AsU32Array() ([]uint32, error) {
	if len(p.Raw)%4 != 0 {
		return nil, fmt.Errorf("%w: property %q length %d not a multiple of 4", ErrInvalidCellCounts, p.Name, len(p.Raw))
	}
	out := make([]uint32, len(p.Raw)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(p.Raw[i*4:])
	}
	return out, nil
}

// AsStrings splits a NUL-terminated string-list payload, the form
// `compatible` always takes.
func (p Property) AsStrings() []string {
	if len(p.Raw) == 0 {
		return nil
	}
	raw := p.Raw
	if raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	parts := bytes.Split(raw, []byte{0})
	out := make([]string, len(parts))
	for i, part := range parts {
		out[i] = string(part)
	}
	return out
}

// IsEmpty reports whether this is a marker property with no payload
// (e.g. "interrupt-controller", "ranges" on a transparent bus, "dma-coherent").
func (p Property) IsEmpty() bool {
	return len(p.Raw) == 0
}

// Compatible returns the node's `compatible` strings, or nil if absent.
func (n *Node) Compatible() []string {
	p, ok := n.Property("compatible")
	if !ok {
		return nil
	}
	return p.AsStrings()
}

// HasCompatible reports whether any of the node's compatible strings
// matches one of candidates.
func (n *Node) HasCompatible(candidates ...string) bool {
	for _, have := range n.Compatible() {
		for _, want := range candidates {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsInterruptController reports whether the node carries the
// `interrupt-controller` marker property.
func (n *Node) IsInterruptController() bool {
	_, ok := n.Property("interrupt-controller")
	return ok
}

// RegEntry is one (address, size) pair decoded from a `reg` property.
type RegEntry struct {
	Addr uint64
	Size uint64
}

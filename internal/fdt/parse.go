package fdt

import (
	"encoding/binary"
	"fmt"
)

// header mirrors the fixed-index word layout of the FDT header: magic,
// total size, then the offset/size pairs for each block. Field order
// matches the Devicetree Specification and the teacher's own builder
// (build.go's finish(), fdt.go's Build()) byte for byte.
type header struct {
	magic          uint32
	totalSize      uint32
	offStruct      uint32
	offStrings     uint32
	offMemRsvmap   uint32
	version        uint32
	lastCompVer    uint32
	bootCpuidPhys  uint32
	sizeStrings    uint32
	sizeStruct     uint32
}

func parseHeader(blob []byte) (header, error) {
	if len(blob) < headerBytes {
		return header{}, fmt.Errorf("%w: blob shorter than header", ErrInvalidDeviceTree)
	}

	be := binary.BigEndian
	h := header{
		magic:         be.Uint32(blob[0:4]),
		totalSize:     be.Uint32(blob[4:8]),
		offStruct:     be.Uint32(blob[8:12]),
		offStrings:    be.Uint32(blob[12:16]),
		offMemRsvmap:  be.Uint32(blob[16:20]),
		version:       be.Uint32(blob[20:24]),
		lastCompVer:   be.Uint32(blob[24:28]),
		bootCpuidPhys: be.Uint32(blob[28:32]),
		sizeStrings:   be.Uint32(blob[32:36]),
		sizeStruct:    be.Uint32(blob[36:40]),
	}

	if h.magic != Magic {
		return header{}, fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrMagicMismatch, h.magic, Magic)
	}

	return h, nil
}

// Parse validates and parses a word-aligned FDT blob into a DeviceTree.
func Parse(blob []byte) (*DeviceTree, error) {
	h, err := parseHeader(blob)
	if err != nil {
		return nil, err
	}

	if uint64(h.offStruct)+uint64(h.sizeStruct) > uint64(len(blob)) {
		return nil, fmt.Errorf("%w: structure block out of bounds", ErrInvalidDeviceTree)
	}
	if uint64(h.offStrings)+uint64(h.sizeStrings) > uint64(len(blob)) {
		return nil, fmt.Errorf("%w: strings block out of bounds", ErrInvalidDeviceTree)
	}

	strings := blob[h.offStrings : h.offStrings+h.sizeStrings]

	p := &parser{
		blob:    blob,
		strings: strings,
		pos:     h.offStruct,
		end:     h.offStruct + h.sizeStruct,
	}

	dt := &DeviceTree{
		phandles: make(map[uint32]NodeId),
		blob:     blob,
	}

	if err := p.parseTree(dt); err != nil {
		return nil, err
	}

	return dt, nil
}

type parser struct {
	blob    []byte
	strings []byte
	pos     uint32
	end     uint32
}

func (p *parser) readU32() (uint32, error) {
	if p.pos+4 > uint32(len(p.blob)) {
		return 0, fmt.Errorf("%w: structure block truncated", ErrInvalidDeviceTree)
	}
	v := binary.BigEndian.Uint32(p.blob[p.pos : p.pos+4])
	p.pos += 4
	return v, nil
}

// readCString reads a NUL-terminated string starting at p.pos and
// advances past it, rounding up to the next 4-byte word as every
// structure-block entry does.
func (p *parser) readCString() (string, error) {
	start := p.pos
	i := start
	for {
		if i >= uint32(len(p.blob)) {
			return "", fmt.Errorf("%w: unterminated string", ErrInvalidDeviceTree)
		}
		if p.blob[i] == 0 {
			break
		}
		i++
	}
	s := string(p.blob[start:i])
	consumed := i - start + 1
	p.pos += align4(consumed)
	return s, nil
}

func (p *parser) stringAt(off uint32) (string, error) {
	if off >= uint32(len(p.strings)) {
		return "", fmt.Errorf("%w: string offset out of bounds", ErrInvalidDeviceTree)
	}
	i := off
	for i < uint32(len(p.strings)) && p.strings[i] != 0 {
		i++
	}
	return string(p.strings[off:i]), nil
}

func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// parseTree walks the token stream, building dt.nodes as it goes. The
// top-level stream must open with exactly one BEGIN_NODE whose name is
// empty (spec.md §3) and close with END.
func (p *parser) parseTree(dt *DeviceTree) error {
	tok, err := p.readU32()
	if err != nil {
		return err
	}
	if tok != tokenBeginNode {
		return fmt.Errorf("%w: expected root BEGIN_NODE, got token 0x%x", ErrInvalidDeviceTree, tok)
	}

	name, err := p.readCString()
	if err != nil {
		return err
	}
	if name != "" {
		return fmt.Errorf("%w: root node name must be empty, got %q", ErrInvalidDeviceTree, name)
	}

	dt.nodes = append(dt.nodes, Node{Name: "", Parent: noParent})
	if err := p.parseNodeBody(dt, RootID); err != nil {
		return err
	}

	tok, err = p.readU32()
	if err != nil {
		return err
	}
	if tok != tokenEnd {
		return fmt.Errorf("%w: expected END after root node, got token 0x%x", ErrInvalidDeviceTree, tok)
	}

	return nil
}

// parseNodeBody consumes tokens belonging to node `id` until its
// matching END_NODE, recursing into BEGIN_NODE children.
func (p *parser) parseNodeBody(dt *DeviceTree, id NodeId) error {
	for {
		tok, err := p.readU32()
		if err != nil {
			return err
		}

		switch tok {
		case tokenNop:
			continue

		case tokenEndNode:
			return nil

		case tokenBeginNode:
			name, err := p.readCString()
			if err != nil {
				return err
			}
			childID := NodeId(len(dt.nodes))
			dt.nodes = append(dt.nodes, Node{Name: name, Parent: id})
			dt.Node(id).Children = append(dt.Node(id).Children, ChildRef{Name: name, ID: childID})
			if err := p.parseNodeBody(dt, childID); err != nil {
				return err
			}

		case tokenProp:
			if err := p.parseProperty(dt, id); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unexpected token 0x%x inside node %q", ErrInvalidDeviceTree, tok, dt.Node(id).Name)
		}
	}
}

func (p *parser) parseProperty(dt *DeviceTree, owner NodeId) error {
	valueLen, err := p.readU32()
	if err != nil {
		return err
	}
	nameOff, err := p.readU32()
	if err != nil {
		return err
	}
	name, err := p.stringAt(nameOff)
	if err != nil {
		return err
	}

	if p.pos+valueLen > uint32(len(p.blob)) {
		return fmt.Errorf("%w: property %q value out of bounds", ErrInvalidDeviceTree, name)
	}
	raw := p.blob[p.pos : p.pos+valueLen]
	p.pos += align4(valueLen)

	prop := Property{Name: name, Raw: raw}
	dt.Node(owner).Properties = append(dt.Node(owner).Properties, prop)

	if name == "phandle" || name == "linux,phandle" {
		v, err := prop.AsU32()
		if err != nil {
			return fmt.Errorf("%w: phandle property: %v", ErrInvalidDeviceTree, err)
		}
		dt.phandles[v] = owner
	}

	return nil
}

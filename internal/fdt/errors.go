package fdt

import "errors"

// Parse errors, per spec.md §4.1. Parsing is fatal at boot; there is
// no partial-tree recovery, so these are returned all the way up to
// the caller rather than logged and swallowed here.
var (
	// ErrMagicMismatch is returned when the blob's first word is not Magic.
	ErrMagicMismatch = errors.New("fdt: magic mismatch")

	// ErrInvalidDeviceTree covers a wrong token where a node was
	// expected, an unresolved phandle, or a missing mandatory property.
	ErrInvalidDeviceTree = errors.New("fdt: invalid device tree")

	// ErrInvalidCellCounts is returned when a reg/ranges payload length
	// is not a multiple of the cell counts it is split by.
	ErrInvalidCellCounts = errors.New("fdt: invalid cell counts")

	// ErrUnsupportedCellSize is returned for a #address-cells or
	// #size-cells value other than 1 or 2.
	ErrUnsupportedCellSize = errors.New("fdt: unsupported cell size")
)

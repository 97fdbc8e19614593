package fdt

import "encoding/binary"

// testBuilder constructs synthetic FDT blobs for the parser tests
// below. It consolidates what were, in the teacher pack, two
// overlapping FDT builders in the same package
// (_examples/tinyrange-cc/internal/fdt/{builder,build}.go) into the
// one this kernel actually needs: a test fixture generator, since
// production code here only ever consumes blobs handed to it by
// firmware and never emits one.
type testBuilder struct {
	structure []byte
	strings   []byte
	stringOff map[string]uint32
}

func newTestBuilder() *testBuilder {
	return &testBuilder{stringOff: make(map[string]uint32)}
}

func (b *testBuilder) beginNode(name string) {
	b.appendU32(tokenBeginNode)
	b.appendCString(name)
}

func (b *testBuilder) endNode() {
	b.appendU32(tokenEndNode)
}

func (b *testBuilder) propU32(name string, value uint32) {
	b.appendU32(tokenProp)
	b.appendU32(4)
	b.appendU32(b.addString(name))
	b.appendU32(value)
}

func (b *testBuilder) propU32Array(name string, values []uint32) {
	b.appendU32(tokenProp)
	b.appendU32(uint32(len(values) * 4))
	b.appendU32(b.addString(name))
	for _, v := range values {
		b.appendU32(v)
	}
}

func (b *testBuilder) propString(name, value string) {
	b.propBytes(name, append([]byte(value), 0))
}

func (b *testBuilder) propStrings(name string, values []string) {
	var data []byte
	for _, v := range values {
		data = append(data, v...)
		data = append(data, 0)
	}
	b.propBytes(name, data)
}

func (b *testBuilder) propEmpty(name string) {
	b.appendU32(tokenProp)
	b.appendU32(0)
	b.appendU32(b.addString(name))
}

func (b *testBuilder) propBytes(name string, data []byte) {
	b.appendU32(tokenProp)
	b.appendU32(uint32(len(data)))
	b.appendU32(b.addString(name))
	b.appendBytes(data)
}

func (b *testBuilder) build() []byte {
	b.appendU32(tokenEnd)

	const hdrSize = headerBytes
	memRsvOff := uint32(hdrSize)
	memRsvSize := uint32(memRsvEntry)
	structOff := memRsvOff + memRsvSize
	structSize := uint32(len(b.structure))
	stringsOff := structOff + structSize
	stringsSize := uint32(len(b.strings))
	total := stringsOff + stringsSize

	blob := make([]byte, total)
	be := binary.BigEndian
	be.PutUint32(blob[0:], Magic)
	be.PutUint32(blob[4:], total)
	be.PutUint32(blob[8:], structOff)
	be.PutUint32(blob[12:], stringsOff)
	be.PutUint32(blob[16:], memRsvOff)
	be.PutUint32(blob[20:], 17) // version
	be.PutUint32(blob[24:], 16) // last_comp_version
	be.PutUint32(blob[28:], 0)  // boot_cpuid_phys
	be.PutUint32(blob[32:], stringsSize)
	be.PutUint32(blob[36:], structSize)

	copy(blob[structOff:], b.structure)
	copy(blob[stringsOff:], b.strings)

	return blob
}

func (b *testBuilder) appendU32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.structure = append(b.structure, tmp[:]...)
}

func (b *testBuilder) appendCString(s string) {
	b.appendBytes(append([]byte(s), 0))
}

func (b *testBuilder) appendBytes(data []byte) {
	b.structure = append(b.structure, data...)
	for len(b.structure)%4 != 0 {
		b.structure = append(b.structure, 0)
	}
}

func (b *testBuilder) addString(name string) uint32 {
	if off, ok := b.stringOff[name]; ok {
		return off
	}
	off := uint32(len(b.strings))
	b.stringOff[name] = off
	b.strings = append(b.strings, name...)
	b.strings = append(b.strings, 0)
	return off
}

package pipl

import "encoding/binary"

// Test fixture builders shared by the container reader tests. They assemble
// minimal but structurally honest containers byte by byte, so malformed
// variants can be produced by patching single fields.

type rawFixture struct {
	tag  string
	data []byte
}

// buildPropertyArray assembles the big-endian property array shared by all
// binary containers.
func buildPropertyArray(specs []rawFixture) []byte {
	out := putBE16(uint16(len(specs)))
	for _, s := range specs {
		out = append(out, s.tag...)
		out = append(out, 0, 0, 0, 0) // sub-id
		out = append(out, putBE32(uint32(len(s.data)))...)
		out = append(out, s.data...)
		if len(s.data)%2 == 1 {
			out = append(out, 0)
		}
	}
	return out
}

type forkResource struct {
	id      int16
	name    string
	payload []byte
}

// buildResourceFork assembles a resource fork holding one resource type.
func buildResourceFork(typeCode string, resources []forkResource) []byte {
	var dataArea []byte
	dataOffs := make([]uint32, len(resources))
	for i, res := range resources {
		dataOffs[i] = uint32(len(dataArea))
		dataArea = append(dataArea, putBE32(uint32(len(res.payload)))...)
		dataArea = append(dataArea, res.payload...)
	}

	var nameList []byte
	nameOffs := make([]uint16, len(resources))
	for i, res := range resources {
		if res.name == "" {
			nameOffs[i] = 0xffff
			continue
		}
		nameOffs[i] = uint16(len(nameList))
		nameList = append(nameList, byte(len(res.name)))
		nameList = append(nameList, res.name...)
	}

	const mapHeaderLen = 28
	const typeListLen = 2 + 8 // count word plus one type entry
	refListLen := 12 * len(resources)
	typeListOff := uint16(mapHeaderLen)
	nameListOff := uint16(mapHeaderLen + typeListLen + refListLen)

	m := make([]byte, mapHeaderLen)
	copy(m[24:26], putBE16(typeListOff))
	copy(m[26:28], putBE16(nameListOff))

	m = append(m, putBE16(0)...) // count-1: exactly one type
	m = append(m, typeCode...)
	m = append(m, putBE16(uint16(len(resources)-1))...)
	m = append(m, putBE16(typeListLen)...) // ref list follows the type list

	for i, res := range resources {
		m = append(m, putBE16(uint16(res.id))...)
		m = append(m, putBE16(nameOffs[i])...)
		m = append(m, putBE32(dataOffs[i]&0x00ffffff)...)
		m = append(m, 0, 0, 0, 0) // reserved handle
	}
	m = append(m, nameList...)

	out := putBE32(16)
	out = append(out, putBE32(uint32(16+len(dataArea)))...)
	out = append(out, putBE32(uint32(len(dataArea)))...)
	out = append(out, putBE32(uint32(len(m)))...)
	out = append(out, dataArea...)
	out = append(out, m...)
	return out
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

type peFixtureOpts struct {
	typeByID   bool // id at the type level instead of the name "PiPL"
	cyclic     bool // language directory points back at the root
	resourceID uint16
	resName    string // optional name at the id level
}

// Resource section layout used by buildMockPE, relative to the section start.
const (
	peFixRoot      = 0x00
	peFixLevel1    = 0x20
	peFixLevel2    = 0x40
	peFixDataEntry = 0x60
	peFixTypeName  = 0x70
	peFixResName   = 0x90
	peFixPayload   = 0xc0
	peFixRVA       = 0x1000
	peFixFileOff   = 0x200
)

func resDirHeader(numNamed, numID uint16) []byte {
	d := make([]byte, 16)
	binary.LittleEndian.PutUint16(d[12:], numNamed)
	binary.LittleEndian.PutUint16(d[14:], numID)
	return d
}

func utf16Name(s string) []byte {
	out := le16(uint16(len(s)))
	for _, r := range s {
		out = append(out, le16(uint16(r))...)
	}
	return out
}

// buildMockPE assembles a PE32+ image with a single .rsrc section holding a
// three-level resource directory around payload.
func buildMockPE(payload []byte, opts peFixtureOpts) []byte {
	sec := make([]byte, peFixPayload+len(payload))

	// Type level.
	var root []byte
	if opts.typeByID {
		root = resDirHeader(0, 1)
		root = append(root, le32(9999)...)
		root = append(root, le32(0x80000000|peFixLevel1)...)
	} else {
		root = resDirHeader(1, 0)
		root = append(root, le32(0x80000000|peFixTypeName)...)
		root = append(root, le32(0x80000000|peFixLevel1)...)
	}
	copy(sec[peFixRoot:], root)

	// Name/id level.
	var l1 []byte
	if opts.resName != "" {
		l1 = resDirHeader(1, 0)
		l1 = append(l1, le32(0x80000000|peFixResName)...)
	} else {
		l1 = resDirHeader(0, 1)
		l1 = append(l1, le32(uint32(opts.resourceID))...)
	}
	l1 = append(l1, le32(0x80000000|peFixLevel2)...)
	copy(sec[peFixLevel1:], l1)

	// Language level.
	l2 := resDirHeader(0, 1)
	l2 = append(l2, le32(0)...)
	if opts.cyclic {
		l2 = append(l2, le32(0x80000000|peFixRoot)...)
	} else {
		l2 = append(l2, le32(peFixDataEntry)...)
	}
	copy(sec[peFixLevel2:], l2)

	// Data entry.
	entry := le32(peFixRVA + peFixPayload)
	entry = append(entry, le32(uint32(len(payload)))...)
	entry = append(entry, le32(0)...) // codepage
	entry = append(entry, le32(0)...) // reserved
	copy(sec[peFixDataEntry:], entry)

	copy(sec[peFixTypeName:], utf16Name("PiPL"))
	if opts.resName != "" {
		copy(sec[peFixResName:], utf16Name(opts.resName))
	}
	copy(sec[peFixPayload:], payload)

	file := make([]byte, peFixFileOff+len(sec))
	file[0] = 'M'
	file[1] = 'Z'
	copy(file[0x3c:], le32(0x80))
	copy(file[0x80:], []byte{'P', 'E', 0, 0})

	coff := 0x84
	copy(file[coff+2:], le16(1))     // one section
	copy(file[coff+16:], le16(0xf0)) // PE32+ optional header size

	opt := 0x98
	copy(file[opt:], le16(0x20b))
	dataDir := opt + 112
	copy(file[dataDir+2*8:], le32(peFixRVA))
	copy(file[dataDir+2*8+4:], le32(uint32(len(sec))))

	secTable := opt + 0xf0
	copy(file[secTable:], ".rsrc")
	copy(file[secTable+8:], le32(uint32(len(sec))))  // virtual size
	copy(file[secTable+12:], le32(peFixRVA))         // virtual address
	copy(file[secTable+16:], le32(uint32(len(sec)))) // raw size
	copy(file[secTable+20:], le32(peFixFileOff))     // raw offset

	copy(file[peFixFileOff:], sec)
	return file
}

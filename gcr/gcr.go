// Package gcr decodes raw Group-Code-Recording 6-and-2 nibble streams
// captured from a DOS 3.3 floppy track back into 256-byte sector payloads.
//
// It is a pure function over a captured track buffer: it never talks to a
// drive, and it never writes anything back out. Every failure it can
// encounter is non-fatal to the scan; the caller (package retry) decides
// what to do about sectors that never turn up.
package gcr

import "bytes"

const (
	// RawTrackBytes is the size of a single captured track buffer.
	RawTrackBytes = 7168
	// SectorsPerTrack is the number of physical sectors on a DOS 3.3 track.
	SectorsPerTrack = 16
	// SectorDataBytes is the size of one decoded sector payload.
	SectorDataBytes = 256
	// NoTrack is returned as the recovered track number when no valid
	// address field was found anywhere in the capture.
	NoTrack = 255

	maxTrackNumber      = 40
	dataFieldBodyBytes  = 342
	maxDataFieldSearch  = 50
	addressFieldBytes   = 8 // volume, track, sector, checksum as 4-and-4 pairs
	addressFieldPadding = 1
)

var (
	addressPrologue = []byte{0xD5, 0xAA, 0x96}
	addressEpilogue = [2]byte{0xDE, 0xAA}
	dataPrologue    = []byte{0xD5, 0xAA, 0xAD}
	dataEpilogue    = [3]byte{0xDE, 0xAA, 0xEB}
)

// lut is the 6-and-2 read translate table: indexed by an on-disk GCR byte
// masked with 0x7F, it yields the original 6-bit nibble. Entries for byte
// patterns that never appear in a valid encoding are left at zero; such
// bytes only ever show up in corrupt captures, where the running checksum
// eventually catches the damage anyway.
var lut = [128]byte{
	0x16: 0x00, 0x17: 0x01, 0x1a: 0x02, 0x1b: 0x03, 0x1d: 0x04, 0x1e: 0x05, 0x1f: 0x06,
	0x26: 0x07, 0x27: 0x08, 0x2b: 0x09, 0x2c: 0x0a, 0x2d: 0x0b, 0x2e: 0x0c, 0x2f: 0x0d,
	0x32: 0x0e, 0x33: 0x0f, 0x34: 0x10, 0x35: 0x11, 0x36: 0x12, 0x37: 0x13, 0x39: 0x14,
	0x3a: 0x15, 0x3b: 0x16, 0x3c: 0x17, 0x3d: 0x18, 0x3e: 0x19, 0x3f: 0x1a, 0x4b: 0x1b,
	0x4d: 0x1c, 0x4e: 0x1d, 0x4f: 0x1e, 0x53: 0x1f, 0x56: 0x20, 0x57: 0x21, 0x59: 0x22,
	0x5a: 0x23, 0x5b: 0x24, 0x5c: 0x25, 0x5d: 0x26, 0x5e: 0x27, 0x5f: 0x28, 0x65: 0x29,
	0x66: 0x2a, 0x67: 0x2b, 0x69: 0x2c, 0x6a: 0x2d, 0x6b: 0x2e, 0x6c: 0x2f, 0x6d: 0x30,
	0x6e: 0x31, 0x6f: 0x32, 0x72: 0x33, 0x73: 0x34, 0x74: 0x35, 0x75: 0x36, 0x76: 0x37,
	0x77: 0x38, 0x79: 0x39, 0x7a: 0x3a, 0x7b: 0x3b, 0x7c: 0x3c, 0x7d: 0x3d, 0x7e: 0x3e,
	0x7f: 0x3f,
}

// WriteTable is the inverse of lut: given a 6-bit nibble (0-63), it returns
// the on-disk GCR byte a compliant encoder would emit for it. It has no
// caller inside this package (the tool never writes disks) but a reference
// encoder built from it is what the round-trip tests in gcr_test.go use to
// produce known-good data fields to decode.
var WriteTable = [64]byte{
	0x96, 0x97, 0x9a, 0x9b, 0x9d, 0x9e, 0x9f, 0xa6,
	0xa7, 0xab, 0xac, 0xad, 0xae, 0xaf, 0xb2, 0xb3,
	0xb4, 0xb5, 0xb6, 0xb7, 0xb9, 0xba, 0xbb, 0xbc,
	0xbd, 0xbe, 0xbf, 0xcb, 0xcd, 0xce, 0xcf, 0xd3,
	0xd6, 0xd7, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde,
	0xdf, 0xe5, 0xe6, 0xe7, 0xe9, 0xea, 0xeb, 0xec,
	0xed, 0xee, 0xef, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6,
	0xf7, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff,
}

// PhysicalSectorMap maps a physical sector index (0-15) to its decoded
// 256-byte payload. A missing key means the sector was never recovered.
type PhysicalSectorMap map[int][SectorDataBytes]byte

// Clone returns a shallow copy of the map (the array values are copied by
// value, so this is also a deep copy of the sector payloads).
func (m PhysicalSectorMap) Clone() PhysicalSectorMap {
	out := make(PhysicalSectorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FailureKind enumerates the reasons a candidate sector was rejected during
// a track scan. All of them are non-fatal: the scanner always keeps going.
type FailureKind int

const (
	FailureAddressChecksum FailureKind = iota
	FailureAddressEpilogue
	FailureAddressRange
	FailureDataPrologueNotFound
	FailureDataEpilogue
	FailureDataChecksum
)

func (k FailureKind) String() string {
	switch k {
	case FailureAddressChecksum:
		return "address checksum mismatch"
	case FailureAddressEpilogue:
		return "address epilogue mismatch"
	case FailureAddressRange:
		return "address track/sector out of range"
	case FailureDataPrologueNotFound:
		return "data prologue not found within search window"
	case FailureDataEpilogue:
		return "data epilogue mismatch"
	case FailureDataChecksum:
		return "data checksum mismatch"
	default:
		return "unknown failure"
	}
}

// Failure records one rejected candidate sector, for diagnostics only: it
// never changes what the scanner does next.
type Failure struct {
	Kind   FailureKind
	Offset int // byte offset in the raw track buffer where the candidate began
}

// DecodeTrack scans a raw captured track (expected to be RawTrackBytes
// long, though the scanner tolerates shorter or longer buffers) and returns
// the track number reported by the first valid address field found (or
// NoTrack if none was), together with however many of the 16 physical
// sectors could be decoded. Decoding stops once 16 distinct sectors have
// been found, the raw buffer is exhausted, or no further address prologue
// can be located.
func DecodeTrack(raw []byte) (trackNum byte, sectors PhysicalSectorMap, failures []Failure) {
	trackNum = NoTrack
	sectors = make(PhysicalSectorMap)
	pos := 0

	for len(sectors) < SectorsPerTrack {
		start := indexOf(raw, pos, addressPrologue)
		if start < 0 {
			break
		}
		pos = start + len(addressPrologue)

		fieldLen := addressFieldBytes + len(addressEpilogue) + addressFieldPadding
		if pos+fieldLen > len(raw) {
			break
		}
		field := raw[pos : pos+fieldLen]
		pos += fieldLen

		volume, track, sector, ok, kind := decodeAddressField(field)
		if !ok {
			failures = append(failures, Failure{Kind: kind, Offset: start})
			continue
		}
		if track >= maxTrackNumber || sector >= SectorsPerTrack {
			failures = append(failures, Failure{Kind: FailureAddressRange, Offset: start})
			continue
		}
		_ = volume
		if trackNum == NoTrack {
			trackNum = track
		}

		dataStart := indexOf(raw, pos, dataPrologue)
		if dataStart < 0 || dataStart-pos > maxDataFieldSearch {
			failures = append(failures, Failure{Kind: FailureDataPrologueNotFound, Offset: pos})
			continue
		}
		bodyStart := dataStart + len(dataPrologue)
		bodyLen := dataFieldBodyBytes + 1 + len(dataEpilogue)
		if bodyStart+bodyLen > len(raw) {
			break
		}
		body := raw[bodyStart : bodyStart+bodyLen]
		pos = bodyStart + bodyLen

		payload, ok, kind := decodeDataField(body)
		if !ok {
			failures = append(failures, Failure{Kind: kind, Offset: dataStart})
			continue
		}
		if _, exists := sectors[int(sector)]; !exists {
			sectors[int(sector)] = payload
		}
	}

	return trackNum, sectors, failures
}

// decodeAddressField decodes the 8 4-and-4-encoded field bytes plus the
// 2-byte epilogue that follow an address prologue. data must be exactly
// addressFieldBytes + 2 + addressFieldPadding bytes long.
func decodeAddressField(data []byte) (volume, track, sector byte, ok bool, kind FailureKind) {
	if data[8] != addressEpilogue[0] || data[9] != addressEpilogue[1] {
		return 0, 0, 0, false, FailureAddressEpilogue
	}
	volume = decode44(data[0], data[1])
	track = decode44(data[2], data[3])
	sector = decode44(data[4], data[5])
	checksum := decode44(data[6], data[7])
	if checksum != volume^track^sector {
		return 0, 0, 0, false, FailureAddressChecksum
	}
	return volume, track, sector, true, 0
}

// decode44 recovers the original byte from a 4-and-4 encoded pair.
func decode44(a, b byte) byte {
	return ((a << 1) | (a >> 7)) & b
}

// decodeDataField decodes the 342-byte encoded body, checksum byte, and
// 3-byte epilogue of a data field. data must be exactly
// dataFieldBodyBytes + 1 + 3 bytes long.
func decodeDataField(data []byte) (payload [SectorDataBytes]byte, ok bool, kind FailureKind) {
	epilogueAt := dataFieldBodyBytes + 1
	if data[epilogueAt] != dataEpilogue[0] || data[epilogueAt+1] != dataEpilogue[1] || data[epilogueAt+2] != dataEpilogue[2] {
		return payload, false, FailureDataEpilogue
	}

	var dec [dataFieldBodyBytes]byte
	var running byte
	for i := 0; i < dataFieldBodyBytes; i++ {
		running ^= lut[data[i]&0x7f]
		dec[i] = running
	}
	if lut[data[dataFieldBodyBytes]&0x7f] != dec[dataFieldBodyBytes-1] {
		return payload, false, FailureDataChecksum
	}

	// The 86 auxiliary values come first in the decoded stream, and the
	// aux buffer holds them in reverse decode order: aux[0] is dec[85] and
	// aux[85] is dec[0].
	var aux [86]byte
	for i := 0; i < 86; i++ {
		aux[i] = dec[85-i]
	}
	high := dec[86:]
	for i := 0; i < SectorDataBytes; i++ {
		payload[i] = high[i] << 2
	}
	// Column A: 84 entries, descending output indices 255..172.
	for i := 0; i < 84; i++ {
		payload[255-i] |= lowBitInvolution((aux[2+i] >> 4) & 3)
	}
	// Column B: 86 entries, descending output indices 171..86.
	for i := 0; i < 86; i++ {
		payload[171-i] |= lowBitInvolution((aux[i] >> 2) & 3)
	}
	// Column C: 86 entries, descending output indices 85..0.
	for i := 0; i < 86; i++ {
		payload[85-i] |= lowBitInvolution(aux[i] & 3)
	}

	return payload, true, 0
}

// lowBitInvolution applies the {0:0, 1:2, 2:1, 3:3} remapping required
// before the two bits are OR-ed into an output byte. The asymmetric column
// split (84/86/86) this feeds is format-inherent and must not be
// "normalized" to three equal columns.
func lowBitInvolution(b byte) byte {
	switch b {
	case 1:
		return 2
	case 2:
		return 1
	default:
		return b
	}
}

func indexOf(haystack []byte, from int, pattern []byte) int {
	if from >= len(haystack) {
		return -1
	}
	idx := bytes.Index(haystack[from:], pattern)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// Package interleave translates between the physical sector order a drive
// captures and the logical sector order DOS 3.3 files are addressed in.
package interleave

import "github.com/mtwomey/a2gcr/gcr"

// SectorsPerTrack is the number of sectors interleaved per track.
const SectorsPerTrack = gcr.SectorsPerTrack

// TrackBytes is the size of one fully assembled logical track image.
const TrackBytes = SectorsPerTrack * gcr.SectorDataBytes

// P2L maps a logical sector number to its physical sector number: P2L[i] is
// the physical sector whose payload belongs at logical offset i*256.
var P2L = []byte{
	0x00, 0x0D, 0x0B, 0x09, 0x07, 0x05, 0x03, 0x01,
	0x0E, 0x0C, 0x0A, 0x08, 0x06, 0x04, 0x02, 0x0F,
}

// L2P maps a physical sector number to its logical sector number. It is the
// inverse of P2L, built once at init time rather than hand-duplicated, so
// the two tables can never drift apart.
var L2P = invert(P2L)

func invert(m []byte) []byte {
	out := make([]byte, len(m))
	for logical, physical := range m {
		out[physical] = byte(logical)
	}
	return out
}

// BuildTrackImage assembles a 4096-byte logical track image from a physical
// sector map, in logical sector order. Any physical sector missing from
// sectors leaves its corresponding logical sector zero-filled, and its
// logical index is appended to missing.
func BuildTrackImage(sectors gcr.PhysicalSectorMap) (image []byte, missing []int) {
	image = make([]byte, TrackBytes)
	for physical := 0; physical < SectorsPerTrack; physical++ {
		logical := int(L2P[physical])
		offset := logical * gcr.SectorDataBytes
		if payload, ok := sectors[physical]; ok {
			copy(image[offset:offset+gcr.SectorDataBytes], payload[:])
		} else {
			missing = append(missing, logical)
		}
	}
	return image, missing
}

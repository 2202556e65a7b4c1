package interleave

import (
	"testing"

	"github.com/mtwomey/a2gcr/gcr"
)

func TestL2PIsInverseOfP2L(t *testing.T) {
	for physical := 0; physical < SectorsPerTrack; physical++ {
		logical := P2L[physical]
		if int(L2P[logical]) != physical {
			t.Errorf("L2P[P2L[%d]] = %d, want %d", physical, L2P[logical], physical)
		}
	}
	for logical := 0; logical < SectorsPerTrack; logical++ {
		physical := L2P[logical]
		if int(P2L[physical]) != logical {
			t.Errorf("P2L[L2P[%d]] = %d, want %d", logical, P2L[physical], logical)
		}
	}
}

func TestBuildTrackImageZeroFillsMissingSectors(t *testing.T) {
	sectors := make(gcr.PhysicalSectorMap)
	var payload [gcr.SectorDataBytes]byte
	for i := range payload {
		payload[i] = 0xAA
	}
	sectors[0] = payload // physical sector 0 == logical sector 0

	image, missing := BuildTrackImage(sectors)

	if len(image) != TrackBytes {
		t.Fatalf("image length = %d, want %d", len(image), TrackBytes)
	}
	if len(missing) != SectorsPerTrack-1 {
		t.Fatalf("missing count = %d, want %d", len(missing), SectorsPerTrack-1)
	}
	for i, b := range image[:gcr.SectorDataBytes] {
		if b != 0xAA {
			t.Fatalf("logical sector 0 byte %d = %#x, want 0xAA", i, b)
		}
	}
	for i, b := range image[gcr.SectorDataBytes:] {
		if b != 0 {
			t.Fatalf("byte %d in a missing sector = %#x, want 0", i+gcr.SectorDataBytes, b)
		}
	}
}

// TestBuildTrackImagePlacesNonFixedPointSectorCorrectly exercises a physical
// sector that isn't its own logical position (P2L[1]=13, so physical
// sector 13 belongs at logical offset 1*256, and physical sector 7 at
// logical offset L2P[7]*256 = 4*256 — a scramble here wouldn't be caught
// by sector 0 alone).
func TestBuildTrackImagePlacesNonFixedPointSectorCorrectly(t *testing.T) {
	sectors := make(gcr.PhysicalSectorMap)
	var payload13, payload7 [gcr.SectorDataBytes]byte
	for i := range payload13 {
		payload13[i] = 0x13
		payload7[i] = 0x07
	}
	sectors[13] = payload13
	sectors[7] = payload7

	image, _ := BuildTrackImage(sectors)

	logicalOffset := 1 * gcr.SectorDataBytes
	if image[logicalOffset] != 0x13 {
		t.Fatalf("logical sector 1 byte 0 = %#x, want 0x13 (physical sector 13's payload)", image[logicalOffset])
	}
	logicalOffsetFor7 := int(L2P[7]) * gcr.SectorDataBytes
	if image[logicalOffsetFor7] != 0x07 {
		t.Fatalf("logical sector %d byte 0 = %#x, want 0x07 (physical sector 7's payload)", L2P[7], image[logicalOffsetFor7])
	}
}
